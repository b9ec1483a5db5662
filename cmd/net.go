package main

import (
	"fmt"
	"net"
	"strconv"
)

const defaultBridgePort = 8789

// splitHostPort splits an address into host and port, using defaultPort if no port is specified.
func splitHostPort(addr string, defaultPort int) (string, string, error) {
	ipaddr, port, err := net.SplitHostPort(addr)
	if err != nil {
		addr = addr + ":" + strconv.Itoa(defaultPort)
		ipaddr, port, err = net.SplitHostPort(addr)
		if err != nil {
			return "", "", err
		}
	}
	return ipaddr, port, nil
}

// listenAddress normalises a --listen value: a bare host gets the bridge
// port and an empty host means loopback.
func listenAddress(addr string) (string, error) {
	host, port, err := splitHostPort(addr, defaultBridgePort)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return net.JoinHostPort(host, port), nil
}

// advertisedURL is the base URL clients use to reach a listener. An
// unspecified listen IP is advertised as loopback.
func advertisedURL(addr net.Addr) (string, error) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return "", fmt.Errorf("listener is not TCP")
	}
	ip := tcpAddr.IP
	if ip == nil || ip.IsUnspecified() {
		ip = net.IPv4(127, 0, 0, 1)
	}
	return "http://" + net.JoinHostPort(ip.String(), strconv.Itoa(tcpAddr.Port)), nil
}
