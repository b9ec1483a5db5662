package main

import (
	"net"
	"strconv"
	"testing"
)

func TestSplitHostPortDefaultPort(t *testing.T) {
	host, port, err := splitHostPort("192.168.0.1", defaultBridgePort)
	if err != nil {
		t.Fatal(err)
	}
	if host != "192.168.0.1" || port != "8789" {
		t.Fatalf("expected 192.168.0.1 8789, actual %s %s", host, port)
	}
}

func TestSplitHostPortExplicitPort(t *testing.T) {
	host, port, err := splitHostPort("localhost:9000", defaultBridgePort)
	if err != nil {
		t.Fatal(err)
	}
	if host != "localhost" || port != "9000" {
		t.Fatalf("expected localhost 9000, actual %s %s", host, port)
	}
}

func TestListenAddress(t *testing.T) {
	cases := map[string]string{
		"":               "127.0.0.1:8789",
		":9000":          "127.0.0.1:9000",
		"0.0.0.0":        "0.0.0.0:8789",
		"10.0.0.2:80":    "10.0.0.2:80",
		"localhost:8789": "localhost:8789",
	}
	for in, expected := range cases {
		actual, err := listenAddress(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if actual != expected {
			t.Fatalf("%q: expected %s, actual %s", in, expected, actual)
		}
	}
}

func TestListenAddressRejectsBadPort(t *testing.T) {
	if _, err := listenAddress("127.0.0.1:99999"); err == nil {
		t.Fatal("expected an error for an out of range port")
	}
}

func TestAdvertisedURL(t *testing.T) {
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	port := l.Addr().(*net.TCPAddr).Port
	actual, err := advertisedURL(l.Addr())
	if err != nil {
		t.Fatal(err)
	}
	expected := "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	if actual != expected {
		t.Fatalf("expected %s, actual %s", expected, actual)
	}
}

func TestAdvertisedURLNotTCP(t *testing.T) {
	if _, err := advertisedURL(&net.UDPAddr{}); err == nil {
		t.Fatal("expected an error for a UDP address")
	}
}
