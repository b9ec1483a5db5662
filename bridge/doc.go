// Package bridge is the client side of the wallet bridge, the local HTTP
// service that holds the player's browser wallet session and relays sign
// requests to it.
//
// # Core Components
//
// Client: JSON-over-HTTP access to every bridge endpoint (health, wallet
// connect and account lookup, sign requests, game snapshots).
//
// Sign requests: Submit creates a tracked request for an unsigned payload;
// AwaitResolution polls it at a fixed interval until the bridge reports
// signed or rejected, a transport failure occurs, or the local deadline
// passes. The deadline only ends the local wait: the request is left
// pending on the bridge.
//
// # Errors
//
// ConnectionError: the bridge is unreachable or unhealthy at startup.
// BridgeError: a call failed in transport or the bridge answered ok=false.
// TimeoutError: a sign request did not reach a terminal state in time.
package bridge
