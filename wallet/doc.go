// Package wallet owns the player's wallet session.
//
// # Core Components
//
// Manager: probes the bridge once at startup, links the player's wallet
// either immediately (a wallet the bridge already knows) or through the
// browser connect handshake followed by a background poll loop, and keeps
// a FIFO of actions requested before the wallet was connected. When the
// wallet connects the queue is emptied in one step and every entry is
// replayed exactly once as its own task.
//
// Session: address and derived player secret. It is written once, when
// the wallet connects, and is read-only afterwards.
package wallet
