// Package ledger keeps an append-only journal of the actions the engine
// finished, whatever their outcome.
//
// # Core Components
//
// Journal: hash-chained log of entries. Every entry commits to the hash
// of the one before it, so editing or reordering the history is detected
// by Verify.
//
// Entry: one finished action with its terminal state, sign request id,
// transaction hash and proof material.
//
// # Usage
//
// The dispatcher appends one entry per run when it reaches done or
// failed. The journal lives in memory for the lifetime of the process;
// callers that need it across restarts persist Entries themselves.
package ledger
