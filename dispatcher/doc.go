// Package dispatcher turns game events into proof-backed, wallet-signed
// chain transactions without ever blocking the game loop.
//
// # Core Components
//
// Dispatcher: exposes one hook per game action. Each accepted action runs
// as its own task through a fixed sequence of states:
//
//	idle → awaitingWallet → buildingProof → awaitingSignature → submitting → done
//
// Any step may end the run in failed. Nothing is retried; the game calls
// the hook again if it wants another attempt.
//
// PayloadBuilder and Submitter: the chain-specific ends of the pipeline.
// Without a PayloadBuilder the dispatcher runs in proof-only mode and
// never contacts the bridge for signatures; without a Submitter a signed
// transaction is reported and dropped.
//
// Connect: builds the whole engine (bridge client, wallet session, prover,
// task group, status channel) from a config.Config.
//
// # Status
//
// Every outcome is published to the status channel as a toast. The game
// renders Toast and Persistent once per frame after calling Tick.
package dispatcher
