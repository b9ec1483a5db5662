// Package prover produces the proof material attached to proof-backed game
// actions.
//
// # Core Components
//
// Provider: the interface the dispatcher consumes. It turns an action Kind
// and its Inputs into a Proof: a digest, a nullifier and the public inputs
// the on-chain verifier expects.
//
// Nargo: the real implementation. It writes a Prover.toml parameter file
// into the circuit's directory, runs the external prover and hashes the
// newest artifact it leaves in the circuit's proofs/ directory.
//
// Simulator: the fallback used when the external prover is not installed.
// Its digests are plain hashes of the action's inputs and carry
// Simulated=true so that status output can tell them apart. They are not
// proofs.
//
// # Nullifiers
//
// Nullifiers are fixed linear combinations of the player secret and the
// round material, reduced modulo 2^64. The formulas are shared with the
// deployed verifier contract and must not change between client versions.
package prover
