package prover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Kind identifies a proof-backed action and, through Circuit, the circuit
// proving it.
type Kind string

const (
	Join Kind = "join"
	Task Kind = "task"
	Kill Kind = "kill"
	Vote Kind = "vote"
)

// Circuit returns the name of the circuit directory for k.
func (k Kind) Circuit() string {
	switch k {
	case Join:
		return "role_proof"
	case Task:
		return "task_proof"
	case Kill:
		return "kill_proof"
	case Vote:
		return "vote_proof"
	}
	return string(k)
}

// Inputs is the secret and round material an action mixes into its proof.
// Each Kind reads only the fields it needs.
type Inputs struct {
	PlayerSecret uint64
	RoundID      uint64
	MeetingRound uint64
	TaskID       int64
	DX           int64
	DY           int64
	TargetIndex  int64
}

// Proof is what a Provider hands back to the dispatcher.
type Proof struct {
	Digest       string   // 64 hex chars
	Nullifier    string   // 64 hex chars
	PublicInputs []string // 64 hex chars each
	Simulated    bool
}

// Provider generates proofs for game actions.
type Provider interface {
	// Available reports whether proofs come from the external prover.
	Available() bool
	Prove(ctx context.Context, kind Kind, in Inputs) (Proof, error)
}

// ErrNoArtifact is reported when the prover exits cleanly but leaves no
// proof file behind.
var ErrNoArtifact = errors.New("prover produced no artifact")

// ProofError reports a failed proof generation for one circuit.
type ProofError struct {
	Circuit string
	Err     error
}

func (e *ProofError) Error() string {
	return fmt.Sprintf("proof generation failed for %s: %v", e.Circuit, e.Err)
}

func (e *ProofError) Unwrap() error { return e.Err }

// Detect probes the external prover once and returns it when usable, or a
// Simulator otherwise.
func Detect(ctx context.Context, cfg NargoConfig, log *slog.Logger) Provider {
	if log == nil {
		log = slog.Default()
	}
	n := NewNargo(cfg, log)
	if n.probe(ctx) {
		log.Info("external prover available", "binary", n.cfg.Binary, "circuits", n.cfg.CircuitsRoot)
		return n
	}
	log.Warn("external prover not available, proofs will be simulated", "binary", n.cfg.Binary)
	return NewSimulator()
}
