package prover

import (
	"context"
	"fmt"
)

// Simulator computes deterministic stand-in proofs. Prove is pure: the
// same kind and inputs always give the same Proof.
type Simulator struct{}

// NewSimulator returns the fallback prover.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Available is always false: a Simulator never runs the external prover.
func (*Simulator) Available() bool { return false }

// Prove derives digest, nullifier and public inputs from in alone.
func (*Simulator) Prove(_ context.Context, kind Kind, in Inputs) (Proof, error) {
	s := in.PlayerSecret
	var preimage string
	var public []string
	switch kind {
	case Join:
		preimage = fmt.Sprintf("role:%d:%d", s, in.RoundID)
	case Task:
		preimage = fmt.Sprintf("task:%d:%d:%d", in.TaskID, taskSecret(in), s)
		public = []string{Hex64(in.RoundID)}
	case Kill:
		preimage = fmt.Sprintf("kill:%d:%d:%d:%d", in.DX, in.DY, s, in.RoundID)
		public = []string{Hex64(in.RoundID)}
	case Vote:
		preimage = fmt.Sprintf("vote:%d:%d:%d", in.TargetIndex, s, in.MeetingRound)
	default:
		return Proof{}, &ProofError{Circuit: kind.Circuit(), Err: fmt.Errorf("unknown proof kind %q", kind)}
	}
	return Proof{
		Digest:       Digest([]byte(preimage)),
		Nullifier:    Hex64(Nullifier(kind, in)),
		PublicInputs: public,
		Simulated:    true,
	}, nil
}
