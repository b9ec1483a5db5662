package dispatcher

import (
	"errors"
	"fmt"
)

var (
	// ErrSignRejected means the player declined the signature in the wallet.
	ErrSignRejected = errors.New("rejected by wallet")
	// ErrNotConnected is recorded for gameplay actions fired before the
	// wallet connected.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrEmptySignedPayload means the bridge reported a request signed but
	// returned no signed transaction.
	ErrEmptySignedPayload = errors.New("signed request carries no payload")
)

// SubmissionError wraps a failure of the Submitter.
type SubmissionError struct {
	Action Action
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s: %v", e.Action, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// panicError is a recovered panic from inside a run.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("internal error: %v", e.value)
}
