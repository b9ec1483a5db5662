package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"

	"github.com/luca-patrignani/chainplay/bridge"
	"github.com/luca-patrignani/chainplay/ledger"
	"github.com/luca-patrignani/chainplay/prover"
	"github.com/luca-patrignani/chainplay/status"
	"github.com/luca-patrignani/chainplay/wallet"
)

// run is one pass of an action through the state machine. Its fields
// are written by the hook and then only read by the single task that
// executes it.
type run struct {
	id       string
	action   Action
	label    string
	kind     prover.Kind // empty for actions without a proof
	inputs   prover.Inputs
	round    uint64
	metadata map[string]any
	args     func(wallet.Session, prover.Proof) Args

	state     State
	requestID string
	txHash    string
	proof     prover.Proof
	log       *slog.Logger
}

func (d *Dispatcher) newRun(action Action, label string) *run {
	id := uuid.NewString()
	d.metrics.ActionDispatched(string(action))
	return &run{
		id:     id,
		action: action,
		label:  label,
		state:  Idle,
		log:    d.log.With("action", string(action), "action_id", id),
	}
}

func (r *run) transition(next State) {
	r.log.Debug("action state", "from", r.state.String(), "to", next.String())
	r.state = next
}

// execute drives r from buildingProof to a terminal state. A panic inside
// any step fails the run instead of escaping the task.
func (d *Dispatcher) execute(ctx context.Context, r *run) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("action panicked", "panic", p)
			d.fail(r, &panicError{value: p})
		}
	}()

	session := d.wallet.Session()
	if !session.Connected {
		d.fail(r, ErrNotConnected)
		return
	}

	r.transition(BuildingProof)
	if r.kind != "" {
		in := r.inputs
		in.PlayerSecret = session.Secret
		d.status.SetToast(fmt.Sprintf("🔐 %s: generating proof…", r.action), status.Positive, provingTTL)
		proof, err := d.provider.Prove(ctx, r.kind, in)
		if err != nil {
			d.fail(r, err)
			return
		}
		r.proof = proof
		if n := d.journal.Used(proof.Nullifier); n > 0 {
			r.log.Warn("nullifier already spent by an earlier action", "nullifier", proof.Nullifier, "times", n)
		}
	}

	if d.builder == nil {
		msg := fmt.Sprintf("✓ %s (proof-only mode)", r.label)
		if r.proof.Simulated {
			msg = fmt.Sprintf("✓ %s (proof-only mode, simulated proof)", r.label)
		}
		d.succeed(r, msg)
		return
	}

	xdr, err := d.builder.Build(ctx, r.action, r.args(session, r.proof))
	if err != nil {
		d.fail(r, fmt.Errorf("build payload: %w", err))
		return
	}

	r.transition(AwaitingSignature)
	d.status.SetToast(fmt.Sprintf("⏳ %s: awaiting wallet signature…", r.action), status.Positive, d.settings.SignTimeout)
	metadata := maps.Clone(r.metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["action_id"] = r.id

	requestID, signerURL, err := d.client.Submit(ctx, bridge.SignParams{
		PlayerID:          d.settings.PlayerID,
		Action:            string(r.action),
		XDR:               xdr,
		NetworkPassphrase: d.settings.NetworkPassphrase,
		Metadata:          metadata,
	})
	if err != nil {
		d.fail(r, err)
		return
	}
	r.requestID = requestID
	r.log.Info("sign request created", "request_id", requestID, "signer_url", signerURL)
	if signerURL != "" && d.openURL != nil {
		if err := d.openURL(signerURL); err != nil {
			r.log.Warn("could not open signer page", "url", signerURL, "err", err)
		}
	}

	req, err := d.client.AwaitResolution(ctx, requestID, d.settings.SignTimeout, d.settings.SignPollInterval)
	if err != nil {
		d.fail(r, err)
		return
	}
	if req.Status == bridge.Rejected {
		if req.Error != "" {
			r.log.Info("wallet rejected the request", "reason", req.Error)
		}
		d.fail(r, ErrSignRejected)
		return
	}
	if req.SignedXDR == "" {
		d.fail(r, ErrEmptySignedPayload)
		return
	}

	r.transition(Submitting)
	if d.submitter == nil {
		d.succeed(r, fmt.Sprintf("✓ %s signed (no submitter configured)", r.action))
		return
	}
	hash, err := d.submitter.Submit(ctx, req.SignedXDR)
	if err != nil {
		d.fail(r, &SubmissionError{Action: r.action, Err: err})
		return
	}
	r.txHash = hash
	d.succeed(r, fmt.Sprintf("✓ %s on-chain  tx=%s…", r.action, wallet.Truncate(hash, 12)))
}

func (d *Dispatcher) succeed(r *run, msg string) {
	d.status.SetToast(msg, status.Positive, d.settings.ToastTTL)
	d.finish(r, Done, msg, nil)
}

func (d *Dispatcher) fail(r *run, err error) {
	msg := fmt.Sprintf("✗ %s: %s", r.action, failureReason(err))
	d.status.SetToast(msg, status.Negative, failureTTL)
	d.finish(r, Failed, msg, err)
}

// failureReason is the part of a failure the player gets to read.
func failureReason(err error) string {
	var subErr *SubmissionError
	switch {
	case errors.Is(err, ErrSignRejected):
		return ErrSignRejected.Error()
	case errors.As(err, &subErr):
		return subErr.Err.Error()
	}
	return err.Error()
}

// finish moves r to its terminal state and records the outcome.
func (d *Dispatcher) finish(r *run, state State, msg string, err error) {
	if r.state.Terminal() {
		return
	}
	r.transition(state)
	d.metrics.ActionFinished(string(r.action), state.String())
	if err != nil {
		r.log.Warn("action failed", "state", r.state.String(), "err", err)
	} else {
		r.log.Info("action done", "message", msg)
	}

	rec := ledger.Record{
		ActionID:    r.id,
		Action:      string(r.action),
		State:       state.String(),
		Message:     msg,
		Round:       r.round,
		RequestID:   r.requestID,
		TxHash:      r.txHash,
		ProofDigest: r.proof.Digest,
		Nullifier:   r.proof.Nullifier,
		Simulated:   r.proof.Simulated,
	}
	if _, jerr := d.journal.Append(rec); jerr != nil {
		r.log.Error("journal append failed", "err", jerr)
	}
}
