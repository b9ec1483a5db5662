package dispatcher

import (
	"context"

	"github.com/luca-patrignani/chainplay/prover"
)

// Action is the contract method a run invokes, also used as the bridge
// action name.
type Action string

const (
	ActionJoin    Action = "join_game"
	ActionTask    Action = "submit_task_proof"
	ActionKill    Action = "submit_kill_proof"
	ActionVote    Action = "submit_vote"
	ActionMeeting Action = "start_meeting"
)

// Args carries the contract arguments of one action. The concrete type
// tells the builder which action it is looking at.
type Args interface {
	isArgs()
}

type JoinArgs struct {
	Address    string
	Color      string
	Name       string // at most 10 characters
	PlayerHash string // SHA-256 hex of "<address>:<color>:<full name>"
	RoleHash   string // digest of the join proof
}

type TaskArgs struct {
	Address string
	Proof   prover.Proof
}

type KillArgs struct {
	Killer string
	Victim string
	Proof  prover.Proof
}

type VoteArgs struct {
	Voter      string
	TargetHash string // SHA-256 hex of the target's wallet address
	ProofHash  string
	Nullifier  string
}

type MeetingArgs struct {
	Caller string
}

func (JoinArgs) isArgs()    {}
func (TaskArgs) isArgs()    {}
func (KillArgs) isArgs()    {}
func (VoteArgs) isArgs()    {}
func (MeetingArgs) isArgs() {}

// PayloadBuilder builds the unsigned chain transaction of an action.
// Implementations know the contract; the dispatcher only moves the result
// between the prover, the wallet and the Submitter.
type PayloadBuilder interface {
	// Build returns the unsigned transaction envelope, typically base64 XDR.
	Build(ctx context.Context, action Action, args Args) (string, error)
}

// Submitter sends a signed transaction to the chain.
type Submitter interface {
	// Submit returns the hash of the accepted transaction.
	Submit(ctx context.Context, signedXDR string) (string, error)
}

// PayloadBuilderFunc adapts a function to PayloadBuilder.
type PayloadBuilderFunc func(ctx context.Context, action Action, args Args) (string, error)

func (f PayloadBuilderFunc) Build(ctx context.Context, action Action, args Args) (string, error) {
	return f(ctx, action, args)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, signedXDR string) (string, error)

func (f SubmitterFunc) Submit(ctx context.Context, signedXDR string) (string, error) {
	return f(ctx, signedXDR)
}
