package dispatcher

// State of one action run.
type State int

const (
	Idle State = iota
	AwaitingWallet
	BuildingProof
	AwaitingSignature
	Submitting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingWallet:
		return "awaitingWallet"
	case BuildingProof:
		return "buildingProof"
	case AwaitingSignature:
		return "awaitingSignature"
	case Submitting:
		return "submitting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether a run in s is over.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
