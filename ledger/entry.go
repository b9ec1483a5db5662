package ledger

// Record is what the dispatcher knows about a finished action.
type Record struct {
	ActionID    string `json:"action_id"`
	Action      string `json:"action"`
	State       string `json:"state"`
	Message     string `json:"message"`
	Round       uint64 `json:"round"`
	RequestID   string `json:"request_id,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	ProofDigest string `json:"proof_digest,omitempty"`
	Nullifier   string `json:"nullifier,omitempty"`
	Simulated   bool   `json:"simulated,omitempty"`
}

// Entry is a Record sealed into the journal.
type Entry struct {
	Index     int    `json:"index"`
	Timestamp int64  `json:"timestamp"`
	PrevHash  string `json:"prev_hash"`
	Hash      string `json:"hash"`
	Record    Record `json:"record"`
}
