package bridge

import "encoding/json"

// Status of a sign request as reported by the bridge.
type Status string

const (
	Pending  Status = "pending"
	Signed   Status = "signed"
	Rejected Status = "rejected"
)

// Terminal reports whether the bridge will not change s any more.
func (s Status) Terminal() bool {
	return s == Signed || s == Rejected
}

// SignRequest is the engine's read-only view of a bridge-owned request.
type SignRequest struct {
	ID            string `json:"id,omitempty"`
	Status        Status `json:"status"`
	SignedXDR     string `json:"signedXdr,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
	Error         string `json:"error,omitempty"`
}

// SignParams describes the payload to be signed.
type SignParams struct {
	PlayerID          string         `json:"playerId"`
	Action            string         `json:"action"`
	XDR               string         `json:"xdr"`
	NetworkPassphrase string         `json:"networkPassphrase"`
	Metadata          map[string]any `json:"metadata"`
}

// Account is the wallet linked to a player, if any.
type Account struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (e envelope) failure() string {
	if e.Error != "" {
		return e.Error
	}
	return "bridge reported ok=false"
}

type accountResponse struct {
	envelope
	Account
}

type connectRequest struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

type connectResponse struct {
	envelope
	ConnectURL string `json:"connectUrl,omitempty"`
}

type submitResponse struct {
	envelope
	RequestID string `json:"requestId,omitempty"`
	SignerURL string `json:"signerUrl,omitempty"`
}

type signRequestResponse struct {
	envelope
	Request SignRequest `json:"request"`
}

type snapshotRequest struct {
	PlayerID string `json:"playerId"`
	Snapshot any    `json:"snapshot"`
}

type snapshotResponse struct {
	envelope
	Found    bool            `json:"found"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
}
