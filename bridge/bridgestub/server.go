// Package bridgestub is an in-memory wallet bridge. It serves the same
// HTTP contract as the real bridge, so tests and local demos can run the
// whole engine without a browser wallet. Requests are resolved either by
// the Complete/Reject methods, by the matching HTTP endpoints or
// automatically through WithAutoSign/WithAutoReject.
package bridgestub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

var ErrUnknownRequest = errors.New("request not found")

// Request is the stub's record of one sign request.
type Request struct {
	ID                string
	PlayerID          string
	Action            string
	XDR               string
	NetworkPassphrase string
	Metadata          map[string]any
	Status            string
	SignedXDR         string
	WalletAddress     string
	Error             string
	CreatedAt         time.Time
}

type Server struct {
	mu         sync.Mutex
	healthy    bool
	accounts   map[string]string
	connects   []string
	requests   map[string]*Request
	order      []string
	polls      map[string]int
	snapshots  map[string]json.RawMessage
	submitFail string

	publicURL  string
	autoLink   string
	autoSign   string
	autoReject string
	log        *slog.Logger

	router *chi.Mux
}

type Option func(*Server)

// WithPublicURL sets the base used for connect and signer URLs.
func WithPublicURL(u string) Option {
	return func(s *Server) { s.publicURL = u }
}

// WithAutoLink links address to every player that starts a connect
// handshake.
func WithAutoLink(address string) Option {
	return func(s *Server) { s.autoLink = address }
}

// WithAutoSign marks every new sign request signed by address.
func WithAutoSign(address string) Option {
	return func(s *Server) { s.autoSign = address }
}

// WithAutoReject marks every new sign request rejected with reason.
func WithAutoReject(reason string) Option {
	return func(s *Server) { s.autoReject = reason }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

func New(opts ...Option) *Server {
	s := &Server{
		healthy:   true,
		accounts:  map[string]string{},
		requests:  map[string]*Request{},
		polls:     map[string]int{},
		snapshots: map[string]json.RawMessage{},
		publicURL: "http://127.0.0.1:8789",
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/health", s.health)
	r.Get("/wallet/account", s.account)
	r.Post("/wallet/connect", s.connect)
	r.Post("/tx/request", s.submit)
	r.Get("/tx/request/{id}", s.request)
	r.Post("/tx/request/{id}/complete", s.complete)
	r.Post("/tx/request/{id}/reject", s.reject)
	r.Post("/game/snapshot", s.saveSnapshot)
	r.Get("/game/snapshot/{playerId}", s.loadSnapshot)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetHealthy changes the answer of /health.
func (s *Server) SetHealthy(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = ok
}

// FailSubmissions makes /tx/request answer ok=false with reason. An empty
// reason restores normal behaviour.
func (s *Server) FailSubmissions(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitFail = reason
}

// LinkWallet records address as playerID's wallet, as if the player had
// approved the connection in the browser.
func (s *Server) LinkWallet(playerID, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[playerID] = address
}

// Connects returns the player ids that started a handshake, in order.
func (s *Server) Connects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.connects...)
}

// Complete marks a pending request signed.
func (s *Server) Complete(id, signedXDR, walletAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return ErrUnknownRequest
	}
	req.Status = "signed"
	req.SignedXDR = signedXDR
	req.WalletAddress = walletAddress
	return nil
}

// Reject marks a pending request rejected.
func (s *Server) Reject(id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return ErrUnknownRequest
	}
	req.Status = "rejected"
	req.Error = reason
	return nil
}

// Requests returns copies of every sign request in submission order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.requests[id])
	}
	return out
}

// Polls returns how many times request id was fetched.
func (s *Server) Polls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[id]
}

// Players returns the ids that have a stored snapshot, sorted.
func (s *Server) Players() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.snapshots))
	for p := range s.snapshots {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ok := s.healthy
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "bridge unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "playerId is required")
		return
	}
	s.mu.Lock()
	address, ok := s.accounts[playerID]
	s.mu.Unlock()
	resp := map[string]any{"ok": true, "connected": ok}
	if ok {
		resp["address"] = address
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID    string `json:"playerId"`
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "playerId is required")
		return
	}

	s.mu.Lock()
	s.connects = append(s.connects, body.PlayerID)
	if s.autoLink != "" {
		s.accounts[body.PlayerID] = s.autoLink
	}
	connectURL := s.publicURL + "/connect?playerId=" + url.QueryEscape(body.PlayerID)
	s.mu.Unlock()

	s.log.Info("wallet connect started", "player", body.PlayerID, "name", body.DisplayName)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "connectUrl": connectURL})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID          string         `json:"playerId"`
		Action            string         `json:"action"`
		XDR               string         `json:"xdr"`
		NetworkPassphrase string         `json:"networkPassphrase"`
		Metadata          map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if body.PlayerID == "" || body.XDR == "" {
		writeError(w, http.StatusBadRequest, "playerId and xdr are required")
		return
	}

	s.mu.Lock()
	if s.submitFail != "" {
		reason := s.submitFail
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": reason})
		return
	}
	req := &Request{
		ID:                uuid.NewString(),
		PlayerID:          body.PlayerID,
		Action:            body.Action,
		XDR:               body.XDR,
		NetworkPassphrase: body.NetworkPassphrase,
		Metadata:          body.Metadata,
		Status:            "pending",
		CreatedAt:         time.Now(),
	}
	switch {
	case s.autoSign != "":
		req.Status = "signed"
		req.SignedXDR = "signed:" + body.XDR
		req.WalletAddress = s.autoSign
	case s.autoReject != "":
		req.Status = "rejected"
		req.Error = s.autoReject
	}
	s.requests[req.ID] = req
	s.order = append(s.order, req.ID)
	signerURL := s.publicURL + "/sign/" + req.ID
	s.mu.Unlock()

	s.log.Info("sign request created", "id", req.ID, "action", req.Action, "player", req.PlayerID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "requestId": req.ID, "signerUrl": signerURL})
}

func (s *Server) request(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	req, ok := s.requests[id]
	var view map[string]any
	if ok {
		s.polls[id]++
		view = map[string]any{"status": req.Status}
		if req.SignedXDR != "" {
			view["signedXdr"] = req.SignedXDR
		}
		if req.WalletAddress != "" {
			view["walletAddress"] = req.WalletAddress
		}
		if req.Error != "" {
			view["error"] = req.Error
		}
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, ErrUnknownRequest.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "request": view})
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SignedXDR     string `json:"signedXdr"`
		WalletAddress string `json:"walletAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SignedXDR == "" {
		writeError(w, http.StatusBadRequest, "signedXdr is required")
		return
	}
	if err := s.Complete(chi.URLParam(r, "id"), body.SignedXDR, body.WalletAddress); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Error == "" {
		body.Error = "user rejected"
	}
	if err := s.Reject(chi.URLParam(r, "id"), body.Error); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID string          `json:"playerId"`
		Snapshot json.RawMessage `json:"snapshot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "playerId is required")
		return
	}
	s.mu.Lock()
	s.snapshots[body.PlayerID] = body.Snapshot
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) loadSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap, ok := s.snapshots[chi.URLParam(r, "playerId")]
	s.mu.Unlock()
	resp := map[string]any{"ok": true, "found": ok}
	if ok {
		resp["snapshot"] = snap
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": message})
}
