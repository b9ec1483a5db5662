package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/luca-patrignani/chainplay/metrics"
)

// DefaultURL is where a locally started bridge listens.
const DefaultURL = "http://127.0.0.1:8789"

// Client talks to one wallet bridge. It is safe for concurrent use.
type Client struct {
	baseURL string
	get     *http.Client
	post    *http.Client
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(Client) Client

// NewClient returns a client for the bridge at baseURL. Reads time out
// after 5s and writes after 10s unless overridden.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		get:     &http.Client{Timeout: 5 * time.Second},
		post:    &http.Client{Timeout: 10 * time.Second},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		c = opt(c)
	}
	return &c
}

// WithGetTimeout bounds GET requests.
func WithGetTimeout(timeout time.Duration) Option {
	return func(c Client) Client {
		c.get = &http.Client{Timeout: timeout, Transport: c.get.Transport}
		return c
	}
}

// WithPostTimeout bounds POST requests.
func WithPostTimeout(timeout time.Duration) Option {
	return func(c Client) Client {
		c.post = &http.Client{Timeout: timeout, Transport: c.post.Transport}
		return c
	}
}

// WithTransport replaces the HTTP transport of both reads and writes.
func WithTransport(rt http.RoundTripper) Option {
	return func(c Client) Client {
		c.get = &http.Client{Timeout: c.get.Timeout, Transport: rt}
		c.post = &http.Client{Timeout: c.post.Timeout, Transport: rt}
		return c
	}
}

// WithLogger sets the logger; nil keeps slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(c Client) Client {
		if log != nil {
			c.log = log
		}
		return c
	}
}

// WithMetrics records every bridge call in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c Client) Client {
		c.metrics = m
		return c
	}
}

// BaseURL returns the bridge address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health reports the bridge's own view of its health.
func (c *Client) Health(ctx context.Context) (bool, error) {
	var resp envelope
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, &resp); err != nil {
		return false, err
	}
	return resp.OK, nil
}

// Account returns the wallet linked to playerID.
func (c *Client) Account(ctx context.Context, playerID string) (Account, error) {
	var resp accountResponse
	path := "/wallet/account?playerId=" + url.QueryEscape(playerID)
	if err := c.do(ctx, "wallet_account", http.MethodGet, path, nil, &resp); err != nil {
		return Account{}, err
	}
	if !resp.OK {
		return Account{}, &BridgeError{Op: "wallet_account", Err: errors.New(resp.failure())}
	}
	return resp.Account, nil
}

// ConnectPlayer opens a wallet-connect handshake and returns the URL the
// player must visit to approve it.
func (c *Client) ConnectPlayer(ctx context.Context, playerID, displayName string) (string, error) {
	var resp connectResponse
	body := connectRequest{PlayerID: playerID, DisplayName: displayName}
	if err := c.do(ctx, "wallet_connect", http.MethodPost, "/wallet/connect", body, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", &BridgeError{Op: "wallet_connect", Err: errors.New(resp.failure())}
	}
	return resp.ConnectURL, nil
}

// Submit creates a sign request and returns its id and the signer page URL.
func (c *Client) Submit(ctx context.Context, params SignParams) (requestID, signerURL string, err error) {
	if params.Metadata == nil {
		params.Metadata = map[string]any{}
	}
	var resp submitResponse
	if err := c.do(ctx, "tx_request", http.MethodPost, "/tx/request", params, &resp); err != nil {
		return "", "", err
	}
	if !resp.OK {
		return "", "", &BridgeError{Op: "tx_request", Err: errors.New(resp.failure())}
	}
	if resp.RequestID == "" {
		return "", "", &BridgeError{Op: "tx_request", Err: errors.New("response carries no requestId")}
	}
	return resp.RequestID, resp.SignerURL, nil
}

// SignRequest fetches the current state of a sign request.
func (c *Client) SignRequest(ctx context.Context, id string) (SignRequest, error) {
	var resp signRequestResponse
	if err := c.do(ctx, "tx_status", http.MethodGet, "/tx/request/"+url.PathEscape(id), nil, &resp); err != nil {
		return SignRequest{}, err
	}
	if !resp.OK {
		return SignRequest{}, &BridgeError{Op: "tx_status", Err: errors.New(resp.failure())}
	}
	req := resp.Request
	req.ID = id
	return req, nil
}

// SaveSnapshot stores an opaque game snapshot for playerID.
func (c *Client) SaveSnapshot(ctx context.Context, playerID string, snapshot any) error {
	var resp envelope
	body := snapshotRequest{PlayerID: playerID, Snapshot: snapshot}
	if err := c.do(ctx, "snapshot_save", http.MethodPost, "/game/snapshot", body, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return &BridgeError{Op: "snapshot_save", Err: errors.New(resp.failure())}
	}
	return nil
}

// LoadSnapshot returns the stored snapshot for playerID, if any.
func (c *Client) LoadSnapshot(ctx context.Context, playerID string) (json.RawMessage, bool, error) {
	var resp snapshotResponse
	if err := c.do(ctx, "snapshot_load", http.MethodGet, "/game/snapshot/"+url.PathEscape(playerID), nil, &resp); err != nil {
		return nil, false, err
	}
	if !resp.OK {
		return nil, false, &BridgeError{Op: "snapshot_load", Err: errors.New(resp.failure())}
	}
	return resp.Snapshot, resp.Found, nil
}

// do sends body as JSON (when non-nil) and decodes the answer into out.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	started := time.Now()
	defer func() {
		c.metrics.BridgeCall(op, err, time.Since(started))
	}()

	client := c.get
	var reader io.Reader
	if body != nil {
		client = c.post
		b, err := json.Marshal(body)
		if err != nil {
			return &BridgeError{Op: op, Err: err}
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &BridgeError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return &BridgeError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &BridgeError{Op: op, Err: err}
	}
	if resp.StatusCode >= 400 {
		var e envelope
		_ = json.Unmarshal(data, &e)
		return &BridgeError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, e.failure())}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &BridgeError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	c.log.Debug("bridge call", "op", op, "status", resp.StatusCode, "elapsed", time.Since(started))
	return nil
}
