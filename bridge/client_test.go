package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luca-patrignani/chainplay/bridge/bridgestub"
)

const testPassphrase = "Test SDF Network ; September 2015"

func newStubClient(t *testing.T, opts ...bridgestub.Option) (*bridgestub.Server, *Client) {
	t.Helper()
	stub := bridgestub.New(opts...)
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return stub, NewClient(srv.URL)
}

func signParams(action string) SignParams {
	return SignParams{
		PlayerID:          "player-1",
		Action:            action,
		XDR:               "AAAA" + action,
		NetworkPassphrase: testPassphrase,
		Metadata:          map[string]any{"task_id": 3},
	}
}

func TestHealth(t *testing.T) {
	stub, c := newStubClient(t)

	ok, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	stub.SetHealthy(false)
	_, err = c.Health(context.Background())
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "health", be.Op)
}

func TestAccountAndConnect(t *testing.T) {
	stub, c := newStubClient(t)
	ctx := context.Background()

	acct, err := c.Account(ctx, "player 1")
	require.NoError(t, err)
	assert.False(t, acct.Connected)

	connectURL, err := c.ConnectPlayer(ctx, "player 1", "Alice")
	require.NoError(t, err)
	assert.Contains(t, connectURL, "playerId=player+1")
	assert.Equal(t, []string{"player 1"}, stub.Connects())

	stub.LinkWallet("player 1", "GABCDEFGHIJK")
	acct, err = c.Account(ctx, "player 1")
	require.NoError(t, err)
	assert.True(t, acct.Connected)
	assert.Equal(t, "GABCDEFGHIJK", acct.Address)
}

func TestSubmitCreatesRequest(t *testing.T) {
	stub, c := newStubClient(t)

	id, signerURL, err := c.Submit(context.Background(), signParams("complete_task"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Contains(t, signerURL, id)

	reqs := stub.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "complete_task", reqs[0].Action)
	assert.Equal(t, testPassphrase, reqs[0].NetworkPassphrase)
	assert.EqualValues(t, 3, reqs[0].Metadata["task_id"])
}

func TestSubmitOkFalseIsBridgeError(t *testing.T) {
	stub, c := newStubClient(t)
	stub.FailSubmissions("player unknown")

	_, _, err := c.Submit(context.Background(), signParams("join_game"))
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "tx_request", be.Op)
	assert.Contains(t, err.Error(), "player unknown")
}

func TestSubmitWithoutRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL).Submit(context.Background(), signParams("join_game"))
	var be *BridgeError
	require.ErrorAs(t, err, &be)
}

func TestSubmitUnreachableBridge(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, _, err := NewClient(addr, WithPostTimeout(time.Second)).Submit(context.Background(), signParams("join_game"))
	var be *BridgeError
	require.ErrorAs(t, err, &be)
}

func TestAwaitResolutionSignedStopsPolling(t *testing.T) {
	stub, c := newStubClient(t)
	ctx := context.Background()

	id, _, err := c.Submit(ctx, signParams("submit_vote"))
	require.NoError(t, err)

	go func() {
		time.Sleep(40 * time.Millisecond)
		_ = stub.Complete(id, "signed-xdr", "GWALLET")
	}()

	req, err := c.AwaitResolution(ctx, id, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, Signed, req.Status)
	assert.Equal(t, "signed-xdr", req.SignedXDR)
	assert.Equal(t, "GWALLET", req.WalletAddress)

	polls := stub.Polls(id)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polls, stub.Polls(id), "no poll after the terminal status")
}

func TestAwaitResolutionRejected(t *testing.T) {
	_, c := newStubClient(t, bridgestub.WithAutoReject("user declined"))
	ctx := context.Background()

	id, _, err := c.Submit(ctx, signParams("kill_player"))
	require.NoError(t, err)

	req, err := c.AwaitResolution(ctx, id, time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, Rejected, req.Status)
	assert.Equal(t, "user declined", req.Error)
}

func TestAwaitResolutionTimesOutAtDeadline(t *testing.T) {
	stub, c := newStubClient(t)
	ctx := context.Background()

	id, _, err := c.Submit(ctx, signParams("complete_task"))
	require.NoError(t, err)

	timeout := 120 * time.Millisecond
	interval := 20 * time.Millisecond
	started := time.Now()
	req, err := c.AwaitResolution(ctx, id, timeout, interval)
	elapsed := time.Since(started)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, id, te.RequestID)
	assert.Equal(t, Pending, req.Status)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+interval+150*time.Millisecond)

	// the local wait ended, the bridge still holds the request
	reqs := stub.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "pending", reqs[0].Status)
}

func TestAwaitResolutionUnknownRequest(t *testing.T) {
	_, c := newStubClient(t)

	_, err := c.AwaitResolution(context.Background(), "missing", time.Second, 10*time.Millisecond)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "tx_status", be.Op)
}

func TestAwaitResolutionHonoursContext(t *testing.T) {
	_, c := newStubClient(t)
	id, _, err := c.Submit(context.Background(), signParams("call_meeting"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.AwaitResolution(ctx, id, time.Minute, 10*time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	stub, c := newStubClient(t)
	ctx := context.Background()

	_, found, err := c.LoadSnapshot(ctx, "player-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SaveSnapshot(ctx, "player-1", map[string]int{"tasks": 4}))
	raw, found, err := c.LoadSnapshot(ctx, "player-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"tasks":4}`, string(raw))
	assert.Equal(t, []string{"player-1"}, stub.Players())
}
