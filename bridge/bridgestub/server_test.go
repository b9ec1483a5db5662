package bridgestub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, s *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestSubmitAndResolveOverHTTP(t *testing.T) {
	s := New(WithPublicURL("http://bridge.test"))

	code, out := do(t, s, http.MethodPost, "/tx/request",
		`{"playerId":"p1","action":"join_game","xdr":"AAAA","networkPassphrase":"net","metadata":{"color":"red"}}`)
	require.Equal(t, http.StatusOK, code)
	id, _ := out["requestId"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "http://bridge.test/sign/"+id, out["signerUrl"])

	_, out = do(t, s, http.MethodGet, "/tx/request/"+id, "")
	assert.Equal(t, "pending", out["request"].(map[string]any)["status"])

	code, _ = do(t, s, http.MethodPost, "/tx/request/"+id+"/complete", `{"signedXdr":"SIGNED","walletAddress":"GA"}`)
	require.Equal(t, http.StatusOK, code)

	_, out = do(t, s, http.MethodGet, "/tx/request/"+id, "")
	view := out["request"].(map[string]any)
	assert.Equal(t, "signed", view["status"])
	assert.Equal(t, "SIGNED", view["signedXdr"])
	assert.Equal(t, 2, s.Polls(id))
}

func TestRejectDefaultsReason(t *testing.T) {
	s := New()
	_, out := do(t, s, http.MethodPost, "/tx/request", `{"playerId":"p1","action":"submit_vote","xdr":"AAAA"}`)
	id := out["requestId"].(string)

	code, _ := do(t, s, http.MethodPost, "/tx/request/"+id+"/reject", `{}`)
	require.Equal(t, http.StatusOK, code)

	reqs := s.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "rejected", reqs[0].Status)
	assert.Equal(t, "user rejected", reqs[0].Error)
}

func TestUnknownRequest(t *testing.T) {
	s := New()
	code, out := do(t, s, http.MethodGet, "/tx/request/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, out["ok"])
	assert.ErrorIs(t, s.Complete("nope", "x", "y"), ErrUnknownRequest)
}

func TestAutoLinkOnConnect(t *testing.T) {
	s := New(WithAutoLink("GAUTO"))

	_, out := do(t, s, http.MethodGet, "/wallet/account?playerId=p1", "")
	assert.Equal(t, false, out["connected"])

	_, out = do(t, s, http.MethodPost, "/wallet/connect", `{"playerId":"p1","displayName":"Alice"}`)
	assert.Equal(t, true, out["ok"])

	_, out = do(t, s, http.MethodGet, "/wallet/account?playerId=p1", "")
	assert.Equal(t, true, out["connected"])
	assert.Equal(t, "GAUTO", out["address"])
}

func TestMissingFieldsAreRejected(t *testing.T) {
	s := New()
	code, _ := do(t, s, http.MethodPost, "/tx/request", `{"action":"join_game"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, s, http.MethodGet, "/wallet/account", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, s.Requests())
}
