package auditapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/tos-network/gaudit/audit"
	"github.com/tos-network/gaudit/consensus/bft"
	"github.com/tos-network/gaudit/core/types"
)

func newTestAPI(t *testing.T, reg *prometheus.Registry) (*API, *audit.Service) {
	t.Helper()
	cfg := audit.Defaults
	cfg.Store = audit.StoreMemory
	cfg.KeySeed = t.Name()
	cfg.Users = append(append([]audit.User(nil), cfg.Users...), audit.User{Name: "auditor", Role: audit.RoleAuthority})

	var (
		r prometheus.Registerer
		g prometheus.Gatherer
	)
	if reg != nil {
		r, g = reg, reg
	}
	svc, err := audit.New(cfg, r)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	api, err := New(svc, r, g)
	require.NoError(t, err)
	return api, svc
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

const intakeBody = `{"batch":"LOT-9","responsible":"maria","stage":"Packing"}`

func TestSubmitSignFlow(t *testing.T) {
	api, _ := newTestAPI(t, nil)

	rec := do(t, api, http.MethodPost, "/tx", "alice", intakeBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var view bft.PendingView
	decodeBody(t, rec, &view)
	require.Equal(t, uint64(1), view.ID)
	require.Equal(t, "Packing", view.Stage)

	rec = do(t, api, http.MethodGet, "/pending", "validator_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []bft.PendingView
	decodeBody(t, rec, &pending)
	require.Len(t, pending, 1)

	for i, want := range []string{bft.StatusWaiting, bft.StatusWaiting, bft.StatusWaiting, bft.StatusAccepted} {
		rec = do(t, api, http.MethodPost, "/pending/1/sign", "validator_"+string(rune('1'+i)), "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res bft.Result
		decodeBody(t, rec, &res)
		require.Equal(t, want, res.Status)
	}

	rec = do(t, api, http.MethodGet, "/chain", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var chain []*types.Block
	decodeBody(t, rec, &chain)
	require.Len(t, chain, 2)
	require.Equal(t, types.StatusAccepted, chain[1].Status())
	require.True(t, chain[1].HashValid())

	rec = do(t, api, http.MethodGet, "/chain/valid", "", "")
	var v validity
	decodeBody(t, rec, &v)
	require.True(t, v.Valid)
	require.Equal(t, 2, v.Length)
	require.Equal(t, chain[1].Hash.Hex(), v.Head)
}

func TestErrorStatusCodes(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	require.Equal(t, http.StatusCreated, do(t, api, http.MethodPost, "/tx", "alice", intakeBody).Code)
	require.Equal(t, http.StatusOK, do(t, api, http.MethodPost, "/pending/1/sign", "validator_1", "").Code)

	tests := []struct {
		name, method, path, user, body string
		code                           int
	}{
		{"no identity", http.MethodPost, "/tx", "", intakeBody, http.StatusUnauthorized},
		{"unknown user", http.MethodGet, "/pending", "mallory", "", http.StatusUnauthorized},
		{"submitter lists pending", http.MethodGet, "/pending", "alice", "", http.StatusForbidden},
		{"submitter signs", http.MethodPost, "/pending/1/sign", "alice", "", http.StatusForbidden},
		{"authority submits", http.MethodPost, "/tx", "validator_1", intakeBody, http.StatusForbidden},
		{"missing proposal", http.MethodPost, "/pending/9/sign", "validator_2", "", http.StatusNotFound},
		{"duplicate signature", http.MethodPost, "/pending/1/sign", "validator_1", "", http.StatusConflict},
		{"authority without key", http.MethodPost, "/pending/1/sign", "auditor", "", http.StatusBadRequest},
		{"bad proposal id", http.MethodPost, "/pending/x/sign", "validator_2", "", http.StatusBadRequest},
		{"incomplete intake", http.MethodPost, "/tx", "alice", `{"batch":"LOT-1"}`, http.StatusBadRequest},
		{"malformed intake", http.MethodPost, "/tx", "alice", `{"batch":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/tx", "alice", `{"batch":"a","responsible":"b","stage":"c","owner":"d"}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/tx", "alice", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, api, tt.method, tt.path, tt.user, tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusMethodNotAllowed {
				var e errorResponse
				decodeBody(t, rec, &e)
				require.NotEmpty(t, e.Error)
			}
		})
	}
}

func TestRejectEndpoint(t *testing.T) {
	api, svc := newTestAPI(t, nil)
	require.Equal(t, http.StatusCreated, do(t, api, http.MethodPost, "/tx", "maria", intakeBody).Code)

	rec := do(t, api, http.MethodPost, "/pending/1/reject", "validator_4", `{"reason":"missing paperwork"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res bft.Result
	decodeBody(t, rec, &res)
	require.Equal(t, bft.StatusRejected, res.Status)

	chain := svc.Chain()
	require.Len(t, chain, 2)
	require.Equal(t, "missing paperwork", chain[1].Certificate.Reason)

	rec = do(t, api, http.MethodGet, "/chain/rejected", "", "")
	require.Equal(t, "[]\n", rec.Body.String())
	require.Equal(t, http.StatusNotFound, do(t, api, http.MethodPost, "/pending/1/reject", "validator_4", "").Code)
}

func TestSessionCookieIdentity(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/tx", strings.NewReader(intakeBody))
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "alice"})
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestValidatorsEndpoint(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	rec := do(t, api, http.MethodGet, "/validators", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var vals []validatorInfo
	decodeBody(t, rec, &vals)
	require.Len(t, vals, 8)
	require.Equal(t, "validator_1", vals[0].ID)
	require.True(t, vals[0].IsValidator)
	require.Equal(t, "node_1", vals[5].ID)
	require.False(t, vals[5].IsValidator)
	require.Len(t, vals[0].PublicKey, 64)
}

func TestMetricsEndpoint(t *testing.T) {
	api, _ := newTestAPI(t, prometheus.NewRegistry())
	require.Equal(t, http.StatusCreated, do(t, api, http.MethodPost, "/tx", "alice", intakeBody).Code)

	rec := do(t, api, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `gaudit_api_requests_total{code="201",route="/tx"} 1`)
	require.Contains(t, body, "gaudit_bft_proposals_total 1")
	require.Contains(t, body, "gaudit_chain_length 1")
}

func TestCORSPreflight(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	h := api.Handler([]string{"https://audit.example"})

	req := httptest.NewRequest(http.MethodOptions, "/tx", nil)
	req.Header.Set("Origin", "https://audit.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", UserHeader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "https://audit.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeListenerShutdown(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, DefaultConfig, listener, api) }()

	resp, err := http.Post("http://"+listener.Addr().String()+"/tx", "application/json", bytes.NewBufferString(intakeBody))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
