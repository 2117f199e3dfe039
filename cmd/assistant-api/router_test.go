package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/qa-assistant/internal/api/grpc"
	"github.com/supportdesk/qa-assistant/internal/app"
	"github.com/supportdesk/qa-assistant/internal/config"
	"github.com/supportdesk/qa-assistant/internal/observability"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.csv")
	require.NoError(t, os.WriteFile(path, []byte("question,answer,category\n"+
		"What payment methods do you accept?,\"M-Pesa, cards.\",payments\n"+
		"How long does delivery take?,1-3 business days.,delivery\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.KnowledgeBase.Path = path
	cfg.Server.AllowedOrigins = []string{"https://shop.example"}

	a, err := app.New(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(NewRouter(observability.NopLogger(), a))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/stats", "", http.StatusOK},
		{http.MethodGet, "/learning_stats", "", http.StatusOK},
		{http.MethodPost, "/chat", `{"message":"delivery time"}`, http.StatusOK},
		{http.MethodPost, "/feedback", `{"category":"delivery","rating":5}`, http.StatusAccepted},
		{http.MethodPost, "/api/v1/chat", `{"message":""}`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/stats", "", http.StatusOK},
		{http.MethodPost, "/api/v1/reload", "", http.StatusOK},
		{http.MethodPost, "/reload", "", http.StatusNotFound},
		{http.MethodGet, "/missing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
		})
	}
}

func TestRouter_CORS(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://shop.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_ConnectMounted(t *testing.T) {
	srv := newTestServer(t)

	client := connect.NewClient[grpc.QueryRequest, grpc.QueryResponse](
		srv.Client(), srv.URL+grpc.QueryProcedure, grpc.ClientOptions()...)

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&grpc.QueryRequest{Message: "what payment methods do you accept"}))
	require.NoError(t, err)
	assert.Equal(t, "M-Pesa, cards.", resp.Msg.Response)
	assert.Equal(t, "payments", resp.Msg.Category)
}
