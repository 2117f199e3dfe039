package grpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/qa-assistant/internal/assistant"
	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/observability"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	kb, err := knowledge.Load([]knowledge.Row{
		{Question: "payment methods?", Answer: "We accept M-Pesa and cards.", Category: "payments"},
	}, knowledge.Options{})
	require.NoError(t, err)

	svc, err := assistant.NewService(nil, kb, assistant.Config{Threshold: 0.3})
	require.NoError(t, err)

	path, handler := NewAssistantService(observability.NopLogger(), svc).Handler()
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAssistantService_Query(t *testing.T) {
	server := newTestServer(t)
	client := connect.NewClient[QueryRequest, QueryResponse](server.Client(), server.URL+QueryProcedure, ClientOptions()...)

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&QueryRequest{Message: "what payment methods do you accept"}))
	require.NoError(t, err)

	assert.Equal(t, "We accept M-Pesa and cards.", resp.Msg.Response)
	assert.Equal(t, "semantic_similarity", resp.Msg.Method)
	assert.Equal(t, "payment methods?", resp.Msg.MatchedQuestion)
	assert.Equal(t, "payments", resp.Msg.Category)
	assert.NotEmpty(t, resp.Msg.ConversationID)
}

func TestAssistantService_EmptyQuery(t *testing.T) {
	server := newTestServer(t)
	client := connect.NewClient[QueryRequest, QueryResponse](server.Client(), server.URL+QueryProcedure, ClientOptions()...)

	_, err := client.CallUnary(context.Background(), connect.NewRequest(&QueryRequest{Message: "  "}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestAssistantService_FeedbackAndStats(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	fb := connect.NewClient[FeedbackRequest, FeedbackResponse](server.Client(), server.URL+SubmitFeedbackProcedure, ClientOptions()...)
	resp, err := fb.CallUnary(ctx, connect.NewRequest(&FeedbackRequest{Category: "payments", Rating: 5}))
	require.NoError(t, err)
	assert.Equal(t, int32(1), resp.Msg.SampleCount)
	assert.InDelta(t, 1.0, resp.Msg.RunningAverage, 1e-12)

	stats := connect.NewClient[StatsRequest, StatsResponse](server.Client(), server.URL+StatsProcedure, ClientOptions()...)
	sresp, err := stats.CallUnary(ctx, connect.NewRequest(&StatsRequest{}))
	require.NoError(t, err)
	assert.Equal(t, int32(1), sresp.Msg.EntryCount)
	assert.True(t, sresp.Msg.Fitted)
	assert.Equal(t, int32(3), sresp.Msg.VocabularySize)
	assert.Equal(t, int32(1), sresp.Msg.FeedbackCategories)
}

func TestAssistantService_FeedbackDefaultCategory(t *testing.T) {
	server := newTestServer(t)

	fb := connect.NewClient[FeedbackRequest, FeedbackResponse](server.Client(), server.URL+SubmitFeedbackProcedure, ClientOptions()...)
	resp, err := fb.CallUnary(context.Background(), connect.NewRequest(&FeedbackRequest{Rating: 2}))
	require.NoError(t, err)
	assert.Equal(t, knowledge.DefaultCategory, resp.Msg.Category)
	assert.InDelta(t, 0.25, resp.Msg.RunningAverage, 1e-12)
}

func TestAssistantService_PlainJSONPost(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+StatsProcedure, "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
