// Package grpc provides the Connect service for the QA assistant.
package grpc

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/supportdesk/qa-assistant/internal/assistant"
	"github.com/supportdesk/qa-assistant/internal/observability"
)

// Procedure names.
const (
	ServiceName             = "support.v1.AssistantService"
	QueryProcedure          = "/" + ServiceName + "/Query"
	SubmitFeedbackProcedure = "/" + ServiceName + "/SubmitFeedback"
	StatsProcedure          = "/" + ServiceName + "/Stats"
)

// AssistantService implements the Connect assistant service.
type AssistantService struct {
	logger  *observability.Logger
	service *assistant.Service
}

// NewAssistantService creates a new assistant service.
func NewAssistantService(logger *observability.Logger, service *assistant.Service) *AssistantService {
	return &AssistantService{
		logger:  logger,
		service: service,
	}
}

// QueryRequest is the Query request message.
type QueryRequest struct {
	Message string `json:"message"`
}

// QueryResponse is the Query response message.
type QueryResponse struct {
	ConversationID   string         `json:"conversation_id"`
	Response         string         `json:"response"`
	Method           string         `json:"method"`
	Confidence       float64        `json:"confidence"`
	RawSimilarity    float64        `json:"raw_similarity"`
	MatchedIndex     int32          `json:"matched_index"`
	MatchedQuestion  string         `json:"matched_question,omitempty"`
	Category         string         `json:"category"`
	Intent           string         `json:"intent,omitempty"`
	IntentConfidence float64        `json:"intent_confidence,omitempty"`
	Alternatives     []*Alternative `json:"alternatives,omitempty"`
	LatencyMs        int64          `json:"latency_ms"`
}

// Alternative is a runner-up entry.
type Alternative struct {
	Question   string  `json:"question"`
	Similarity float64 `json:"similarity"`
}

// FeedbackRequest is the SubmitFeedback request message.
type FeedbackRequest struct {
	Category string `json:"category"`
	Rating   int32  `json:"rating"`
}

// FeedbackResponse is the SubmitFeedback response message.
type FeedbackResponse struct {
	Category       string  `json:"category"`
	RunningAverage float64 `json:"running_average"`
	SampleCount    int32   `json:"sample_count"`
}

// StatsRequest is the Stats request message.
type StatsRequest struct{}

// StatsResponse is the Stats response message.
type StatsResponse struct {
	EntryCount         int32   `json:"entry_count"`
	Fitted             bool    `json:"fitted"`
	VocabularySize     int32   `json:"vocabulary_size"`
	Threshold          float64 `json:"threshold"`
	FeedbackCategories int32   `json:"feedback_categories"`
}

// Query answers a message.
func (s *AssistantService) Query(ctx context.Context, req *connect.Request[QueryRequest]) (*connect.Response[QueryResponse], error) {
	resp, err := s.service.Query(ctx, req.Msg.Message)
	if errors.Is(err, assistant.ErrEmptyQuery) {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err != nil {
		s.logger.WithContext(ctx).Error().Err(err).Msg("Query failed")
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	out := &QueryResponse{
		ConversationID:   resp.ID.String(),
		Response:         resp.Answer,
		Method:           string(resp.Result.Method),
		Confidence:       resp.Result.AdjustedConfidence,
		RawSimilarity:    resp.Result.RawSimilarity,
		MatchedIndex:     int32(resp.Result.Index),
		Category:         resp.Category,
		Intent:           resp.Intent,
		IntentConfidence: resp.IntentConfidence,
		LatencyMs:        resp.Latency.Milliseconds(),
	}
	if resp.Result.Entry != nil {
		out.MatchedQuestion = resp.Result.Entry.Question
	}
	for _, alt := range resp.Alternatives {
		out.Alternatives = append(out.Alternatives, &Alternative{Question: alt.Question, Similarity: alt.Similarity})
	}

	return connect.NewResponse(out), nil
}

// SubmitFeedback records a rating for a category.
func (s *AssistantService) SubmitFeedback(ctx context.Context, req *connect.Request[FeedbackRequest]) (*connect.Response[FeedbackResponse], error) {
	stat := s.service.SubmitFeedback(ctx, req.Msg.Category, int(req.Msg.Rating))

	return connect.NewResponse(&FeedbackResponse{
		Category:       assistant.FeedbackCategory(req.Msg.Category),
		RunningAverage: stat.RunningAverage,
		SampleCount:    int32(stat.SampleCount),
	}), nil
}

// Stats reports knowledge base statistics.
func (s *AssistantService) Stats(ctx context.Context, _ *connect.Request[StatsRequest]) (*connect.Response[StatsResponse], error) {
	stats := s.service.Stats()
	return connect.NewResponse(&StatsResponse{
		EntryCount:         int32(stats.EntryCount),
		Fitted:             stats.Fitted,
		VocabularySize:     int32(stats.VocabularySize),
		Threshold:          stats.Threshold,
		FeedbackCategories: int32(stats.FeedbackCategories),
	}), nil
}

// Handler returns the service's path prefix and handler for mounting on a mux.
func (s *AssistantService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(QueryProcedure, connect.NewUnaryHandler(QueryProcedure, s.Query, opts...))
	mux.Handle(SubmitFeedbackProcedure, connect.NewUnaryHandler(SubmitFeedbackProcedure, s.SubmitFeedback, opts...))
	mux.Handle(StatsProcedure, connect.NewUnaryHandler(StatsProcedure, s.Stats, opts...))

	return "/" + ServiceName + "/", mux
}

// ClientOptions returns the options a Connect client needs to talk to Handler.
func ClientOptions() []connect.ClientOption {
	return []connect.ClientOption{connect.WithCodec(jsonCodec{})}
}
