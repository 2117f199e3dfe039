// Package handlers provides HTTP handlers for the QA assistant API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/supportdesk/qa-assistant/internal/assistant"
	"github.com/supportdesk/qa-assistant/internal/observability"
	"github.com/supportdesk/qa-assistant/internal/storage"
)

// ClarificationMessage is returned when a chat message carries no usable text.
const ClarificationMessage = "I didn't catch a question there. Could you tell me what you need help with?"

var validate = validator.New()

// AssistantHandler handles chat, feedback and statistics requests.
type AssistantHandler struct {
	logger  *observability.Logger
	service *assistant.Service
	variant string
	ready   func(ctx context.Context) error
	reload  func(ctx context.Context) error
}

// NewAssistantHandler creates a new assistant handler. ready and reload may be nil.
func NewAssistantHandler(logger *observability.Logger, service *assistant.Service, variant string, ready, reload func(ctx context.Context) error) *AssistantHandler {
	return &AssistantHandler{
		logger:  logger,
		service: service,
		variant: variant,
		ready:   ready,
		reload:  reload,
	}
}

// ChatRequestDTO is the body of POST /chat.
type ChatRequestDTO struct {
	Message string `json:"message" validate:"max=2000"`
}

// ChatResponseDTO is the response to POST /chat.
type ChatResponseDTO struct {
	ConversationID   string           `json:"conversation_id"`
	Response         string           `json:"response"`
	Confidence       float64          `json:"confidence"`
	RawSimilarity    float64          `json:"raw_similarity"`
	Method           string           `json:"method"`
	Intent           string           `json:"intent,omitempty"`
	IntentConfidence float64          `json:"intent_confidence,omitempty"`
	Category         string           `json:"category"`
	MatchedQuestion  *string          `json:"matched_question"`
	Alternatives     []AlternativeDTO `json:"alternatives,omitempty"`
	LatencyMs        int64            `json:"latency_ms"`
	Status           string           `json:"status"`
}

// AlternativeDTO is a runner-up knowledge base entry.
type AlternativeDTO struct {
	Question   string  `json:"question"`
	Similarity float64 `json:"similarity"`
}

// FeedbackRequestDTO is the body of POST /feedback. Rating is required.
type FeedbackRequestDTO struct {
	Category       string `json:"category" validate:"max=100"`
	Rating         *int   `json:"rating" validate:"required"`
	ConversationID string `json:"conversation_id,omitempty" validate:"omitempty,uuid"`
}

// FeedbackResponseDTO is the response to POST /feedback.
type FeedbackResponseDTO struct {
	Category       string  `json:"category"`
	RunningAverage float64 `json:"running_average"`
	SampleCount    int     `json:"sample_count"`
	Status         string  `json:"status"`
}

// StatsResponseDTO is the response to GET /stats.
type StatsResponseDTO struct {
	Variant            string   `json:"variant"`
	EntryCount         int      `json:"total_qa_pairs"`
	Fitted             bool     `json:"fitted"`
	VocabularySize     int      `json:"vocabulary_size"`
	Threshold          float64  `json:"threshold"`
	FeedbackCategories int      `json:"feedback_categories"`
	Intents            []string `json:"intents,omitempty"`
}

// CategoryStatDTO is one category's learned feedback.
type CategoryStatDTO struct {
	RunningAverage float64 `json:"running_average"`
	SampleCount    int     `json:"sample_count"`
}

// LearningStatsResponseDTO is the response to GET /learning_stats.
type LearningStatsResponseDTO struct {
	TotalConversations int                        `json:"total_conversations"`
	RatedConversations int                        `json:"rated_conversations"`
	AverageRating      float64                    `json:"average_rating"`
	WellRated          int                        `json:"well_rated"`
	Fallbacks          int                        `json:"fallbacks"`
	Categories         map[string]CategoryStatDTO `json:"categories"`
}

// Home handles GET /.
func (h *AssistantHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "QA assistant is running",
		"variant": h.variant,
		"endpoints": map[string]string{
			"chat":           "/chat (POST)",
			"feedback":       "/feedback (POST)",
			"stats":          "/stats (GET)",
			"learning_stats": "/learning_stats (GET)",
			"health":         "/health (GET)",
		},
		"qa_pairs_loaded": h.service.Stats().EntryCount,
	})
}

// Chat handles POST /chat.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid chat request", describe(err))
		return
	}

	resp, err := h.service.Query(ctx, req.Message)
	if errors.Is(err, assistant.ErrEmptyQuery) {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":    "no message provided",
			"response": ClarificationMessage,
			"status":   "clarification",
		})
		return
	}
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Chat query failed")
		h.writeError(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}

	out := ChatResponseDTO{
		ConversationID:   resp.ID.String(),
		Response:         resp.Answer,
		Confidence:       resp.Result.AdjustedConfidence,
		RawSimilarity:    resp.Result.RawSimilarity,
		Method:           string(resp.Result.Method),
		Intent:           resp.Intent,
		IntentConfidence: resp.IntentConfidence,
		Category:         resp.Category,
		LatencyMs:        resp.Latency.Milliseconds(),
		Status:           "success",
	}
	if resp.Result.Entry != nil {
		q := resp.Result.Entry.Question
		out.MatchedQuestion = &q
	}
	for _, alt := range resp.Alternatives {
		out.Alternatives = append(out.Alternatives, AlternativeDTO{Question: alt.Question, Similarity: alt.Similarity})
	}

	h.writeJSON(w, http.StatusOK, out)
}

// Feedback handles POST /feedback. When conversation_id is given the rating
// is also attached to that conversation.
func (h *AssistantHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req FeedbackRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid feedback request", describe(err))
		return
	}

	var conversationID uuid.UUID
	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid conversation_id", err.Error())
			return
		}
		conversationID = id
	}

	stat := h.service.SubmitFeedback(ctx, req.Category, *req.Rating)

	if conversationID != uuid.Nil {
		if err := h.service.RateConversation(ctx, conversationID, *req.Rating); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				h.logger.WithContext(ctx).Debug().Str("conversation_id", conversationID.String()).Msg("Rated conversation not in history")
			} else {
				h.logger.WithContext(ctx).Warn().Err(err).Msg("Failed to rate conversation")
			}
		}
	}

	h.writeJSON(w, http.StatusAccepted, FeedbackResponseDTO{
		Category:       assistant.FeedbackCategory(req.Category),
		RunningAverage: stat.RunningAverage,
		SampleCount:    stat.SampleCount,
		Status:         "accepted",
	})
}

// Stats handles GET /stats.
func (h *AssistantHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.service.Stats()
	h.writeJSON(w, http.StatusOK, StatsResponseDTO{
		Variant:            h.variant,
		EntryCount:         s.EntryCount,
		Fitted:             s.Fitted,
		VocabularySize:     s.VocabularySize,
		Threshold:          s.Threshold,
		FeedbackCategories: s.FeedbackCategories,
		Intents:            h.service.IntentLabels(),
	})
}

// LearningStats handles GET /learning_stats.
func (h *AssistantHandler) LearningStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.service.LearningStats(ctx)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Learning stats failed")
		h.writeError(w, http.StatusInternalServerError, "learning stats unavailable", err.Error())
		return
	}

	out := LearningStatsResponseDTO{
		TotalConversations: stats.TotalConversations,
		RatedConversations: stats.RatedConversations,
		AverageRating:      stats.AverageRating,
		WellRated:          stats.WellRated,
		Fallbacks:          stats.Fallbacks,
		Categories:         make(map[string]CategoryStatDTO, len(stats.Categories)),
	}
	for name, st := range stats.Categories {
		out.Categories[name] = CategoryStatDTO{RunningAverage: st.RunningAverage, SampleCount: st.SampleCount}
	}
	h.writeJSON(w, http.StatusOK, out)
}

// Health handles GET /health.
func (h *AssistantHandler) Health(w http.ResponseWriter, r *http.Request) {
	s := h.service.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"service":         "qa-assistant",
		"qa_pairs_loaded": s.EntryCount,
		"fitted":          s.Fitted,
	})
}

// Ready handles GET /ready.
func (h *AssistantHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "not ready", err.Error())
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Reload handles POST /reload.
func (h *AssistantHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.reload == nil {
		h.writeError(w, http.StatusNotImplemented, "reload unavailable", "")
		return
	}
	if err := h.reload(ctx); err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Reload failed")
		h.writeError(w, http.StatusInternalServerError, "reload failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "reloaded",
		"qa_pairs_loaded": h.service.Stats().EntryCount,
	})
}

// describe flattens validation errors into "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

func (h *AssistantHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to encode response")
	}
}

func (h *AssistantHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
		"status":  "error",
	}
	if detail != "" {
		resp["detail"] = detail
	}
	h.writeJSON(w, status, resp)
}
