// Package client provides the public Go SDK for the QA assistant HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyMessage is returned when the server asks for clarification because
// the message had no usable words.
var ErrEmptyMessage = errors.New("message has no usable words")

// Client calls the assistant API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a new assistant client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/api/v1",
		httpClient: hc,
	}
}

// ChatResponse is the assistant's answer.
type ChatResponse struct {
	ConversationID   string        `json:"conversation_id"`
	Response         string        `json:"response"`
	Confidence       float64       `json:"confidence"`
	RawSimilarity    float64       `json:"raw_similarity"`
	Method           string        `json:"method"`
	Intent           string        `json:"intent,omitempty"`
	IntentConfidence float64       `json:"intent_confidence,omitempty"`
	Category         string        `json:"category"`
	MatchedQuestion  *string       `json:"matched_question"`
	Alternatives     []Alternative `json:"alternatives,omitempty"`
	LatencyMs        int64         `json:"latency_ms"`
	Status           string        `json:"status"`
}

// Matched reports whether the answer came from the knowledge base.
func (r *ChatResponse) Matched() bool {
	return r.Method == "semantic_similarity"
}

// Alternative is a runner-up knowledge base question.
type Alternative struct {
	Question   string  `json:"question"`
	Similarity float64 `json:"similarity"`
}

// FeedbackRequest rates an answer. ConversationID is optional.
type FeedbackRequest struct {
	Category       string `json:"category"`
	Rating         int    `json:"rating"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// FeedbackResponse is the category's updated feedback state.
type FeedbackResponse struct {
	Category       string  `json:"category"`
	RunningAverage float64 `json:"running_average"`
	SampleCount    int     `json:"sample_count"`
	Status         string  `json:"status"`
}

// StatsResponse describes the loaded knowledge base.
type StatsResponse struct {
	Variant            string   `json:"variant"`
	EntryCount         int      `json:"total_qa_pairs"`
	Fitted             bool     `json:"fitted"`
	VocabularySize     int      `json:"vocabulary_size"`
	Threshold          float64  `json:"threshold"`
	FeedbackCategories int      `json:"feedback_categories"`
	Intents            []string `json:"intents,omitempty"`
}

// CategoryStat is one category's learned feedback.
type CategoryStat struct {
	RunningAverage float64 `json:"running_average"`
	SampleCount    int     `json:"sample_count"`
}

// LearningStatsResponse summarizes conversations and feedback.
type LearningStatsResponse struct {
	TotalConversations int                     `json:"total_conversations"`
	RatedConversations int                     `json:"rated_conversations"`
	AverageRating      float64                 `json:"average_rating"`
	WellRated          int                     `json:"well_rated"`
	Fallbacks          int                     `json:"fallbacks"`
	Categories         map[string]CategoryStat `json:"categories"`
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("assistant api: %d %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("assistant api: %d %s", e.StatusCode, e.Message)
}

// Chat asks a question.
func (c *Client) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", map[string]string{"message": message}, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest && apiErr.Message == "no message provided" {
			return nil, fmt.Errorf("%w: %s", ErrEmptyMessage, apiErr.Message)
		}
		return nil, err
	}
	return &resp, nil
}

// Feedback rates an answer's category.
func (c *Client) Feedback(ctx context.Context, req FeedbackRequest) (*FeedbackResponse, error) {
	var resp FeedbackResponse
	if err := c.do(ctx, http.MethodPost, "/feedback", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns knowledge base statistics.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LearningStats returns conversation and feedback statistics.
func (c *Client) LearningStats(ctx context.Context) (*LearningStatsResponse, error) {
	var resp LearningStatsResponse
	if err := c.do(ctx, http.MethodGet, "/learning_stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns nil when the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Reload asks the server to re-read its knowledge base.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reload", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
