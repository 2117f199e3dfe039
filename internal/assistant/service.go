// Package assistant answers support questions from a knowledge base and
// adapts match confidence from user feedback.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/qa-assistant/internal/cache"
	"github.com/supportdesk/qa-assistant/internal/feedback"
	"github.com/supportdesk/qa-assistant/internal/intent"
	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/matcher"
	"github.com/supportdesk/qa-assistant/internal/observability"
	"github.com/supportdesk/qa-assistant/internal/storage"
)

// ErrEmptyQuery is returned when a query normalizes to nothing.
var ErrEmptyQuery = errors.New("query is empty")

// Default fallback answers per variant.
const (
	MarketplaceFallback = "I'm sorry, I don't have a specific answer for that question. Could you please rephrase or ask about pricing, delivery, payment options, returns, or seller information?"
	HospitalFallback    = "I'm sorry, I don't have a specific answer for that question. You can ask me about appointments, visiting hours, departments, insurance, or pharmacy services."
)

// FallbackFor returns the default fallback answer for a variant.
func FallbackFor(variant string) string {
	if variant == "hospital" {
		return HospitalFallback
	}
	return MarketplaceFallback
}

// FeedbackCheckpoints persists feedback state.
// storage.FeedbackRepository satisfies it.
type FeedbackCheckpoints interface {
	Upsert(ctx context.Context, cp *storage.FeedbackCheckpoint) error
	List(ctx context.Context) ([]*storage.FeedbackCheckpoint, error)
}

// Config wires a Service. Only Threshold is required; nil dependencies are
// replaced with in-memory defaults.
type Config struct {
	Variant        string
	Threshold      float64
	FallbackAnswer string
	Alternatives   int
	CacheTTL       time.Duration

	// StaticConfidence reports raw similarity as confidence; feedback is
	// still recorded.
	StaticConfidence bool

	Feedback    *feedback.Store
	Cache       cache.Client
	History     ConversationStore
	Checkpoints FeedbackCheckpoints
	Intents     IntentSource
}

// Response is the outcome of one query.
type Response struct {
	ID               uuid.UUID
	Answer           string
	Result           matcher.QueryResult
	Intent           string
	IntentConfidence float64
	Category         string
	Alternatives     []Alternative
	Latency          time.Duration
}

// Alternative is a runner-up knowledge base entry.
type Alternative struct {
	Index      int     `json:"index"`
	Question   string  `json:"question"`
	Similarity float64 `json:"similarity"`
}

// Stats describes the loaded knowledge base.
type Stats struct {
	EntryCount         int
	Fitted             bool
	VocabularySize     int
	Threshold          float64
	FeedbackCategories int
}

// LearningStats summarizes conversations and learned feedback.
type LearningStats struct {
	storage.LearningStats
	Categories map[string]feedback.Stat
}

// snapshot is the knowledge base and everything derived from it. A reload
// replaces it as a whole.
type snapshot struct {
	kb         *knowledge.KnowledgeBase
	classifier *intent.Classifier
	generation string
}

// cachedMatch is the cacheable, feedback-independent part of a response.
type cachedMatch struct {
	Index            int           `json:"index"`
	RawSimilarity    float64       `json:"raw_similarity"`
	Intent           string        `json:"intent,omitempty"`
	IntentConfidence float64       `json:"intent_confidence,omitempty"`
	Alternatives     []Alternative `json:"alternatives,omitempty"`
}

// Service is safe for concurrent use.
type Service struct {
	logger *observability.Logger
	cfg    Config

	current atomic.Pointer[snapshot]
}

// NewService builds a Service over kb.
func NewService(logger *observability.Logger, kb *knowledge.KnowledgeBase, cfg Config) (*Service, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.FallbackAnswer == "" {
		cfg.FallbackAnswer = FallbackFor(cfg.Variant)
	}
	if cfg.Alternatives < 0 {
		cfg.Alternatives = 0
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Feedback == nil {
		cfg.Feedback = feedback.NewStore(feedback.DefaultOptions())
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NopClient{}
	}
	if cfg.History == nil {
		cfg.History = NewMemoryHistory(1000)
	}

	s := &Service{
		logger: logger.WithVariant(cfg.Variant),
		cfg:    cfg,
	}

	snap, err := s.prepare(kb)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)

	return s, nil
}

func (s *Service) prepare(kb *knowledge.KnowledgeBase) (*snapshot, error) {
	if kb == nil || kb.Len() == 0 {
		return nil, knowledge.ErrEmptyKnowledgeBase
	}

	snap := &snapshot{kb: kb, generation: uuid.NewString()}
	if s.cfg.Intents != nil {
		classifier, err := s.cfg.Intents(kb)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Intent classifier unavailable")
		} else {
			snap.classifier = classifier
		}
	}
	return snap, nil
}

// Query answers text from the current knowledge base.
func (s *Service) Query(ctx context.Context, text string) (*Response, error) {
	start := time.Now()
	snap := s.current.Load()

	normalized := snap.kb.Normalize(text)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}

	match, err := s.match(ctx, snap, normalized)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Intent:           match.Intent,
		IntentConfidence: match.IntentConfidence,
		Alternatives:     match.Alternatives,
		Result: matcher.QueryResult{
			Index:              -1,
			RawSimilarity:      match.RawSimilarity,
			AdjustedConfidence: match.RawSimilarity,
			Method:             matcher.MethodFallback,
		},
	}

	if match.Index >= 0 {
		entry := snap.kb.Entry(match.Index)
		resp.Category = entry.Label()
		resp.Answer = entry.Answer
		resp.Result.Entry = entry
		resp.Result.Index = match.Index
		resp.Result.Method = matcher.MethodSemanticSimilarity
		if !s.cfg.StaticConfidence {
			resp.Result.AdjustedConfidence = s.cfg.Feedback.AdjustConfidence(match.RawSimilarity, resp.Category)
		}
	} else {
		resp.Answer = s.cfg.FallbackAnswer
		resp.Category = knowledge.DefaultCategory
		if match.Intent != "" && match.Intent != intent.LowConfidence {
			resp.Category = match.Intent
		}
	}

	resp.ID = s.record(ctx, text, resp)
	resp.Latency = time.Since(start)

	s.logger.WithContext(ctx).Debug().
		Str("method", string(resp.Result.Method)).
		Int("index", resp.Result.Index).
		Float64("raw_similarity", resp.Result.RawSimilarity).
		Float64("confidence", resp.Result.AdjustedConfidence).
		Str("intent", resp.Intent).
		Dur("latency", resp.Latency).
		Msg("Query answered")

	return resp, nil
}

func (s *Service) match(ctx context.Context, snap *snapshot, normalized string) (*cachedMatch, error) {
	key := cache.AnswerKey(snap.generation, strconv.FormatFloat(s.cfg.Threshold, 'f', -1, 64), normalized)
	if data, err := s.cfg.Cache.Get(ctx, key); err == nil {
		var cached cachedMatch
		if err := json.Unmarshal(data, &cached); err == nil && cached.Index < snap.kb.Len() {
			return &cached, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WithContext(ctx).Warn().Err(err).Msg("Cache read failed")
	}

	vec, err := snap.kb.Embed(normalized)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	result := matcher.Match(vec, snap.kb, s.cfg.Threshold)
	match := &cachedMatch{Index: result.Index, RawSimilarity: result.RawSimilarity}

	if s.cfg.Alternatives > 0 {
		for _, c := range matcher.Rank(vec, snap.kb, s.cfg.Alternatives+1) {
			if c.Index == result.Index || c.Similarity <= 0 || len(match.Alternatives) == s.cfg.Alternatives {
				continue
			}
			match.Alternatives = append(match.Alternatives, Alternative{
				Index:      c.Index,
				Question:   c.Entry.Question,
				Similarity: c.Similarity,
			})
		}
	}

	if snap.classifier != nil {
		match.Intent, match.IntentConfidence = snap.classifier.Classify(vec)
	}

	if data, err := json.Marshal(match); err == nil {
		if err := s.cfg.Cache.Set(ctx, key, data, s.cfg.CacheTTL); err != nil {
			s.logger.WithContext(ctx).Warn().Err(err).Msg("Cache write failed")
		}
	}

	return match, nil
}

func (s *Service) record(ctx context.Context, query string, resp *Response) uuid.UUID {
	c := &storage.Conversation{
		ID:            uuid.New(),
		Query:         query,
		Response:      resp.Answer,
		MatchedIndex:  resp.Result.Index,
		Method:        string(resp.Result.Method),
		RawSimilarity: resp.Result.RawSimilarity,
		Confidence:    resp.Result.AdjustedConfidence,
		Category:      resp.Category,
	}
	if resp.Result.Entry != nil {
		q := resp.Result.Entry.Question
		c.MatchedQuestion = &q
	}
	if resp.Intent != "" {
		in := resp.Intent
		c.Intent = &in
	}

	if err := s.cfg.History.Create(ctx, c); err != nil {
		s.logger.WithContext(ctx).Warn().Err(err).Msg("Failed to record conversation")
	}
	return c.ID
}

// FeedbackCategory returns the category a rating is recorded under.
func FeedbackCategory(category string) string {
	if category == "" {
		return knowledge.DefaultCategory
	}
	return category
}

// SubmitFeedback folds a rating into the category's running average. Ratings
// are clamped, never rejected. An empty category counts as the default one.
func (s *Service) SubmitFeedback(ctx context.Context, category string, rating int) feedback.Stat {
	category = FeedbackCategory(category)

	stat := s.cfg.Feedback.RecordFeedback(category, rating)

	if s.cfg.Checkpoints != nil {
		cp := &storage.FeedbackCheckpoint{
			Category:       category,
			RunningAverage: stat.RunningAverage,
			SampleCount:    stat.SampleCount,
		}
		if err := s.cfg.Checkpoints.Upsert(ctx, cp); err != nil {
			s.logger.WithContext(ctx).Warn().Err(err).Str("category", category).Msg("Failed to checkpoint feedback")
		}
	}

	s.logger.WithContext(ctx).Debug().
		Str("category", category).
		Int("rating", rating).
		Float64("running_average", stat.RunningAverage).
		Int("samples", stat.SampleCount).
		Msg("Feedback recorded")

	return stat
}

// RateConversation attaches a rating to a recorded conversation.
func (s *Service) RateConversation(ctx context.Context, id uuid.UUID, rating int) error {
	return s.cfg.History.Rate(ctx, id, rating)
}

// RestoreFeedback loads persisted feedback state into the store.
func (s *Service) RestoreFeedback(ctx context.Context) (int, error) {
	if s.cfg.Checkpoints == nil {
		return 0, nil
	}

	cps, err := s.cfg.Checkpoints.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list feedback checkpoints: %w", err)
	}

	stats := make(map[string]feedback.Stat, len(cps))
	for _, cp := range cps {
		stats[cp.Category] = feedback.Stat{RunningAverage: cp.RunningAverage, SampleCount: cp.SampleCount}
	}
	s.cfg.Feedback.Restore(stats)
	return len(stats), nil
}

// Stats describes the current knowledge base.
func (s *Service) Stats() Stats {
	snap := s.current.Load()
	return Stats{
		EntryCount:         snap.kb.Len(),
		Fitted:             snap.kb.Space().Fitted(),
		VocabularySize:     snap.kb.Space().Dimension(),
		Threshold:          s.cfg.Threshold,
		FeedbackCategories: s.cfg.Feedback.Len(),
	}
}

// LearningStats reports conversation and feedback statistics.
func (s *Service) LearningStats(ctx context.Context) (*LearningStats, error) {
	stats, err := s.cfg.History.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation stats: %w", err)
	}
	return &LearningStats{
		LearningStats: *stats,
		Categories:    s.cfg.Feedback.Snapshot(),
	}, nil
}

// Reload swaps in kb. In-flight queries finish against the previous one.
func (s *Service) Reload(ctx context.Context, kb *knowledge.KnowledgeBase) error {
	snap, err := s.prepare(kb)
	if err != nil {
		return err
	}

	old := s.current.Swap(snap)
	if err := s.cfg.Cache.DeleteByPrefix(ctx, cache.AnswerKey(old.generation)); err != nil {
		s.logger.WithContext(ctx).Warn().Err(err).Msg("Failed to purge cached answers")
	}

	s.logger.WithContext(ctx).Info().
		Int("entries", kb.Len()).
		Int("vocabulary", kb.Space().Dimension()).
		Msg("Knowledge base reloaded")
	return nil
}

// IntentLabels returns the labels the current classifier can produce.
func (s *Service) IntentLabels() []string {
	return s.current.Load().classifier.Labels()
}

// Threshold is the configured match threshold.
func (s *Service) Threshold() float64 {
	return s.cfg.Threshold
}
