// Package storage provides database models and repositories for the QA assistant.
package storage

import (
	"time"

	"github.com/google/uuid"
)

// Method values recorded with a conversation turn.
const (
	MethodSemanticSimilarity = "semantic_similarity"
	MethodFallback           = "fallback"
)

// FeedbackCheckpoint is the persisted state of one feedback category.
type FeedbackCheckpoint struct {
	Category       string
	RunningAverage float64
	SampleCount    int
	UpdatedAt      time.Time
}

// Conversation is one answered query.
type Conversation struct {
	ID              uuid.UUID
	Query           string
	Response        string
	MatchedQuestion *string
	MatchedIndex    int
	Method          string
	RawSimilarity   float64
	Confidence      float64
	Intent          *string
	Category        string
	Rating          *int
	CreatedAt       time.Time
}

// LearningStats summarizes recorded conversations.
type LearningStats struct {
	TotalConversations int
	RatedConversations int
	AverageRating      float64
	WellRated          int
	Fallbacks          int
}
