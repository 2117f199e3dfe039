package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WellRatedThreshold is the minimum rating counted as a good answer.
const WellRatedThreshold = 4

// ConversationRepository records answered queries.
type ConversationRepository struct {
	db DB
}

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(db DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a conversation, assigning ID and CreatedAt when unset.
func (r *ConversationRepository) Create(ctx context.Context, c *Conversation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO conversations (id, query, response, matched_question, matched_index,
			method, raw_similarity, confidence, intent, category, rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID.String(), c.Query, c.Response, nullString(c.MatchedQuestion), c.MatchedIndex,
		c.Method, c.RawSimilarity, c.Confidence, nullString(c.Intent), c.Category,
		nullInt(c.Rating), c.CreatedAt,
	)
	return err
}

// Rate attaches a user rating to a conversation.
func (r *ConversationRepository) Rate(ctx context.Context, id uuid.UUID, rating int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET rating = $1 WHERE id = $2`, rating, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a conversation by ID.
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	query := `
		SELECT id, query, response, matched_question, matched_index, method,
			raw_similarity, confidence, intent, category, rating, created_at
		FROM conversations WHERE id = $1
	`
	c, err := scanConversation(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// Recent returns the newest conversations first.
func (r *ConversationRepository) Recent(ctx context.Context, limit int) ([]*Conversation, error) {
	query := `
		SELECT id, query, response, matched_question, matched_index, method,
			raw_similarity, confidence, intent, category, rating, created_at
		FROM conversations
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats aggregates ratings and fallbacks over all conversations.
func (r *ConversationRepository) Stats(ctx context.Context) (*LearningStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(rating),
			COALESCE(AVG(rating), 0),
			COALESCE(SUM(CASE WHEN rating >= $1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN method = $2 THEN 1 ELSE 0 END), 0)
		FROM conversations
	`
	stats := &LearningStats{}
	err := r.db.QueryRowContext(ctx, query, WellRatedThreshold, MethodFallback).Scan(
		&stats.TotalConversations, &stats.RatedConversations, &stats.AverageRating,
		&stats.WellRated, &stats.Fallbacks,
	)
	if err != nil {
		return nil, fmt.Errorf("conversation stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	c := &Conversation{}
	var id string
	var matched, intent sql.NullString
	var rating sql.NullInt64
	if err := row.Scan(
		&id, &c.Query, &c.Response, &matched, &c.MatchedIndex, &c.Method,
		&c.RawSimilarity, &c.Confidence, &intent, &c.Category, &rating, &c.CreatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse conversation id: %w", err)
	}
	c.ID = parsed
	c.MatchedQuestion = stringPtr(matched)
	c.Intent = stringPtr(intent)
	if rating.Valid {
		v := int(rating.Int64)
		c.Rating = &v
	}
	return c, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
