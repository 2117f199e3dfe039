package storage

import (
	"context"
	"time"
)

// FeedbackRepository checkpoints feedback statistics.
type FeedbackRepository struct {
	db DB
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Upsert writes the latest state of one category.
func (r *FeedbackRepository) Upsert(ctx context.Context, cp *FeedbackCheckpoint) error {
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO feedback_stats (category, running_average, sample_count, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (category) DO UPDATE SET
			running_average = excluded.running_average,
			sample_count = excluded.sample_count,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, cp.Category, cp.RunningAverage, cp.SampleCount, cp.UpdatedAt)
	return err
}

// Get returns one category's checkpoint.
func (r *FeedbackRepository) Get(ctx context.Context, category string) (*FeedbackCheckpoint, error) {
	query := `
		SELECT category, running_average, sample_count, updated_at
		FROM feedback_stats WHERE category = $1
	`
	cp := &FeedbackCheckpoint{}
	err := r.db.QueryRowContext(ctx, query, category).Scan(
		&cp.Category, &cp.RunningAverage, &cp.SampleCount, &cp.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return cp, nil
}

// List returns every checkpoint ordered by category.
func (r *FeedbackRepository) List(ctx context.Context) ([]*FeedbackCheckpoint, error) {
	query := `
		SELECT category, running_average, sample_count, updated_at
		FROM feedback_stats
		ORDER BY category
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FeedbackCheckpoint
	for rows.Next() {
		cp := &FeedbackCheckpoint{}
		if err := rows.Scan(&cp.Category, &cp.RunningAverage, &cp.SampleCount, &cp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}
