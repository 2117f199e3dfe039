package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/supportdesk/qa-assistant/internal/knowledge"
)

// QARepository stores knowledge base rows. Position defines row order.
type QARepository struct {
	db DB
}

// NewQARepository creates a new QA repository.
func NewQARepository(db DB) *QARepository {
	return &QARepository{db: db}
}

// ReplaceAll swaps the stored rows for rows, in one transaction when the
// connection supports it. progress, if set, is called after each insert.
func (r *QARepository) ReplaceAll(ctx context.Context, rows []knowledge.Row, progress func(done int)) error {
	exec := r.db
	var commit func() error
	if b, ok := r.db.(txBeginner); ok {
		tx, err := b.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin import: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		exec, commit = tx, tx.Commit
	}

	if _, err := exec.ExecContext(ctx, `DELETE FROM qa_entries`); err != nil {
		return fmt.Errorf("clear qa entries: %w", err)
	}

	query := `
		INSERT INTO qa_entries (position, question, answer, intent, category, hospital)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, row := range rows {
		_, err := exec.ExecContext(ctx, query,
			i, row.Question, row.Answer,
			nullString(&row.Intent), nullString(&row.Category), nullString(&row.Hospital),
		)
		if err != nil {
			return fmt.Errorf("insert qa entry %d: %w", i, err)
		}
		if progress != nil {
			progress(i + 1)
		}
	}

	if commit != nil {
		if err := commit(); err != nil {
			return fmt.Errorf("commit import: %w", err)
		}
	}
	return nil
}

// Rows returns every stored row in position order. It implements
// knowledge.RowSource.
func (r *QARepository) Rows(ctx context.Context) ([]knowledge.Row, error) {
	query := `
		SELECT question, answer, intent, category, hospital
		FROM qa_entries
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []knowledge.Row
	for rows.Next() {
		var row knowledge.Row
		var intent, category, hospital sql.NullString
		if err := rows.Scan(&row.Question, &row.Answer, &intent, &category, &hospital); err != nil {
			return nil, err
		}
		row.Intent, row.Category, row.Hospital = intent.String, category.String, hospital.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// Count returns the number of stored rows.
func (r *QARepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qa_entries`).Scan(&n)
	return n, err
}
