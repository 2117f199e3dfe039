package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Options configures Open.
type Options struct {
	Driver       string // sqlite or postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	var driver string
	switch opts.Driver {
	case "sqlite":
		driver = "sqlite3"
	case "postgres":
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}

	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// The statements below are valid for both SQLite and Postgres.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS qa_entries (
		position  INTEGER PRIMARY KEY,
		question  TEXT NOT NULL,
		answer    TEXT NOT NULL,
		intent    TEXT,
		category  TEXT,
		hospital  TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS feedback_stats (
		category        TEXT PRIMARY KEY,
		running_average DOUBLE PRECISION NOT NULL,
		sample_count    INTEGER NOT NULL,
		updated_at      TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id               TEXT PRIMARY KEY,
		query            TEXT NOT NULL,
		response         TEXT NOT NULL,
		matched_question TEXT,
		matched_index    INTEGER NOT NULL,
		method           TEXT NOT NULL,
		raw_similarity   DOUBLE PRECISION NOT NULL,
		confidence       DOUBLE PRECISION NOT NULL,
		intent           TEXT,
		category         TEXT NOT NULL,
		rating           INTEGER,
		created_at       TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations (created_at)`,
}

// EnsureSchema creates the assistant tables if they do not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
