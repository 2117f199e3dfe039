package commands

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/supportdesk/qa-assistant/internal/app"
	"github.com/supportdesk/qa-assistant/internal/knowledge"
)

// loadKnowledgeBase reads the configured knowledge base. The returned close
// func releases the database when one was opened.
func loadKnowledgeBase(ctx context.Context) (*knowledge.KnowledgeBase, func(), error) {
	var db *sql.DB
	if cfg.KnowledgeBase.Source == "database" {
		var err error
		db, err = app.OpenDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection: %w", err)
		}
	}
	closeFn := func() {
		if db != nil {
			_ = db.Close()
		}
	}

	src, err := app.RowSource(cfg, db)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	kb, err := knowledge.LoadFrom(ctx, src, app.LoadOptions(cfg))
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("load knowledge base: %w", err)
	}
	return kb, closeFn, nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
