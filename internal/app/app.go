// Package app wires configuration into a running assistant: knowledge base,
// storage, cache, feedback and intent classification.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/supportdesk/qa-assistant/internal/assistant"
	"github.com/supportdesk/qa-assistant/internal/cache"
	"github.com/supportdesk/qa-assistant/internal/config"
	"github.com/supportdesk/qa-assistant/internal/feedback"
	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/observability"
	"github.com/supportdesk/qa-assistant/internal/storage"
	"github.com/supportdesk/qa-assistant/internal/textnorm"
	"github.com/supportdesk/qa-assistant/internal/vectorizer"
)

// App holds the assistant and the resources it owns.
type App struct {
	Config  *config.Config
	Service *assistant.Service
	DB      *sql.DB
	Cache   cache.Client
	Source  knowledge.RowSource

	logger *observability.Logger
}

// OpenDatabase connects to the configured database and ensures the schema.
// It returns nil when the driver is "none".
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.Database.Driver == "none" {
		return nil, nil
	}

	opts := storage.Options{Driver: cfg.Database.Driver, DSN: cfg.DatabaseDSN()}
	if cfg.Database.Driver == "sqlite" {
		opts.MaxOpenConns = cfg.Database.SQLite.MaxOpenConns
	} else {
		opts.MaxOpenConns = cfg.Database.Postgres.MaxOpenConns
		opts.MaxIdleConns = cfg.Database.Postgres.MaxIdleConns
	}

	db, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenCache creates the configured response cache.
func OpenCache(ctx context.Context, cfg *config.Config) (cache.Client, error) {
	switch cfg.Cache.Driver {
	case "redis":
		return cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
	case "memory":
		return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
	default:
		return cache.NopClient{}, nil
	}
}

// LoadOptions returns the knowledge base options for cfg.
func LoadOptions(cfg *config.Config) knowledge.Options {
	return knowledge.Options{
		Normalizer: textnorm.New(cfg.KnowledgeBase.RemoveStopwords),
		Vectorizer: vectorizer.Options{
			MinN:        cfg.KnowledgeBase.MinNGram,
			MaxN:        cfg.KnowledgeBase.MaxNGram,
			MaxFeatures: cfg.KnowledgeBase.MaxFeatures,
		},
	}
}

// RowSource returns where the knowledge base is read from.
func RowSource(cfg *config.Config, db *sql.DB) (knowledge.RowSource, error) {
	if cfg.KnowledgeBase.Source == "database" {
		if db == nil {
			return nil, errors.New("database knowledge base requires a database connection")
		}
		return storage.NewQARepository(db), nil
	}
	return knowledge.CSVFile(cfg.KnowledgeBase.Path), nil
}

// IntentSource returns the configured intent classifier source, or nil.
func IntentSource(cfg *config.Config) assistant.IntentSource {
	if !cfg.Intent.Enabled {
		return nil
	}
	trained := assistant.TrainedIntents(cfg.Intent.UseLexicon, cfg.Intent.Floor)
	if cfg.Intent.ModelPath == "" {
		return trained
	}
	return assistant.ModelIntents(cfg.Intent.ModelPath, trained)
}

// New builds the assistant described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger}

	db, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = db

	c, err := OpenCache(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	a.Cache = c

	a.Source, err = RowSource(cfg, db)
	if err != nil {
		a.Close()
		return nil, err
	}

	kb, err := knowledge.LoadFrom(ctx, a.Source, LoadOptions(cfg))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	logger.Info().
		Int("entries", kb.Len()).
		Int("dropped", kb.Dropped()).
		Int("vocabulary", kb.Space().Dimension()).
		Msg("Knowledge base loaded")

	blend, err := feedback.ParseBlendPolicy(cfg.Feedback.Blend)
	if err != nil {
		a.Close()
		return nil, err
	}

	svcCfg := assistant.Config{
		Variant:        cfg.Assistant.Variant,
		Threshold:      cfg.Threshold(),
		FallbackAnswer: cfg.Assistant.FallbackAnswer,
		Alternatives:   cfg.Assistant.Alternatives,
		CacheTTL:       cfg.Cache.TTL,
		Cache:          a.Cache,
		Intents:        IntentSource(cfg),
		Feedback: feedback.NewStore(feedback.Options{
			Alpha:        cfg.Feedback.Alpha,
			MinRating:    cfg.Feedback.MinRating,
			MaxRating:    cfg.Feedback.MaxRating,
			PriorSamples: cfg.Feedback.PriorSamples,
			Blend:        blend,
		}),
	}
	svcCfg.StaticConfidence = !cfg.Feedback.Enabled
	if db != nil {
		svcCfg.History = storage.NewConversationRepository(db)
		if cfg.Feedback.Persist {
			svcCfg.Checkpoints = storage.NewFeedbackRepository(db)
		}
	} else {
		svcCfg.History = assistant.NewMemoryHistory(cfg.Assistant.HistorySize)
	}

	a.Service, err = assistant.NewService(logger, kb, svcCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	if n, err := a.Service.RestoreFeedback(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to restore feedback checkpoints")
	} else if n > 0 {
		logger.Info().Int("categories", n).Msg("Feedback restored")
	}

	return a, nil
}

// Reload re-reads the knowledge base from its source and swaps it in.
func (a *App) Reload(ctx context.Context) error {
	kb, err := knowledge.LoadFrom(ctx, a.Source, LoadOptions(a.Config))
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}
	return a.Service.Reload(ctx, kb)
}

// Ready reports whether backing stores are reachable.
func (a *App) Ready(ctx context.Context) error {
	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}

// Close releases the database and cache.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close cache")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
