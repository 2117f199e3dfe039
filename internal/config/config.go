// Package config provides unified configuration loading for the QA assistant.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/supportdesk/qa-assistant/internal/matcher"
)

// Config holds all configuration for the QA assistant.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Assistant     AssistantConfig     `yaml:"assistant"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Matching      MatchingConfig      `yaml:"matching"`
	Feedback      FeedbackConfig      `yaml:"feedback"`
	Intent        IntentConfig        `yaml:"intent"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

// AssistantConfig selects the deployment variant and its canned replies.
type AssistantConfig struct {
	Variant        string `yaml:"variant"` // marketplace or hospital
	FallbackAnswer string `yaml:"fallback_answer"`
	Alternatives   int    `yaml:"alternatives"`
	HistorySize    int    `yaml:"history_size"`
}

// KnowledgeBaseConfig holds knowledge base source settings.
type KnowledgeBaseConfig struct {
	Source          string `yaml:"source"` // csv or database
	Path            string `yaml:"path"`
	RemoveStopwords bool   `yaml:"remove_stopwords"`
	MinNGram        int    `yaml:"min_ngram"`
	MaxNGram        int    `yaml:"max_ngram"`
	MaxFeatures     int    `yaml:"max_features"`

	// ReloadSchedule is a cron spec for source drift checks. Empty disables them.
	ReloadSchedule string `yaml:"reload_schedule"`
}

// MatchingConfig holds threshold settings. Threshold overrides Policy when
// present, including an explicit 0.
type MatchingConfig struct {
	Policy    string   `yaml:"policy"` // general or precision
	Threshold *float64 `yaml:"threshold,omitempty"`
}

// FeedbackConfig holds adaptation settings.
type FeedbackConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Alpha        float64 `yaml:"alpha"`
	Blend        string  `yaml:"blend"` // ema or sample_weighted
	PriorSamples float64 `yaml:"prior_samples"`
	MinRating    int     `yaml:"min_rating"`
	MaxRating    int     `yaml:"max_rating"`
	Persist      bool    `yaml:"persist"`
}

// IntentConfig holds intent classifier settings.
type IntentConfig struct {
	Enabled    bool    `yaml:"enabled"`
	ModelPath  string  `yaml:"model_path"`
	Floor      float64 `yaml:"floor"`
	UseLexicon bool    `yaml:"use_lexicon"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // none, sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // none, memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		if cfg.KnowledgeBase.Path != "" {
			cfg.KnowledgeBase.Path = ResolveRelativePath(path, cfg.KnowledgeBase.Path)
		}
		if cfg.Intent.ModelPath != "" {
			cfg.Intent.ModelPath = ResolveRelativePath(path, cfg.Intent.ModelPath)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             5000,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			RequestTimeout:   10 * time.Second,
			GracefulShutdown: 10 * time.Second,
			AllowedOrigins:   []string{"*"},
		},
		Assistant: AssistantConfig{
			Variant:      VariantMarketplace,
			Alternatives: 3,
			HistorySize:  1000,
		},
		KnowledgeBase: KnowledgeBaseConfig{
			Source:          "csv",
			Path:            "data/qa_pairs.csv",
			RemoveStopwords: true,
			MinNGram:        1,
			MaxNGram:        2,
			MaxFeatures:     1000,
		},
		Matching: MatchingConfig{
			Policy: matcher.PolicyGeneral,
		},
		Feedback: FeedbackConfig{
			Enabled:      true,
			Alpha:        0.1,
			Blend:        "ema",
			PriorSamples: 5,
			MinRating:    1,
			MaxRating:    5,
		},
		Intent: IntentConfig{
			Floor:      0.2,
			UseLexicon: true,
		},
		Database: DatabaseConfig{
			Driver: "none",
			SQLite: SQLiteConfig{
				Path:         "/tmp/qa-assistant.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "qa-assistant",
		},
	}
}

// Variants.
const (
	VariantMarketplace = "marketplace"
	VariantHospital    = "hospital"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Assistant.Variant != VariantMarketplace && c.Assistant.Variant != VariantHospital {
		return fmt.Errorf("invalid assistant variant: %s", c.Assistant.Variant)
	}

	if c.Assistant.Alternatives < 0 {
		return fmt.Errorf("alternatives must not be negative")
	}

	switch c.KnowledgeBase.Source {
	case "csv":
		if c.KnowledgeBase.Path == "" {
			return fmt.Errorf("knowledge_base.path is required for csv source")
		}
	case "database":
		if c.Database.Driver == "none" {
			return fmt.Errorf("knowledge_base.source database requires a database driver")
		}
	default:
		return fmt.Errorf("invalid knowledge base source: %s", c.KnowledgeBase.Source)
	}

	if c.KnowledgeBase.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(c.KnowledgeBase.ReloadSchedule); err != nil {
			return fmt.Errorf("invalid knowledge_base.reload_schedule: %w", err)
		}
	}

	if c.KnowledgeBase.MinNGram < 1 || c.KnowledgeBase.MaxNGram < c.KnowledgeBase.MinNGram {
		return fmt.Errorf("invalid n-gram range %d-%d", c.KnowledgeBase.MinNGram, c.KnowledgeBase.MaxNGram)
	}

	if _, err := matcher.ThresholdFor(c.Matching.Policy); err != nil {
		return err
	}

	if th := c.Matching.Threshold; th != nil && (*th < 0 || *th > 1) {
		return fmt.Errorf("match threshold must be between 0 and 1")
	}

	if c.Feedback.Alpha <= 0 || c.Feedback.Alpha > 1 {
		return fmt.Errorf("feedback alpha must be in (0, 1]")
	}

	if c.Feedback.Blend != "ema" && c.Feedback.Blend != "sample_weighted" {
		return fmt.Errorf("invalid feedback blend: %s", c.Feedback.Blend)
	}

	if c.Feedback.MaxRating <= c.Feedback.MinRating {
		return fmt.Errorf("feedback max_rating must exceed min_rating")
	}

	if c.Feedback.Persist && c.Database.Driver == "none" {
		return fmt.Errorf("feedback.persist requires a database driver")
	}

	if c.Database.Driver != "none" && c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Cache.Driver != "none" && c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	return nil
}

// Threshold returns the effective match threshold.
func (c *Config) Threshold() float64 {
	if c.Matching.Threshold != nil {
		return *c.Matching.Threshold
	}
	th, err := matcher.ThresholdFor(c.Matching.Policy)
	if err != nil {
		return matcher.GeneralThreshold
	}
	return th
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		path := c.Database.SQLite.Path
		if c.Database.SQLite.JournalMode != "" && path != ":memory:" && !strings.Contains(path, "?") {
			path += "?_journal_mode=" + c.Database.SQLite.JournalMode
		}
		return path
	}
	return c.Database.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("ASSISTANT_VARIANT"); v != "" {
		cfg.Assistant.Variant = v
	}

	if v := os.Getenv("KB_PATH"); v != "" {
		cfg.KnowledgeBase.Source = "csv"
		cfg.KnowledgeBase.Path = v
	}

	if v := os.Getenv("THRESHOLD_POLICY"); v != "" {
		cfg.Matching.Policy = strings.ToLower(v)
	}

	if v := os.Getenv("MATCH_THRESHOLD"); v != "" {
		if th, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.Threshold = &th
		}
	}

	if v := os.Getenv("FEEDBACK_BLEND"); v != "" {
		cfg.Feedback.Blend = strings.ToLower(v)
	}

	if v := os.Getenv("INTENT_MODEL_PATH"); v != "" {
		cfg.Intent.Enabled = true
		cfg.Intent.ModelPath = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
