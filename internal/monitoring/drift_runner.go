// Package monitoring detects knowledge base drift and triggers reloads.
package monitoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/observability"
)

// DriftRunner notices when the knowledge base source changes and reloads it.
type DriftRunner struct {
	logger *observability.Logger
	source knowledge.RowSource
	reload func(ctx context.Context) error
	config DriftConfig
	cron   *cron.Cron

	mu     sync.Mutex
	digest string
}

// DefaultSchedule checks the source once a minute.
const DefaultSchedule = "@every 1m"

// DriftConfig holds drift detection configuration.
type DriftConfig struct {
	// Schedule is a cron spec such as "*/5 * * * *" or "@every 30s".
	Schedule string
}

// DriftCheckResult contains the results of a drift check.
type DriftCheckResult struct {
	CheckedAt time.Time
	OldDigest string
	NewDigest string
	Rows      int
	Reloaded  bool
}

// Changed reports whether the source differed from the last seen content.
func (r *DriftCheckResult) Changed() bool {
	return r.OldDigest != "" && r.OldDigest != r.NewDigest
}

// NewDriftRunner creates a drift runner. reload is called whenever the
// source's rows change.
func NewDriftRunner(logger *observability.Logger, source knowledge.RowSource, reload func(ctx context.Context) error, cfg DriftConfig) *DriftRunner {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &DriftRunner{
		logger: logger.WithOperation("kb_drift"),
		source: source,
		reload: reload,
		config: cfg,
	}
}

// Digest hashes rows in order. Any edit, insertion or reordering changes it.
func Digest(rows []knowledge.Row) string {
	h := sha256.New()
	for _, r := range rows {
		for _, field := range []string{r.Question, r.Answer, r.Intent, r.Category, r.Hospital} {
			fmt.Fprintf(h, "%d:%s", len(field), field)
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RunCheck reads the source and reloads when its content changed since the
// previous check. The first check only records the digest.
func (d *DriftRunner) RunCheck(ctx context.Context) (*DriftCheckResult, error) {
	rows, err := d.source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base source: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	result := &DriftCheckResult{
		CheckedAt: time.Now(),
		OldDigest: d.digest,
		NewDigest: Digest(rows),
		Rows:      len(rows),
	}

	if !result.Changed() {
		d.digest = result.NewDigest
		return result, nil
	}

	d.logger.Info().
		Int("rows", result.Rows).
		Str("digest", result.NewDigest[:12]).
		Msg("Knowledge base source changed")

	if err := d.reload(ctx); err != nil {
		// Keep the old digest so the next check retries.
		return result, fmt.Errorf("reload: %w", err)
	}
	d.digest = result.NewDigest
	result.Reloaded = true
	return result, nil
}

// Start records the current digest and schedules RunCheck until Stop.
func (d *DriftRunner) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(d.config.Schedule, func() {
		if _, err := d.RunCheck(ctx); err != nil {
			d.logger.Error().Err(err).Msg("Scheduled drift check failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid drift schedule %q: %w", d.config.Schedule, err)
	}

	if _, err := d.RunCheck(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("Initial drift check failed")
	}

	d.cron = c
	c.Start()
	d.logger.Info().Str("schedule", d.config.Schedule).Msg("Drift checks scheduled")
	return nil
}

// Stop cancels scheduled checks and waits for a running one to finish.
func (d *DriftRunner) Stop() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
	d.logger.Info().Msg("Stopping scheduled drift checks")
}
