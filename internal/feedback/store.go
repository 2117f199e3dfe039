// Package feedback keeps per-category running averages of user ratings and
// blends them into match confidence.
package feedback

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BlendPolicy selects how a running average is mixed into a raw score.
type BlendPolicy string

const (
	// BlendEMA weights the average by the fixed smoothing factor alpha.
	BlendEMA BlendPolicy = "ema"
	// BlendSampleWeighted trusts the average more as samples accumulate.
	BlendSampleWeighted BlendPolicy = "sample_weighted"
)

// ParseBlendPolicy maps a configuration value to a policy.
func ParseBlendPolicy(s string) (BlendPolicy, error) {
	switch BlendPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", BlendEMA:
		return BlendEMA, nil
	case BlendSampleWeighted:
		return BlendSampleWeighted, nil
	default:
		return "", fmt.Errorf("unknown blend policy %q", s)
	}
}

// Options configures a Store.
type Options struct {
	Alpha        float64
	MinRating    int
	MaxRating    int
	PriorSamples float64
	Blend        BlendPolicy
}

// DefaultOptions returns alpha 0.1 over 1-5 ratings.
func DefaultOptions() Options {
	return Options{
		Alpha:        0.1,
		MinRating:    1,
		MaxRating:    5,
		PriorSamples: 5,
		Blend:        BlendEMA,
	}
}

// Stat is the learned state of one category.
type Stat struct {
	RunningAverage float64 `json:"running_average" yaml:"running_average"`
	SampleCount    int     `json:"sample_count" yaml:"sample_count"`
}

type categoryState struct {
	mu   sync.Mutex
	stat Stat
}

// Store is safe for concurrent use. Updates to one category serialize while
// different categories proceed independently.
type Store struct {
	opts Options

	mu         sync.RWMutex
	categories map[string]*categoryState
}

// NewStore creates an empty store. Zero-valued fields fall back to defaults.
func NewStore(opts Options) *Store {
	def := DefaultOptions()
	if opts.Alpha <= 0 || opts.Alpha > 1 {
		opts.Alpha = def.Alpha
	}
	if opts.MaxRating <= opts.MinRating {
		opts.MinRating, opts.MaxRating = def.MinRating, def.MaxRating
	}
	if opts.PriorSamples <= 0 {
		opts.PriorSamples = def.PriorSamples
	}
	if opts.Blend == "" {
		opts.Blend = def.Blend
	}

	return &Store{
		opts:       opts,
		categories: make(map[string]*categoryState),
	}
}

// Options returns the effective options.
func (s *Store) Options() Options {
	return s.opts
}

// NormalizeRating clamps rating into the configured range and maps it to [0, 1].
func (s *Store) NormalizeRating(rating int) float64 {
	if rating < s.opts.MinRating {
		rating = s.opts.MinRating
	}
	if rating > s.opts.MaxRating {
		rating = s.opts.MaxRating
	}
	return float64(rating-s.opts.MinRating) / float64(s.opts.MaxRating-s.opts.MinRating)
}

// RecordFeedback folds one rating into the category's running average and
// returns the updated stat. The first rating seeds the average. Out-of-range
// ratings are clamped.
func (s *Store) RecordFeedback(category string, rating int) Stat {
	r := s.NormalizeRating(rating)

	state := s.state(category)
	state.mu.Lock()
	defer state.mu.Unlock()

	avg := state.stat.RunningAverage
	if state.stat.SampleCount == 0 {
		avg = r
	}
	state.stat.RunningAverage = s.opts.Alpha*r + (1-s.opts.Alpha)*avg
	state.stat.SampleCount++

	return state.stat
}

// AdjustConfidence blends raw with the category's running average. A category
// with no samples returns raw unchanged.
func (s *Store) AdjustConfidence(raw float64, category string) float64 {
	stat, ok := s.Stat(category)
	if !ok || stat.SampleCount == 0 {
		return raw
	}

	var adjusted float64
	switch s.opts.Blend {
	case BlendSampleWeighted:
		n := float64(stat.SampleCount)
		w := n / (n + s.opts.PriorSamples)
		adjusted = (1-w)*raw + w*stat.RunningAverage
	default:
		adjusted = (1-s.opts.Alpha)*raw + s.opts.Alpha*stat.RunningAverage
	}

	return clamp01(adjusted)
}

// Stat returns the category's current state.
func (s *Store) Stat(category string) (Stat, bool) {
	s.mu.RLock()
	state, ok := s.categories[category]
	s.mu.RUnlock()
	if !ok {
		return Stat{}, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.stat, true
}

// Len is the number of categories with recorded feedback.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.categories)
}

// Categories returns the known category labels in sorted order.
func (s *Store) Categories() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.categories))
	for c := range s.categories {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Snapshot copies every category's state.
func (s *Store) Snapshot() map[string]Stat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Stat, len(s.categories))
	for c, state := range s.categories {
		state.mu.Lock()
		out[c] = state.stat
		state.mu.Unlock()
	}
	return out
}

// Restore replaces the state of each category in stats. Categories not named
// in stats are left alone.
func (s *Store) Restore(stats map[string]Stat) {
	for c, stat := range stats {
		if stat.SampleCount <= 0 {
			continue
		}
		stat.RunningAverage = clamp01(stat.RunningAverage)

		state := s.state(c)
		state.mu.Lock()
		state.stat = stat
		state.mu.Unlock()
	}
}

func (s *Store) state(category string) *categoryState {
	s.mu.RLock()
	state, ok := s.categories[category]
	s.mu.RUnlock()
	if ok {
		return state
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok = s.categories[category]; ok {
		return state
	}
	state = &categoryState{}
	s.categories[category] = state
	return state
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
