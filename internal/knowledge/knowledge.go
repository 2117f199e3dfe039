// Package knowledge loads question/answer rows into an immutable knowledge
// base with a fitted vector space and one precomputed vector per entry.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/supportdesk/qa-assistant/internal/textnorm"
	"github.com/supportdesk/qa-assistant/internal/vectorizer"
)

// ErrEmptyKnowledgeBase is returned when no usable rows remain after loading.
var ErrEmptyKnowledgeBase = errors.New("knowledge base has no usable rows")

// DefaultCategory is the feedback key for entries without category or intent.
const DefaultCategory = "general"

// Row is one raw record from a tabular source. Empty optional columns are "".
type Row struct {
	Question string
	Answer   string
	Intent   string
	Category string
	Hospital string
}

// QAEntry is an immutable knowledge-base record. Its identity is its index.
type QAEntry struct {
	Question string
	Answer   string
	Intent   *string
	Category *string
	Hospital *string
}

// Label returns the category if present, then the intent, then DefaultCategory.
func (e QAEntry) Label() string {
	if e.Category != nil {
		return *e.Category
	}
	if e.Intent != nil {
		return *e.Intent
	}
	return DefaultCategory
}

// IntentLabel returns the entry's intent or "".
func (e QAEntry) IntentLabel() string {
	if e.Intent == nil {
		return ""
	}
	return *e.Intent
}

// RowSource provides rows from an external tabular store.
type RowSource interface {
	Rows(ctx context.Context) ([]Row, error)
}

// Options configures loading.
type Options struct {
	// Normalizer is applied to questions before fitting and to queries before
	// embedding. Nil means plain normalization.
	Normalizer *textnorm.Normalizer
	Vectorizer vectorizer.Options
}

// KnowledgeBase is read-only after Load and safe for concurrent use.
type KnowledgeBase struct {
	entries    []QAEntry
	normalized []string
	vectors    [][]float64
	space      *vectorizer.VectorSpace
	normalizer *textnorm.Normalizer
	dropped    int
}

// Load validates rows, fits the vector space over the normalized questions and
// precomputes every entry's vector. Rows whose question or answer normalize to
// empty are dropped; the remaining rows keep their relative order.
func Load(rows []Row, opts Options) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{normalizer: opts.Normalizer}

	for _, row := range rows {
		question := strings.TrimSpace(row.Question)
		answer := strings.TrimSpace(row.Answer)
		normalized := kb.normalizer.Normalize(question)
		if normalized == "" || textnorm.Normalize(answer) == "" {
			kb.dropped++
			continue
		}

		kb.entries = append(kb.entries, QAEntry{
			Question: question,
			Answer:   answer,
			Intent:   optional(row.Intent),
			Category: optional(row.Category),
			Hospital: optional(row.Hospital),
		})
		kb.normalized = append(kb.normalized, normalized)
	}

	if len(kb.entries) == 0 {
		return nil, ErrEmptyKnowledgeBase
	}

	space, err := vectorizer.Fit(kb.normalized, opts.Vectorizer)
	if err != nil {
		return nil, fmt.Errorf("fit vector space: %w", err)
	}
	kb.space = space

	kb.vectors = make([][]float64, len(kb.normalized))
	for i, q := range kb.normalized {
		vec, err := space.Embed(q)
		if err != nil {
			return nil, fmt.Errorf("embed entry %d: %w", i, err)
		}
		kb.vectors[i] = vec
	}

	return kb, nil
}

// LoadFrom reads all rows from src and loads them.
func LoadFrom(ctx context.Context, src RowSource, opts Options) (*KnowledgeBase, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return Load(rows, opts)
}

// Len is the number of entries.
func (kb *KnowledgeBase) Len() int {
	if kb == nil {
		return 0
	}
	return len(kb.entries)
}

// Entry returns the entry at index i.
func (kb *KnowledgeBase) Entry(i int) *QAEntry {
	return &kb.entries[i]
}

// Vector returns the precomputed vector of entry i. Callers must not modify it.
func (kb *KnowledgeBase) Vector(i int) []float64 {
	return kb.vectors[i]
}

// NormalizedQuestion returns the normalized form of entry i's question.
func (kb *KnowledgeBase) NormalizedQuestion(i int) string {
	return kb.normalized[i]
}

// Space returns the fitted vector space.
func (kb *KnowledgeBase) Space() *vectorizer.VectorSpace {
	if kb == nil {
		return nil
	}
	return kb.space
}

// Normalize applies the knowledge base's normalizer.
func (kb *KnowledgeBase) Normalize(text string) string {
	return kb.normalizer.Normalize(text)
}

// Embed embeds already-normalized text into the knowledge base's space.
func (kb *KnowledgeBase) Embed(normalized string) ([]float64, error) {
	return kb.Space().Embed(normalized)
}

// Dropped is the number of rows rejected during Load.
func (kb *KnowledgeBase) Dropped() int {
	return kb.dropped
}

// Categories returns the distinct entry labels in first-seen order.
func (kb *KnowledgeBase) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range kb.entries {
		label := e.Label()
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
