// Package matcher scores a query vector against a knowledge base by cosine
// similarity and selects the best entry, or a fallback below the threshold.
package matcher

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/supportdesk/qa-assistant/internal/knowledge"
)

// Method identifies how a result was produced.
type Method string

const (
	MethodSemanticSimilarity Method = "semantic_similarity"
	MethodFallback           Method = "fallback"
)

// Threshold policies.
const (
	PolicyGeneral   = "general"
	PolicyPrecision = "precision"

	GeneralThreshold   = 0.3
	PrecisionThreshold = 0.6
)

// Corpus is the read-only view of a knowledge base the matcher needs.
type Corpus interface {
	Len() int
	Vector(i int) []float64
	Entry(i int) *knowledge.QAEntry
}

// QueryResult is the outcome of a single match.
type QueryResult struct {
	Entry              *knowledge.QAEntry
	Index              int
	RawSimilarity      float64
	AdjustedConfidence float64
	Method             Method
}

// IsFallback reports whether no entry cleared the threshold.
func (r QueryResult) IsFallback() bool {
	return r.Method == MethodFallback
}

// Candidate is a scored knowledge-base entry.
type Candidate struct {
	Index      int
	Entry      *knowledge.QAEntry
	Similarity float64
}

// ThresholdFor resolves a named policy to its threshold.
func ThresholdFor(policy string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicyGeneral:
		return GeneralThreshold, nil
	case PolicyPrecision:
		return PrecisionThreshold, nil
	default:
		return 0, fmt.Errorf("unknown threshold policy %q", policy)
	}
}

// Cosine returns the cosine similarity of a and b clamped to [-1, 1]. It is 0
// when either vector has zero magnitude or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(sim):
		return 0
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	}
	return sim
}

// Match scores every entry and returns the best one. Ties resolve to the
// lowest index. A best score strictly below threshold yields a fallback result
// that still reports the raw similarity.
func Match(query []float64, kb Corpus, threshold float64) QueryResult {
	best := -1
	bestScore := 0.0
	for i := 0; i < kb.Len(); i++ {
		score := Cosine(query, kb.Vector(i))
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 || bestScore < threshold {
		return QueryResult{
			Index:              -1,
			RawSimilarity:      bestScore,
			AdjustedConfidence: bestScore,
			Method:             MethodFallback,
		}
	}

	return QueryResult{
		Entry:              kb.Entry(best),
		Index:              best,
		RawSimilarity:      bestScore,
		AdjustedConfidence: bestScore,
		Method:             MethodSemanticSimilarity,
	}
}

// Rank returns up to k candidates ordered by descending similarity, ties by
// index. k <= 0 returns every entry.
func Rank(query []float64, kb Corpus, k int) []Candidate {
	candidates := make([]Candidate, kb.Len())
	for i := range candidates {
		candidates[i] = Candidate{
			Index:      i,
			Entry:      kb.Entry(i),
			Similarity: Cosine(query, kb.Vector(i)),
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	if k > 0 && k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates
}
