// Package vectorizer fits a unigram/bigram TF-IDF vector space over the
// knowledge-base questions and embeds queries into it.
package vectorizer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"sort"
	"strings"
)

var (
	// ErrEmptyCorpus is returned when Fit is given no non-empty documents.
	ErrEmptyCorpus = errors.New("vectorizer: empty corpus")
	// ErrUnfittedSpace is returned when Embed is called on a space that was never fitted.
	ErrUnfittedSpace = errors.New("vectorizer: vector space not fitted")
)

// Options controls vocabulary construction.
type Options struct {
	// MinN and MaxN bound the n-gram sizes. Defaults to 1 and 2.
	MinN int
	MaxN int
	// MaxFeatures keeps only the most frequent terms when > 0.
	MaxFeatures int
}

// DefaultOptions returns unigram+bigram options with no vocabulary cap.
func DefaultOptions() Options {
	return Options{MinN: 1, MaxN: 2}
}

// VectorSpace is an immutable fitted TF-IDF model. It is safe for concurrent use.
type VectorSpace struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
	docCount   int
	minN, maxN int
}

// Fit builds the vocabulary and IDF weights from normalized documents.
// Term indices follow sorted term order so that fitting is deterministic.
func Fit(corpus []string, opts Options) (*VectorSpace, error) {
	opts = withDefaults(opts)

	docFreq := make(map[string]int)
	docs := 0
	for _, doc := range corpus {
		grams := ngrams(strings.Fields(doc), opts.MinN, opts.MaxN)
		if len(grams) == 0 {
			continue
		}
		docs++
		seen := make(map[string]struct{}, len(grams))
		for _, g := range grams {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			docFreq[g]++
		}
	}
	if docs == 0 {
		return nil, ErrEmptyCorpus
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}

	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if docFreq[terms[i]] != docFreq[terms[j]] {
				return docFreq[terms[i]] > docFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)

	space := &VectorSpace{
		vocabulary: make(map[string]int, len(terms)),
		terms:      terms,
		idf:        make([]float64, len(terms)),
		docCount:   docs,
		minN:       opts.MinN,
		maxN:       opts.MaxN,
	}
	n := float64(docs)
	for i, term := range terms {
		space.vocabulary[term] = i
		space.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	return space, nil
}

// Embed returns the L2-normalized TF-IDF vector of a normalized text.
// Terms outside the vocabulary contribute nothing; a text with no known terms
// yields the zero vector.
func (s *VectorSpace) Embed(text string) ([]float64, error) {
	if !s.Fitted() {
		return nil, ErrUnfittedSpace
	}

	vec := make([]float64, len(s.terms))
	for _, g := range ngrams(strings.Fields(text), s.minN, s.maxN) {
		if idx, ok := s.vocabulary[g]; ok {
			vec[idx]++
		}
	}

	var norm float64
	for i, tf := range vec {
		if tf == 0 {
			continue
		}
		vec[i] = tf * s.idf[i]
		norm += vec[i] * vec[i]
	}
	if norm == 0 {
		return vec, nil
	}

	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// Fitted reports whether the space holds a vocabulary.
func (s *VectorSpace) Fitted() bool {
	return s != nil && len(s.terms) > 0
}

// Dimension is the vocabulary size.
func (s *VectorSpace) Dimension() int {
	if s == nil {
		return 0
	}
	return len(s.terms)
}

// DocumentCount is the number of non-empty documents seen by Fit.
func (s *VectorSpace) DocumentCount() int {
	if s == nil {
		return 0
	}
	return s.docCount
}

// Term returns the vocabulary term at index i.
func (s *VectorSpace) Term(i int) string {
	return s.terms[i]
}

// IDF returns the inverse document frequency weight of term, and whether the
// term is in the vocabulary.
func (s *VectorSpace) IDF(term string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	idx, ok := s.vocabulary[term]
	if !ok {
		return 0, false
	}
	return s.idf[idx], true
}

// Fingerprint identifies the vocabulary and n-gram range. Models trained
// against one space can check they are loaded against the same one.
func (s *VectorSpace) Fingerprint() string {
	if !s.Fitted() {
		return ""
	}
	h := sha256.New()
	h.Write([]byte{byte(s.minN), byte(s.maxN)})
	for _, t := range s.terms {
		h.Write([]byte(t))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func withDefaults(opts Options) Options {
	if opts.MinN <= 0 {
		opts.MinN = 1
	}
	if opts.MaxN < opts.MinN {
		opts.MaxN = opts.MinN
		if opts.MinN == 1 {
			opts.MaxN = 2
		}
	}
	return opts
}

// ngrams returns all space-joined n-grams of tokens for n in [minN, maxN].
func ngrams(tokens []string, minN, maxN int) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens)*(maxN-minN+1))
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
