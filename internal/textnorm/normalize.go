// Package textnorm provides the text normalization shared by knowledge-base
// fitting and query embedding.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalizer converts free text into the canonical form used for matching.
// The zero value lowercases, strips punctuation and collapses whitespace.
type Normalizer struct {
	// RemoveStopwords drops common English function words after cleaning.
	RemoveStopwords bool
	// Stopwords overrides the built-in English list when non-nil.
	Stopwords map[string]struct{}
}

// New creates a normalizer. Stopword removal is opt-in.
func New(removeStopwords bool) *Normalizer {
	return &Normalizer{RemoveStopwords: removeStopwords}
}

// Normalize is the package-level normalization without stopword removal.
func Normalize(s string) string {
	return clean(s)
}

// Normalize returns the canonical form of s. Empty input yields empty output,
// and Normalize(Normalize(s)) == Normalize(s).
func (n *Normalizer) Normalize(s string) string {
	if n == nil || !n.RemoveStopwords {
		return clean(s)
	}
	return strings.Join(n.Tokens(s), " ")
}

// Tokens returns the normalized tokens of s.
func (n *Normalizer) Tokens(s string) []string {
	words := strings.Fields(clean(s))
	if n == nil || !n.RemoveStopwords {
		return words
	}

	stop := n.Stopwords
	if stop == nil {
		stop = englishStopwords
	}

	kept := words[:0]
	for _, w := range words {
		if _, ok := stop[w]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return kept
}

// IsStopword reports whether word is in the built-in English list.
func IsStopword(word string) bool {
	_, ok := englishStopwords[word]
	return ok
}

func clean(s string) string {
	if s == "" {
		return ""
	}

	// A Caser is stateful, so one is built per call.
	s = cases.Lower(language.Und).String(norm.NFKC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}
