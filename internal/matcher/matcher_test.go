package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/textnorm"
)

type vectorCorpus struct {
	vectors [][]float64
	entries []knowledge.QAEntry
}

func newVectorCorpus(vectors ...[]float64) *vectorCorpus {
	c := &vectorCorpus{vectors: vectors, entries: make([]knowledge.QAEntry, len(vectors))}
	for i := range c.entries {
		c.entries[i] = knowledge.QAEntry{Question: "q", Answer: "a"}
	}
	return c
}

func (c *vectorCorpus) Len() int                       { return len(c.vectors) }
func (c *vectorCorpus) Vector(i int) []float64         { return c.vectors[i] }
func (c *vectorCorpus) Entry(i int) *knowledge.QAEntry { return &c.entries[i] }

func loadMarketplace(t *testing.T) *knowledge.KnowledgeBase {
	t.Helper()
	kb, err := knowledge.Load([]knowledge.Row{
		{Question: "What payment methods do you accept?", Answer: "We accept M-Pesa, cards and bank transfers.", Category: "payments"},
		{Question: "How do I post an ad?", Answer: "Tap Sell and fill in the listing form."},
		{Question: "How long does delivery take?", Answer: "Delivery takes 1-3 business days."},
	}, knowledge.Options{Normalizer: textnorm.New(true)})
	require.NoError(t, err)
	return kb
}

func embed(t *testing.T, kb *knowledge.KnowledgeBase, text string) []float64 {
	t.Helper()
	vec, err := kb.Embed(kb.Normalize(text))
	require.NoError(t, err)
	return vec
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{0.6, 0.8}, []float64{0.6, 0.8}, 1},
		{"scaled", []float64{1, 2, 3}, []float64{2, 4, 6}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0},
		{"both zero", []float64{0, 0}, []float64{0, 0}, 0},
		{"length mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-12)
		})
	}
}

func TestCosine_SelfSimilarityOfEntries(t *testing.T) {
	kb := loadMarketplace(t)
	for i := 0; i < kb.Len(); i++ {
		assert.InDelta(t, 1.0, Cosine(kb.Vector(i), kb.Vector(i)), 1e-9)
	}
}

func TestMatch_ExactQuestion(t *testing.T) {
	kb := loadMarketplace(t)

	result := Match(embed(t, kb, "What payment methods do you accept"), kb, GeneralThreshold)
	require.NotNil(t, result.Entry)
	assert.Equal(t, MethodSemanticSimilarity, result.Method)
	assert.Equal(t, 0, result.Index)
	assert.Equal(t, "We accept M-Pesa, cards and bank transfers.", result.Entry.Answer)
	assert.InDelta(t, 1.0, result.RawSimilarity, 1e-9)
	assert.Equal(t, result.RawSimilarity, result.AdjustedConfidence)
}

func TestMatch_UnrelatedQueryFallsBack(t *testing.T) {
	kb := loadMarketplace(t)

	result := Match(embed(t, kb, "banana smoothie recipe"), kb, GeneralThreshold)
	assert.True(t, result.IsFallback())
	assert.Nil(t, result.Entry)
	assert.Equal(t, -1, result.Index)
	assert.Zero(t, result.RawSimilarity)
}

func TestMatch_ThresholdGuarantee(t *testing.T) {
	corpus := newVectorCorpus([]float64{1, 0}, []float64{0.8, 0.6})
	query := []float64{0.6, 0.8}

	// Best is index 1 with similarity 0.96.
	result := Match(query, corpus, 0.95)
	assert.Equal(t, MethodSemanticSimilarity, result.Method)
	assert.Equal(t, 1, result.Index)

	result = Match(query, corpus, 0.97)
	assert.Equal(t, MethodFallback, result.Method)
	assert.InDelta(t, 0.96, result.RawSimilarity, 1e-9)
}

func TestMatch_ThresholdMonotonic(t *testing.T) {
	kb := loadMarketplace(t)
	query := embed(t, kb, "payment options")

	fellBack := false
	for th := 0.0; th <= 1.0; th += 0.05 {
		result := Match(query, kb, th)
		if fellBack {
			assert.True(t, result.IsFallback(), "threshold %.2f matched after a lower threshold fell back", th)
		}
		if result.IsFallback() {
			fellBack = true
		} else {
			assert.GreaterOrEqual(t, result.RawSimilarity, th)
		}
	}
}

func TestMatch_ScoreEqualToThresholdMatches(t *testing.T) {
	corpus := newVectorCorpus([]float64{0, 1}, []float64{1, 0})
	result := Match([]float64{1, 0}, corpus, 1)
	assert.Equal(t, MethodSemanticSimilarity, result.Method)
	assert.Equal(t, 1, result.Index)
}

func TestMatch_TieBreaksToEarliest(t *testing.T) {
	corpus := newVectorCorpus([]float64{0, 1}, []float64{1, 0}, []float64{1, 0})
	result := Match([]float64{1, 0}, corpus, 0.5)
	assert.Equal(t, 1, result.Index)
}

func TestMatch_EmptyCorpus(t *testing.T) {
	result := Match([]float64{1}, newVectorCorpus(), 0)
	assert.True(t, result.IsFallback())
	assert.Equal(t, -1, result.Index)
}

func TestRank(t *testing.T) {
	corpus := newVectorCorpus(
		[]float64{0, 1},
		[]float64{1, 0},
		[]float64{0.8, 0.6},
		[]float64{1, 0},
	)

	ranked := Rank([]float64{1, 0}, corpus, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, []int{1, 3, 2}, []int{ranked[0].Index, ranked[1].Index, ranked[2].Index})
	assert.InDelta(t, 0.8, ranked[2].Similarity, 1e-9)

	all := Rank([]float64{1, 0}, corpus, 0)
	assert.Len(t, all, 4)
	assert.Equal(t, 0, all[3].Index)
}

func TestThresholdFor(t *testing.T) {
	th, err := ThresholdFor("general")
	require.NoError(t, err)
	assert.Equal(t, GeneralThreshold, th)

	th, err = ThresholdFor("Precision")
	require.NoError(t, err)
	assert.Equal(t, PrecisionThreshold, th)

	th, err = ThresholdFor("")
	require.NoError(t, err)
	assert.Equal(t, GeneralThreshold, th)

	_, err = ThresholdFor("loose")
	assert.Error(t, err)
}
