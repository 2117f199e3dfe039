package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/textnorm"
)

func testKB(t *testing.T) *knowledge.KnowledgeBase {
	t.Helper()
	kb, err := knowledge.Load([]knowledge.Row{
		{Question: "What payment methods do you accept?", Answer: "M-Pesa and cards."},
		{Question: "How long does delivery take?", Answer: "1-3 business days."},
	}, knowledge.Options{Normalizer: textnorm.New(true)})
	require.NoError(t, err)
	return kb
}

func TestSweep(t *testing.T) {
	cases := []Case{
		{Query: "what payment methods do you accept", Expected: "M-Pesa and cards."},
		{Query: "delivery time", Expected: "1-3 business days."},
		{Query: "banana smoothie recipe"},
		{Query: "?!"},
	}

	steps := map[int]int{}
	results, err := Sweep(context.Background(), testKB(t), cases, []float64{0.4, 0.5}, func(step int) {
		steps[step]++
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	low := results[0]
	assert.Equal(t, 0.4, low.Threshold)
	assert.Equal(t, 4, low.Cases)
	assert.Equal(t, 2, low.Answered)
	assert.Equal(t, 2, low.Correct)
	assert.Equal(t, 1, low.CorrectFallbacks)
	assert.Equal(t, 1, low.Skipped)
	assert.InDelta(t, 0.75, low.Accuracy(), 1e-9)
	assert.InDelta(t, 1.0, low.Precision(), 1e-9)
	assert.InDelta(t, 0.5, low.Coverage(), 1e-9)

	// "delivery time" scores 1/sqrt(5) against its entry and drops out above 0.45
	high := results[1]
	assert.Equal(t, 1, high.Answered)
	assert.InDelta(t, 0.5, high.Accuracy(), 1e-9)

	assert.Equal(t, map[int]int{0: 4, 1: 4}, steps)

	best, ok := Best(results)
	require.True(t, ok)
	assert.Equal(t, 0.4, best.Threshold)
}

func TestSweep_WrongAnswerCountsAgainstPrecision(t *testing.T) {
	results, err := Sweep(context.Background(), testKB(t), []Case{
		{Query: "how long does delivery take", Expected: "M-Pesa and cards."},
	}, []float64{0.3}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, results[0].Answered)
	assert.Equal(t, 0, results[0].Correct)
	assert.Zero(t, results[0].Precision())
}

func TestSweep_DefaultsAndErrors(t *testing.T) {
	kb := testKB(t)

	_, err := Sweep(context.Background(), kb, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoCases)

	results, err := Sweep(context.Background(), kb, []Case{{Query: "payment"}}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, results, len(DefaultThresholds()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Sweep(ctx, kb, []Case{{Query: "payment"}}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	require.Len(t, th, 9)
	assert.InDelta(t, 0.1, th[0], 1e-12)
	assert.InDelta(t, 0.9, th[8], 1e-12)
}

func TestCasesFromRows(t *testing.T) {
	cases := CasesFromRows([]knowledge.Row{{Question: "q", Answer: "a"}})
	assert.Equal(t, []Case{{Query: "q", Expected: "a"}}, cases)
}

func TestResultZeroValues(t *testing.T) {
	var r Result
	assert.Zero(t, r.Accuracy())
	assert.Zero(t, r.Precision())
	assert.Zero(t, r.Coverage())

	_, ok := Best(nil)
	assert.False(t, ok)
}
