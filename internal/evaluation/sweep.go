// Package evaluation measures answer quality over a range of match thresholds.
package evaluation

import (
	"context"
	"errors"
	"fmt"

	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/matcher"
)

// ErrNoCases is returned when there is nothing to evaluate.
var ErrNoCases = errors.New("no evaluation cases")

// Case is a labelled query. An empty Expected means the query should fall back.
type Case struct {
	Query    string
	Expected string
}

// Result summarizes one threshold.
type Result struct {
	Threshold float64
	Cases     int
	Answered  int
	Correct   int
	// CorrectFallbacks counts unanswered cases that expected no answer.
	CorrectFallbacks int
	Skipped          int
}

// Coverage is the share of cases that got a matched answer.
func (r Result) Coverage() float64 {
	if r.Cases == 0 {
		return 0
	}
	return float64(r.Answered) / float64(r.Cases)
}

// Precision is the share of matched answers that were the expected one.
func (r Result) Precision() float64 {
	if r.Answered == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Answered)
}

// Accuracy counts correct answers and correct fallbacks over all cases.
func (r Result) Accuracy() float64 {
	if r.Cases == 0 {
		return 0
	}
	return float64(r.Correct+r.CorrectFallbacks) / float64(r.Cases)
}

// DefaultThresholds returns 0.1 through 0.9 in steps of 0.1.
func DefaultThresholds() []float64 {
	out := make([]float64, 0, 9)
	for i := 1; i <= 9; i++ {
		out = append(out, float64(i)/10)
	}
	return out
}

// CasesFromRows treats each row's question as a query and its answer as the
// expected answer.
func CasesFromRows(rows []knowledge.Row) []Case {
	cases := make([]Case, 0, len(rows))
	for _, r := range rows {
		cases = append(cases, Case{Query: r.Question, Expected: r.Answer})
	}
	return cases
}

// Sweep evaluates every case at every threshold. progress, when set, is called
// with the threshold's position after each case is scored. Cases whose query
// normalizes to empty are counted as skipped.
func Sweep(ctx context.Context, kb *knowledge.KnowledgeBase, cases []Case, thresholds []float64, progress func(step int)) ([]Result, error) {
	if len(cases) == 0 {
		return nil, ErrNoCases
	}
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds()
	}

	vectors := make([][]float64, len(cases))
	for i, c := range cases {
		normalized := kb.Normalize(c.Query)
		if normalized == "" {
			continue
		}
		vec, err := kb.Embed(normalized)
		if err != nil {
			return nil, fmt.Errorf("embed case %d: %w", i, err)
		}
		vectors[i] = vec
	}

	results := make([]Result, len(thresholds))
	for step, threshold := range thresholds {
		res := Result{Threshold: threshold, Cases: len(cases)}
		for i, c := range cases {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if vectors[i] == nil {
				res.Skipped++
			} else {
				score(&res, c, matcher.Match(vectors[i], kb, threshold))
			}
			if progress != nil {
				progress(step)
			}
		}
		results[step] = res
	}
	return results, nil
}

func score(res *Result, c Case, qr matcher.QueryResult) {
	if qr.IsFallback() {
		if c.Expected == "" {
			res.CorrectFallbacks++
		}
		return
	}
	res.Answered++
	if qr.Entry.Answer == c.Expected {
		res.Correct++
	}
}

// Best returns the result with the highest accuracy, preferring the lower
// threshold on ties.
func Best(results []Result) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Accuracy() > best.Accuracy() {
			best = r
		}
	}
	return best, true
}
