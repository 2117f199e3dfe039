package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/supportdesk/qa-assistant/cmd/assistant-cli/ui"
	"github.com/supportdesk/qa-assistant/internal/evaluation"
	"github.com/supportdesk/qa-assistant/internal/knowledge"
)

var evalThresholds []float64

var evalCmd = &cobra.Command{
	Use:   "eval <cases-csv>",
	Short: "Sweep match thresholds against labelled questions",
	Long: `Eval reads a CSV of questions with their expected answers and measures,
for each threshold, how many get answered (coverage), how many answers are
right (precision), and how many cases end correctly overall (accuracy). Leave
the answer empty for questions the assistant should not answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().Float64SliceVarP(&evalThresholds, "thresholds", "t", nil, "thresholds to try (default 0.1..0.9)")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rows, err := knowledge.ReadCSVFile(args[0])
	if err != nil {
		return err
	}
	cases := evaluation.CasesFromRows(rows)

	kb, closeFn, err := loadKnowledgeBase(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	thresholds := evalThresholds
	if len(thresholds) == 0 {
		thresholds = evaluation.DefaultThresholds()
	}

	labels := make([]string, len(thresholds))
	for i, t := range thresholds {
		labels[i] = fmt.Sprintf("threshold %.2f", t)
	}
	progress := ui.NewMultiProgress(labels, int64(len(cases)))
	results, err := evaluation.Sweep(ctx, kb, cases, thresholds, progress.Increment)
	progress.Wait()
	if err != nil {
		return err
	}

	table := make([][]string, 0, len(results))
	for _, r := range results {
		table = append(table, []string{
			fmt.Sprintf("%.2f", r.Threshold),
			ui.Percent(r.Coverage()),
			ui.Percent(r.Precision()),
			ui.Percent(r.Accuracy()),
		})
	}
	ui.Section(fmt.Sprintf("Threshold Sweep (%d cases, %d entries)", len(cases), kb.Len()))
	ui.Table([]string{"THRESHOLD", "COVERAGE", "PRECISION", "ACCURACY"}, table)
	ui.Newline()

	if skipped := results[0].Skipped; skipped > 0 {
		ui.Warning("%d cases had no usable words and were skipped", skipped)
	}
	best, _ := evaluation.Best(results)
	ui.Success("Best accuracy %s at threshold %.2f (configured %.2f)", ui.Percent(best.Accuracy()), best.Threshold, cfg.Threshold())
	return nil
}
