package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/supportdesk/qa-assistant/cmd/assistant-cli/ui"
	"github.com/supportdesk/qa-assistant/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base and learning statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.Service.Stats()
	ui.Section("Knowledge Base")
	ui.KeyValue("variant", cfg.Assistant.Variant)
	ui.KeyValue("source", cfg.KnowledgeBase.Source)
	ui.KeyValue("entries", strconv.Itoa(s.EntryCount))
	ui.KeyValue("vocabulary", strconv.Itoa(s.VocabularySize))
	ui.KeyValue("threshold", fmt.Sprintf("%.2f", s.Threshold))
	if labels := a.Service.IntentLabels(); len(labels) > 0 {
		ui.KeyValue("intents", strconv.Itoa(len(labels)))
	}

	ls, err := a.Service.LearningStats(ctx)
	if err != nil {
		return err
	}
	ui.Section("Learning")
	ui.KeyValue("conversations", strconv.Itoa(ls.TotalConversations))
	ui.KeyValue("rated", strconv.Itoa(ls.RatedConversations))
	ui.KeyValue("average rating", fmt.Sprintf("%.2f", ls.AverageRating))
	ui.KeyValue("well rated", strconv.Itoa(ls.WellRated))
	ui.KeyValue("fallbacks", strconv.Itoa(ls.Fallbacks))

	if len(ls.Categories) == 0 {
		ui.Newline()
		ui.Info("No feedback recorded yet")
		return nil
	}

	names := make([]string, 0, len(ls.Categories))
	for name := range ls.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		st := ls.Categories[name]
		rows = append(rows, []string{name, fmt.Sprintf("%.3f", st.RunningAverage), strconv.Itoa(st.SampleCount)})
	}
	ui.Newline()
	ui.Table([]string{"CATEGORY", "AVERAGE", "SAMPLES"}, rows)
	return nil
}
