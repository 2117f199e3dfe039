package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/supportdesk/qa-assistant/cmd/assistant-cli/ui"
	"github.com/supportdesk/qa-assistant/internal/assistant"
	"github.com/supportdesk/qa-assistant/internal/config"
)

var (
	trainOut     string
	trainLexicon bool
	trainFloor   float64
)

var trainIntentsCmd = &cobra.Command{
	Use:   "train-intents",
	Short: "Train the intent model and save it",
	Long: `Train nearest-centroid intent classes from the knowledge base's intent
column, optionally adding the built-in hospital lexicon, and write the model
as YAML. The model only works with the vocabulary it was trained on.`,
	RunE: runTrainIntents,
}

func init() {
	trainIntentsCmd.Flags().StringVarP(&trainOut, "out", "o", "", "model output path (default intent.model_path, or intents.yaml)")
	trainIntentsCmd.Flags().BoolVar(&trainLexicon, "lexicon", false, "add the hospital lexicon examples")
	trainIntentsCmd.Flags().Float64Var(&trainFloor, "floor", 0, "confidence floor (default intent.floor)")
	rootCmd.AddCommand(trainIntentsCmd)
}

func runTrainIntents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kb, closeFn, err := loadKnowledgeBase(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	useLexicon := trainLexicon || cfg.Intent.UseLexicon || cfg.Assistant.Variant == config.VariantHospital
	floor := trainFloor
	if floor <= 0 {
		floor = cfg.Intent.Floor
	}

	model, err := assistant.TrainModel(kb, useLexicon, floor)
	if err != nil {
		return err
	}

	out := trainOut
	if out == "" {
		out = valueOr(cfg.Intent.ModelPath, "intents.yaml")
	}
	if err := model.Save(out); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	rows := make([][]string, 0, len(model.Centroids))
	for _, c := range model.Centroids {
		rows = append(rows, []string{c.Label, strconv.Itoa(c.Examples), strconv.Itoa(len(c.Weights))})
	}
	ui.Section("Intent Model")
	ui.Table([]string{"INTENT", "EXAMPLES", "TERMS"}, rows)
	ui.Newline()
	ui.Success("Saved %d intents to %s (floor %.2f)", len(model.Centroids), out, model.Floor)
	return nil
}
