package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/supportdesk/qa-assistant/cmd/assistant-cli/ui"
	"github.com/supportdesk/qa-assistant/internal/app"
	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Replace the database knowledge base with a CSV file",
	Long: `Import reads a question/answer CSV and replaces the qa_entries table with it.
Row order in the file becomes match precedence. The file is checked before
anything is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Database.Driver == "none" {
		return errors.New("import needs a database: set database.driver to sqlite or postgres")
	}

	ui.Step("Reading %s", args[0])
	rows, err := knowledge.ReadCSVFile(args[0])
	if err != nil {
		return err
	}

	kb, err := knowledge.Load(rows, app.LoadOptions(cfg))
	if err != nil {
		return fmt.Errorf("check knowledge base: %w", err)
	}
	if kb.Dropped() > 0 {
		ui.Warning("%d rows have no usable question or answer and will not be matched", kb.Dropped())
	}

	db, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer db.Close()

	bar := ui.NewProgressBar(int64(len(rows)), "Importing")
	err = storage.NewQARepository(db).ReplaceAll(ctx, rows, func(done int) {
		bar.Set(int64(done))
	})
	bar.Finish()
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	ui.Success("Imported %d rows (%d usable, vocabulary %d)", len(rows), kb.Len(), kb.Space().Dimension())
	if cfg.KnowledgeBase.Source != "database" {
		ui.Info("Set knowledge_base.source to \"database\" to serve from the imported rows")
	}
	return nil
}
