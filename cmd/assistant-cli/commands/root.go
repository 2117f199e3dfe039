// Package commands implements the assistant CLI commands.
package commands

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/supportdesk/qa-assistant/cmd/assistant-cli/ui"
	"github.com/supportdesk/qa-assistant/internal/config"
	"github.com/supportdesk/qa-assistant/internal/observability"
)

var (
	cfgFile string
	verbose bool
	noColor bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "assistant-cli",
	Short: "Support QA assistant - query, import and tune the knowledge base",
	Long: `assistant-cli works with the support assistant's knowledge base directly:
ask questions, import CSV files into the database, train the intent model,
and sweep match thresholds against labelled questions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		ui.Init(noColor, verbose)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      "console",
			Output:      cmd.ErrOrStderr(),
			ServiceName: cfg.Observability.ServiceName,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
