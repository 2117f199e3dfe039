package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/supportdesk/qa-assistant/cmd/assistant-cli/ui"
	"github.com/supportdesk/qa-assistant/internal/app"
	"github.com/supportdesk/qa-assistant/internal/assistant"
)

var queryRating int

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask the assistant a question",
	Long: `Ask the assistant a question. Without arguments an interactive session
starts; after each answer you can rate it from 1 to 5 to teach the assistant.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryRating, "rate", "r", 0, "rate the answer (1-5) after a single query")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) > 0 {
		resp, err := ask(ctx, a.Service, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if queryRating > 0 {
			rate(ctx, a.Service, resp, queryRating)
		}
		return nil
	}

	return runQueryMode(ctx, a.Service, cmd.InOrStdin())
}

// runQueryMode reads questions until EOF or "exit".
func runQueryMode(ctx context.Context, svc *assistant.Service, in io.Reader) error {
	ui.Section("Support Assistant")
	ui.Info("Type your question, or \"exit\" to quit.")
	ui.Newline()

	prompter := ui.NewPrompter(in)
	for {
		question, err := prompter.Prompt("You")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		resp, err := ask(ctx, svc, question)
		if err != nil {
			return err
		}
		if resp == nil {
			continue
		}

		answer, err := prompter.Prompt("Rate 1-5 (enter to skip)")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if answer == "" {
			continue
		}
		rating, err := strconv.Atoi(answer)
		if err != nil {
			ui.Warning("Not a number, rating skipped")
			continue
		}
		rate(ctx, svc, resp, rating)
		ui.Newline()
	}
}

// ask answers one question. It returns nil without error when the question
// had no usable words.
func ask(ctx context.Context, svc *assistant.Service, question string) (*assistant.Response, error) {
	spinner := ui.NewSpinner("Thinking...")
	spinner.Start()
	resp, err := svc.Query(ctx, question)
	spinner.Stop()

	if errors.Is(err, assistant.ErrEmptyQuery) {
		ui.Warning("I didn't catch a question there. Could you rephrase?")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	ui.Answer(resp.Answer)
	ui.KeyValue("method", string(resp.Result.Method))
	ui.KeyValue("confidence", ui.Percent(resp.Result.AdjustedConfidence))
	ui.KeyValue("category", resp.Category)
	if resp.Intent != "" {
		ui.KeyValue("intent", fmt.Sprintf("%s (%s)", resp.Intent, ui.Percent(resp.IntentConfidence)))
	}
	if resp.Result.Entry != nil {
		ui.Verbose("matched %q at %.3f", resp.Result.Entry.Question, resp.Result.RawSimilarity)
	}
	for _, alt := range resp.Alternatives {
		ui.Verbose("also %q at %.3f", alt.Question, alt.Similarity)
	}
	return resp, nil
}

func rate(ctx context.Context, svc *assistant.Service, resp *assistant.Response, rating int) {
	stat := svc.SubmitFeedback(ctx, resp.Category, rating)
	if err := svc.RateConversation(ctx, resp.ID, rating); err != nil {
		ui.Verbose("conversation not rated: %v", err)
	}
	ui.Success("Thanks! %s now averages %.2f over %d ratings", resp.Category, stat.RunningAverage, stat.SampleCount)
}
