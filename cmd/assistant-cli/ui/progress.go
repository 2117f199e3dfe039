package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// ProgressBar wraps a progressbar instance for deterministic progress display.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a new progress bar with the given total and description.
func NewProgressBar(total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(errOut),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(errOut, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// Set moves the bar to current.
func (p *ProgressBar) Set(current int64) {
	_ = p.bar.Set64(current)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = errOut
	return &Spinner{spinner: s}
}

// Start starts the spinner animation. It is a no-op when stderr is not a terminal.
func (s *Spinner) Start() {
	if IsTerminal() {
		s.spinner.Start()
	}
}

// Stop stops the spinner animation.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// MultiProgress renders one bar per sweep step.
type MultiProgress struct {
	progress *mpb.Progress
	bars     []*mpb.Bar
}

// NewMultiProgress creates a bar named after each label, each counting to total.
// Nothing is rendered when stdout is not a terminal.
func NewMultiProgress(labels []string, total int64) *MultiProgress {
	if !IsTerminal() {
		return &MultiProgress{}
	}

	p := mpb.New(mpb.WithWidth(48), mpb.WithOutput(errOut))
	m := &MultiProgress{progress: p}
	for _, name := range labels {
		m.bars = append(m.bars, p.AddBar(total,
			mpb.PrependDecorators(
				decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.Percentage(decor.WC{W: 5}), " done"),
			),
		))
	}
	return m
}

// Increment advances bar i by one.
func (m *MultiProgress) Increment(i int) {
	if i < 0 || i >= len(m.bars) {
		return
	}
	m.bars[i].Increment()
}

// Wait blocks until every bar has rendered its final state.
func (m *MultiProgress) Wait() {
	if m.progress == nil {
		return
	}
	for _, b := range m.bars {
		if !b.Completed() {
			b.Abort(false)
		}
	}
	m.progress.Wait()
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
