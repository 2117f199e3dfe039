// Package ui provides terminal output for the assistant CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	out     io.Writer = os.Stdout
	errOut  io.Writer = os.Stderr
	verbose bool
)

// Init applies the global color and verbosity settings.
func Init(noColor, beVerbose bool) {
	verbose = beVerbose
	if noColor {
		color.NoColor = true
	}
}

// SetOutput redirects normal and error output. Used by tests.
func SetOutput(stdout, stderr io.Writer) {
	out = stdout
	errOut = stderr
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(errOut, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Step displays a step indicator message.
func Step(format string, args ...interface{}) {
	color.New(color.FgBlue).Fprintf(out, "→ %s\n", fmt.Sprintf(format, args...))
}

// Verbose displays a message only when verbose output is on.
func Verbose(format string, args ...interface{}) {
	if !verbose {
		return
	}
	color.New(color.Faint).Fprintf(out, "  %s\n", fmt.Sprintf(format, args...))
}

// Section displays a section header.
func Section(title string) {
	color.New(color.Bold).Fprintf(out, "\n%s\n", title)
	fmt.Fprintf(out, "%s\n\n", underline(len([]rune(title))))
}

// KeyValue displays a key-value pair.
func KeyValue(key, value string) {
	fmt.Fprintf(out, "  %s: %s\n", color.New(color.Faint).Sprint(key), value)
}

// Newline prints a newline.
func Newline() {
	fmt.Fprintln(out)
}

// Answer prints the assistant's reply.
func Answer(text string) {
	color.New(color.FgGreen, color.Bold).Fprint(out, "Assistant: ")
	fmt.Fprintln(out, text)
}

func underline(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '='
	}
	return string(b)
}
