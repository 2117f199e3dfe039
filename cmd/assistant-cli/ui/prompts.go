package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter reads answers to prompts line by line.
type Prompter struct {
	reader *bufio.Reader
}

// NewPrompter reads from r.
func NewPrompter(r io.Reader) *Prompter {
	return &Prompter{reader: bufio.NewReader(r)}
}

// Prompt asks for a line of input. The returned error is io.EOF when input ends.
func (p *Prompter) Prompt(message string) (string, error) {
	fmt.Fprintf(out, "%s: ", message)
	input, err := p.reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
