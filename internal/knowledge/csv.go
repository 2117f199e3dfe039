package knowledge

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingColumn is returned when a CSV header lacks question or answer.
var ErrMissingColumn = errors.New("missing required column")

// ReadCSV parses a headered CSV. Column names are matched case-insensitively;
// question and answer are required, intent, category and hospital are optional.
// Surrounding whitespace and stray double quotes are trimmed from values.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, required := range []string{"question", "answer"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.Trim(strings.TrimSpace(record[idx]), `"`)
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		rows = append(rows, Row{
			Question: field(record, "question"),
			Answer:   field(record, "answer"),
			Intent:   field(record, "intent"),
			Category: field(record, "category"),
			Hospital: field(record, "hospital"),
		})
	}

	return rows, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// CSVFile is a RowSource backed by a CSV file on disk.
type CSVFile string

// Rows implements RowSource.
func (f CSVFile) Rows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadCSVFile(string(f))
}
