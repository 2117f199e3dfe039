package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Table displays rows in aligned columns.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

// Percent formats a ratio in [0, 1] as a percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
