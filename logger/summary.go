package logger

import (
	"fmt"
	"strings"
)

// Summary renders a fixed-width table through a Logger, one line per row.
// The search uses it for end-of-search rankings and pipeline descriptions.
type Summary struct {
	Title   string
	Headers []string
	rows    [][]string
}

// NewSummary creates a summary table with the given column headers.
func NewSummary(title string, headers ...string) *Summary {
	return &Summary{Title: title, Headers: headers}
}

// AddRow appends a row; values are formatted with %v and floats with 4 decimals.
func (s *Summary) AddRow(values ...interface{}) {
	row := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case float64:
			row[i] = fmt.Sprintf("%.4f", x)
		case nil:
			row[i] = "-"
		default:
			row[i] = fmt.Sprintf("%v", x)
		}
	}
	s.rows = append(s.rows, row)
}

// Len returns the number of rows.
func (s *Summary) Len() int { return len(s.rows) }

// Lines renders the title, header, separator and rows.
func (s *Summary) Lines() []string {
	widths := make([]int, len(s.Headers))
	for i, h := range s.Headers {
		widths[i] = len(h)
	}
	for _, row := range s.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	format := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	lines := make([]string, 0, len(s.rows)+3)
	if s.Title != "" {
		lines = append(lines, s.Title)
	}
	lines = append(lines, format(s.Headers))
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	lines = append(lines, format(sep))
	for _, row := range s.rows {
		lines = append(lines, format(row))
	}
	return lines
}

// Log writes every rendered line at info level.
func (s *Summary) Log(l *Logger) {
	for _, line := range s.Lines() {
		l.Info(line)
	}
}
