// Package data holds the tabular inputs of a search: a feature Frame, a
// target vector and the Prediction values components produce.
package data

import (
	"fmt"
	"math"

	"github.com/kbukum/automl/errors"
)

// Frame is a row-major matrix of float64 features. Missing values are NaN.
// A Frame is treated as read-only once built; operations return new frames.
type Frame struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// NewFrame builds a Frame and checks every row has one value per column.
func NewFrame(columns []string, rows [][]float64) (*Frame, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.Dataf("row %d has %d values, expected %d", i, len(row), len(columns))
		}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// FromColumns builds a Frame from column vectors of equal length.
func FromColumns(columns []string, values [][]float64) (*Frame, error) {
	if len(columns) != len(values) {
		return nil, errors.Dataf("got %d column names for %d columns", len(columns), len(values))
	}
	n := 0
	if len(values) > 0 {
		n = len(values[0])
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, len(columns))
	}
	for j, col := range values {
		if len(col) != n {
			return nil, errors.Dataf("column %q has %d values, expected %d", columns[j], len(col), n)
		}
		for i, v := range col {
			rows[i][j] = v
		}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// NumCols returns the number of columns.
func (f *Frame) NumCols() int {
	if f == nil {
		return 0
	}
	return len(f.Columns)
}

// At returns the value at row i, column j.
func (f *Frame) At(i, j int) float64 { return f.Rows[i][j] }

// Column returns a copy of column j.
func (f *Frame) Column(j int) []float64 {
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[j]
	}
	return out
}

// ColumnIndex returns the position of a named column or -1.
func (f *Frame) ColumnIndex(name string) int {
	for j, c := range f.Columns {
		if c == name {
			return j
		}
	}
	return -1
}

// Take returns a frame holding the given rows in order. Row slices are shared.
func (f *Frame) Take(idx []int) *Frame {
	rows := make([][]float64, len(idx))
	for k, i := range idx {
		rows[k] = f.Rows[i]
	}
	return &Frame{Columns: f.Columns, Rows: rows}
}

// Slice returns rows [from, to). Row slices are shared.
func (f *Frame) Slice(from, to int) *Frame {
	return &Frame{Columns: f.Columns, Rows: f.Rows[from:to]}
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	rows := make([][]float64, len(f.Rows))
	for i, row := range f.Rows {
		rows[i] = append([]float64(nil), row...)
	}
	return &Frame{Columns: append([]string(nil), f.Columns...), Rows: rows}
}

// HStack concatenates frames column-wise. All frames must have the same row count.
func HStack(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return &Frame{}, nil
	}
	if len(frames) == 1 {
		return frames[0], nil
	}
	n := frames[0].NumRows()
	var columns []string
	for _, f := range frames {
		if f.NumRows() != n {
			return nil, errors.Dataf("cannot stack frames with %d and %d rows", n, f.NumRows())
		}
		columns = append(columns, f.Columns...)
	}
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, 0, len(columns))
		for _, f := range frames {
			row = append(row, f.Rows[i]...)
		}
		rows[i] = row
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// HasNaN reports whether any value is NaN or infinite.
func (f *Frame) HasNaN() bool {
	for _, row := range f.Rows {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}

// NullFraction returns the fraction of NaN values in column j.
func (f *Frame) NullFraction(j int) float64 {
	if len(f.Rows) == 0 {
		return 0
	}
	nulls := 0
	for _, row := range f.Rows {
		if math.IsNaN(row[j]) {
			nulls++
		}
	}
	return float64(nulls) / float64(len(f.Rows))
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%d rows x %d cols)", f.NumRows(), f.NumCols())
}
