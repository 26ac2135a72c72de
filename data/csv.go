package data

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kbukum/automl/errors"
)

// ReadCSV loads a numeric CSV with a header row. The target column is split
// off as y. Empty cells and "NaN"/"null"/"NA" become NaN.
func ReadCSV(r io.Reader, target string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Dataf("reading csv header: %v", err)
	}
	targetCol := -1
	var columns []string
	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == target {
			targetCol = j
			continue
		}
		columns = append(columns, name)
	}
	if targetCol < 0 {
		return nil, errors.Configurationf("target column %q not found in csv header", target)
	}

	var rows [][]float64
	var y []float64
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Dataf("reading csv line %d: %v", line, err)
		}
		row := make([]float64, 0, len(columns))
		for j, cell := range record {
			v, err := parseCell(cell)
			if err != nil {
				return nil, errors.Dataf("line %d column %q: %v", line, header[j], err)
			}
			if j == targetCol {
				y = append(y, v)
				continue
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}

	X, err := NewFrame(columns, rows)
	if err != nil {
		return nil, err
	}
	return NewDataset(X, y)
}

// ReadCSVFile opens path and calls ReadCSV.
func ReadCSVFile(path, target string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Configurationf("opening %s: %v", path, err)
	}
	defer f.Close()
	return ReadCSV(f, target)
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "nan", "null", "na", "none":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}
