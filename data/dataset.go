package data

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"io"
	"math"
	"sort"

	"github.com/kbukum/automl/errors"
)

// Dataset is a feature frame and its target.
type Dataset struct {
	X *Frame    `json:"x"`
	Y []float64 `json:"y"`
	// Classes maps encoded labels back to the original target values.
	// It is set by EncodeLabels for classification problems.
	Classes []float64 `json:"classes,omitempty"`
}

// NewDataset checks X and y are non-empty and the same length.
func NewDataset(X *Frame, y []float64) (*Dataset, error) {
	ds := &Dataset{X: X, Y: y}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks the dataset can be searched over.
func (d *Dataset) Validate() error {
	if d == nil || d.X == nil || d.X.NumRows() == 0 {
		return errors.Configuration("Input X is empty")
	}
	if len(d.Y) == 0 {
		return errors.Configuration("Input y is empty")
	}
	if d.X.NumRows() != len(d.Y) {
		return errors.Configurationf("Input X has %d rows but y has %d values", d.X.NumRows(), len(d.Y))
	}
	return nil
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int { return len(d.Y) }

// Take returns the rows at idx. Rows are shared with the receiver.
func (d *Dataset) Take(idx []int) *Dataset {
	y := make([]float64, len(idx))
	for k, i := range idx {
		y[k] = d.Y[i]
	}
	return &Dataset{X: d.X.Take(idx), Y: y, Classes: d.Classes}
}

// EncodeLabels replaces the target with class indices 0..k-1 in sorted order
// of the original values, keeping the original values in Classes.
func (d *Dataset) EncodeLabels() error {
	classes := UniqueValues(d.Y)
	if len(classes) > 0 && math.IsNaN(classes[len(classes)-1]) {
		return errors.Data("target contains missing values")
	}
	index := make(map[float64]float64, len(classes))
	for i, c := range classes {
		index[c] = float64(i)
	}
	encoded := make([]float64, len(d.Y))
	for i, v := range d.Y {
		encoded[i] = index[v]
	}
	d.Y = encoded
	d.Classes = classes
	return nil
}

// DecodeLabels maps encoded labels back to original target values.
func (d *Dataset) DecodeLabels(encoded []float64) []float64 {
	if len(d.Classes) == 0 {
		return encoded
	}
	out := make([]float64, len(encoded))
	for i, v := range encoded {
		k := int(v)
		if k >= 0 && k < len(d.Classes) {
			out[i] = d.Classes[k]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Fingerprint is a SHA-256 digest of the encoded dataset. Remote engines use it
// to store the data once under a content-addressed key.
func (d *Dataset) Fingerprint() (string, error) {
	raw, err := d.MarshalBinary()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// MarshalBinary encodes the dataset with gob.
func (d *Dataset) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a gob-encoded dataset.
func (d *Dataset) UnmarshalBinary(raw []byte) error {
	return d.Decode(bytes.NewReader(raw))
}

// gobDataset has no binary marshaller of its own, so gob encodes its fields.
type gobDataset Dataset

// Encode writes the dataset to w.
func (d *Dataset) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode((*gobDataset)(d)); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// Decode reads a dataset written by Encode.
func (d *Dataset) Decode(r io.Reader) error {
	if err := gob.NewDecoder(r).Decode((*gobDataset)(d)); err != nil {
		return errors.Dataf("decoding dataset: %v", err)
	}
	return nil
}

// UniqueValues returns the sorted distinct values of v. NaN sorts last.
func UniqueValues(v []float64) []float64 {
	seen := make(map[float64]bool)
	hasNaN := false
	var out []float64
	for _, x := range v {
		if math.IsNaN(x) {
			hasNaN = true
			continue
		}
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	if hasNaN {
		out = append(out, math.NaN())
	}
	return out
}

// ClassCounts counts rows per label.
func ClassCounts(y []float64) map[float64]int {
	counts := make(map[float64]int)
	for _, v := range y {
		counts[v]++
	}
	return counts
}
