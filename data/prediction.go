package data

import "math"

// Prediction is the output of an estimator over a set of rows.
// Regression estimators fill Values only. Classifiers also fill Proba, one
// row per input row with columns ordered as Classes.
type Prediction struct {
	Values  []float64   `json:"values"`
	Proba   [][]float64 `json:"proba,omitempty"`
	Classes []float64   `json:"classes,omitempty"`
}

// Len returns the number of predicted rows.
func (p Prediction) Len() int { return len(p.Values) }

// HasProba reports whether class probabilities are available.
func (p Prediction) HasProba() bool { return len(p.Proba) > 0 }

// ClassProba returns P(class) for every row, zero when the class was not seen in fit.
func (p Prediction) ClassProba(class float64) []float64 {
	out := make([]float64, len(p.Proba))
	col := -1
	for j, c := range p.Classes {
		if c == class {
			col = j
		}
	}
	if col < 0 {
		return out
	}
	for i, row := range p.Proba {
		out[i] = row[col]
	}
	return out
}

// PositiveProba returns the probability of the positive (largest) class of a
// binary problem.
func (p Prediction) PositiveProba() []float64 {
	return p.ClassProba(1)
}

// Slice returns rows [from, to).
func (p Prediction) Slice(from, to int) Prediction {
	out := Prediction{Values: p.Values[from:to], Classes: p.Classes}
	if p.HasProba() {
		out.Proba = p.Proba[from:to]
	}
	return out
}

// AlignProba returns probabilities for the given class order, filling classes
// unseen in fit with zero.
func (p Prediction) AlignProba(classes []float64) [][]float64 {
	out := make([][]float64, len(p.Proba))
	cols := make([]int, len(classes))
	for k, c := range classes {
		cols[k] = -1
		for j, pc := range p.Classes {
			if pc == c {
				cols[k] = j
			}
		}
	}
	for i, row := range p.Proba {
		aligned := make([]float64, len(classes))
		for k, j := range cols {
			if j >= 0 {
				aligned[k] = row[j]
			}
		}
		out[i] = aligned
	}
	return out
}

// ArgMax returns the class with the highest probability in each row.
// Ties go to the first class.
func ArgMax(proba [][]float64, classes []float64) []float64 {
	out := make([]float64, len(proba))
	for i, row := range proba {
		best, bestP := 0, math.Inf(-1)
		for j, p := range row {
			if p > bestP {
				best, bestP = j, p
			}
		}
		if best < len(classes) {
			out[i] = classes[best]
		}
	}
	return out
}
