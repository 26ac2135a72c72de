package components

import (
	"math"
	"sort"

	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

var (
	classificationTypes = []problem.Type{
		problem.Binary, problem.Multiclass, problem.TimeSeriesBinary, problem.TimeSeriesMulticlass,
	}
	regressionTypes = []problem.Type{problem.Regression, problem.TimeSeriesRegression}
	timeSeriesTypes = []problem.Type{
		problem.TimeSeriesBinary, problem.TimeSeriesMulticlass, problem.TimeSeriesRegression,
	}
	allTypes = problem.All
)

// base carries the parameters every component reports.
type base struct {
	name   string
	params map[string]any
}

func (b *base) Name() string { return b.name }

func (b *base) Parameters() map[string]any { return b.params }

func checkFit(name string, X *data.Frame, y []float64) error {
	if X.NumRows() == 0 {
		return errors.Dataf("%s: cannot fit on zero rows", name)
	}
	if len(y) != X.NumRows() {
		return errors.Dataf("%s: %d targets for %d rows", name, len(y), X.NumRows())
	}
	for _, v := range y {
		if math.IsNaN(v) {
			return errors.Dataf("%s: target contains missing values", name)
		}
	}
	return nil
}

func checkFinite(name string, X *data.Frame) error {
	if X.HasNaN() {
		return errors.Dataf("%s: input contains missing or infinite values", name)
	}
	return nil
}

func checkWidth(name string, X *data.Frame, width int) error {
	if X.NumCols() != width {
		return errors.Dataf("%s: fitted on %d columns, got %d", name, width, X.NumCols())
	}
	return nil
}

func sortedClasses(y []float64) []float64 {
	return data.UniqueValues(y)
}

// classProba turns per-class weights into a probability row.
func classProba(weights []float64) []float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	out := make([]float64, len(weights))
	if sum == 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	for i, w := range weights {
		out[i] = w / sum
	}
	return out
}

func classIndex(classes []float64) map[float64]int {
	out := make(map[float64]int, len(classes))
	for i, c := range classes {
		out[c] = i
	}
	return out
}

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// mode returns the most frequent value, the smallest on ties.
func mode(v []float64) float64 {
	counts := data.ClassCounts(v)
	best, bestN := math.NaN(), -1
	for _, c := range data.UniqueValues(v) {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}
