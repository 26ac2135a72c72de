package testutil

import (
	"math"
	"math/rand"

	"github.com/kbukum/automl/data"
)

// Binary returns n rows of two standard-normal features where the label is
// 1 when a + b > 0, flipped with probability noise.
func Binary(n int, noise float64, seed int64) *data.Dataset {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	y := make([]float64, n)
	for i := range rows {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		rows[i] = []float64{a, b}
		if a+b > 0 {
			y[i] = 1
		}
		if rng.Float64() < noise {
			y[i] = 1 - y[i]
		}
	}
	return &data.Dataset{X: &data.Frame{Columns: []string{"a", "b"}, Rows: rows}, Y: y}
}

// Multiclass returns n rows drawn around k cluster centres on a circle.
// The label is the centre index.
func Multiclass(n, k int, seed int64) *data.Dataset {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	y := make([]float64, n)
	for i := range rows {
		c := i % k
		angle := 2 * math.Pi * float64(c) / float64(k)
		rows[i] = []float64{3*math.Cos(angle) + rng.NormFloat64()*0.5, 3*math.Sin(angle) + rng.NormFloat64()*0.5}
		y[i] = float64(c)
	}
	return &data.Dataset{X: &data.Frame{Columns: []string{"x", "y"}, Rows: rows}, Y: y}
}

// Regression returns n rows with y = 3a - 2b + 1 plus Gaussian noise.
func Regression(n int, noise float64, seed int64) *data.Dataset {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	y := make([]float64, n)
	for i := range rows {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		rows[i] = []float64{a, b}
		y[i] = 3*a - 2*b + 1 + rng.NormFloat64()*noise
	}
	return &data.Dataset{X: &data.Frame{Columns: []string{"a", "b"}, Rows: rows}, Y: y}
}

// Series returns a time-ordered dataset of n rows whose target is the row
// index. The single feature is the index scaled to [0, 1).
func Series(n int) *data.Dataset {
	rows := make([][]float64, n)
	y := make([]float64, n)
	for i := range rows {
		rows[i] = []float64{float64(i) / float64(n)}
		y[i] = float64(i)
	}
	return &data.Dataset{X: &data.Frame{Columns: []string{"t"}, Rows: rows}, Y: y}
}

// SeriesBinary returns a time-ordered dataset whose target alternates in
// runs of period rows.
func SeriesBinary(n, period int) *data.Dataset {
	ds := Series(n)
	for i := range ds.Y {
		ds.Y[i] = float64((i / period) % 2)
	}
	return ds
}

// WithMissing sets every step-th value of column j to NaN.
func WithMissing(ds *data.Dataset, j, step int) *data.Dataset {
	out := &data.Dataset{X: ds.X.Clone(), Y: append([]float64(nil), ds.Y...)}
	for i := 0; i < out.X.NumRows(); i += step {
		out.X.Rows[i][j] = math.NaN()
	}
	return out
}
