package components

import (
	"fmt"
	"math"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/pipeline"
)

// Imputer replaces missing values per column. Columns that are missing
// entirely are filled with fill_value.
type Imputer struct {
	base
	strategy  string
	fillValue float64
	fills     []float64
}

func newImputer(params map[string]any) (component.Component, error) {
	strategy, err := component.OneOf(params, "strategy", "mean", "median", "most_frequent", "constant")
	if err != nil {
		return nil, err
	}
	fill, err := component.Float(params, "fill_value")
	if err != nil {
		return nil, err
	}
	return &Imputer{base: base{name: pipeline.Imputer, params: params}, strategy: strategy, fillValue: fill}, nil
}

func (m *Imputer) Fit(X *data.Frame, _ []float64) error {
	m.fills = make([]float64, X.NumCols())
	for j := range m.fills {
		var present []float64
		for _, row := range X.Rows {
			if !isMissing(row[j]) {
				present = append(present, row[j])
			}
		}
		switch {
		case len(present) == 0 || m.strategy == "constant":
			m.fills[j] = m.fillValue
		case m.strategy == "median":
			m.fills[j] = median(present)
		case m.strategy == "most_frequent":
			m.fills[j] = mode(present)
		default:
			m.fills[j] = mean(present)
		}
	}
	return nil
}

func (m *Imputer) Transform(X *data.Frame, _ []float64) (*data.Frame, error) {
	if m.fills == nil {
		return nil, errors.Pipeline(m.name, fmt.Errorf("not fitted"))
	}
	if err := checkWidth(m.name, X, len(m.fills)); err != nil {
		return nil, err
	}
	out := X.Clone()
	for _, row := range out.Rows {
		for j, v := range row {
			if isMissing(v) {
				row[j] = m.fills[j]
			}
		}
	}
	return out, nil
}

// StandardScaler centres every column and scales it to unit variance.
// Missing values are ignored in fit and kept as missing.
type StandardScaler struct {
	base
	means []float64
	stds  []float64
}

func newStandardScaler(params map[string]any) (component.Component, error) {
	return &StandardScaler{base: base{name: pipeline.StandardScaler, params: params}}, nil
}

func (s *StandardScaler) Fit(X *data.Frame, _ []float64) error {
	d := X.NumCols()
	s.means = make([]float64, d)
	s.stds = make([]float64, d)
	for j := 0; j < d; j++ {
		var sum, sq float64
		n := 0
		for _, row := range X.Rows {
			if v := row[j]; !isMissing(v) {
				sum += v
				sq += v * v
				n++
			}
		}
		if n == 0 {
			s.stds[j] = 1
			continue
		}
		m := sum / float64(n)
		variance := sq/float64(n) - m*m
		s.means[j] = m
		s.stds[j] = math.Sqrt(math.Max(variance, 0))
		if s.stds[j] < 1e-12 {
			s.stds[j] = 1
		}
	}
	return nil
}

func (s *StandardScaler) Transform(X *data.Frame, _ []float64) (*data.Frame, error) {
	if s.means == nil {
		return nil, errors.Pipeline(s.name, fmt.Errorf("not fitted"))
	}
	if err := checkWidth(s.name, X, len(s.means)); err != nil {
		return nil, err
	}
	out := X.Clone()
	for _, row := range out.Rows {
		for j := range row {
			row[j] = (row[j] - s.means[j]) / s.stds[j]
		}
	}
	return out, nil
}

// DelayedFeatures emits lagged copies of the features and the target. For
// row t it reads rows t-k for k in [forecast_horizon+gap,
// forecast_horizon+gap+max_delay], so no feature looks closer than the
// forecast horizon. Rows before the first full window carry missing values;
// the pipeline drops them before the estimator.
type DelayedFeatures struct {
	base
	gap, maxDelay, horizon int
	delayFeatures          bool
	delayTarget            bool
}

func newDelayedFeatures(params map[string]any) (component.Component, error) {
	d := &DelayedFeatures{base: base{name: pipeline.DelayedFeatures, params: params}}
	var err error
	if d.gap, err = component.Int(params, pipeline.ParamGap); err != nil {
		return nil, err
	}
	if d.maxDelay, err = component.Int(params, pipeline.ParamMaxDelay); err != nil {
		return nil, err
	}
	if d.horizon, err = component.Int(params, pipeline.ParamForecastHorizon); err != nil {
		return nil, err
	}
	if d.delayFeatures, err = component.Bool(params, "delay_features"); err != nil {
		return nil, err
	}
	if d.delayTarget, err = component.Bool(params, "delay_target"); err != nil {
		return nil, err
	}
	if !d.delayFeatures && !d.delayTarget {
		return nil, errors.InvalidInput("delay_features", "at least one of delay_features and delay_target must be set")
	}
	if d.horizon < 1 || d.gap < 0 || d.maxDelay < 0 {
		return nil, errors.InvalidInput(pipeline.ParamForecastHorizon, "forecast_horizon must be >= 1 and gap, max_delay >= 0")
	}
	return d, nil
}

// Lookback is max_delay + forecast_horizon + gap.
func (d *DelayedFeatures) Lookback() int { return d.maxDelay + d.horizon + d.gap }

func (d *DelayedFeatures) Transform(X *data.Frame, y []float64) (*data.Frame, error) {
	n := X.NumRows()
	if y != nil && len(y) != n {
		return nil, errors.Dataf("%s: %d targets for %d rows", d.name, len(y), n)
	}
	first := d.horizon + d.gap
	var columns []string
	var values [][]float64
	for k := first; k <= first+d.maxDelay; k++ {
		if d.delayFeatures {
			for j, name := range X.Columns {
				columns = append(columns, fmt.Sprintf("%s_delay_%d", name, k))
				values = append(values, lag(n, k, func(i int) float64 { return X.Rows[i][j] }))
			}
		}
		if d.delayTarget {
			columns = append(columns, targetDelayColumn(k))
			values = append(values, lag(n, k, func(i int) float64 {
				if y == nil {
					return math.NaN()
				}
				return y[i]
			}))
		}
	}
	if len(columns) == 0 {
		return nil, errors.Dataf("%s: no columns to delay", d.name)
	}
	return data.FromColumns(columns, values)
}

func lag(n, k int, at func(i int) float64) []float64 {
	out := make([]float64, n)
	for t := range out {
		if t-k < 0 {
			out[t] = math.NaN()
		} else {
			out[t] = at(t - k)
		}
	}
	return out
}
