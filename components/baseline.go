package components

import (
	"fmt"
	"math"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/problem"
)

// BaselineClassifier predicts the most frequent class ("mode") or draws
// probabilities from the class frequencies ("prior").
type BaselineClassifier struct {
	base
	strategy string
	classes  []float64
	proba    []float64
	mode     float64
}

func newBaselineClassifier(params map[string]any) (component.Component, error) {
	strategy, err := component.OneOf(params, "strategy", "mode", "prior")
	if err != nil {
		return nil, err
	}
	return &BaselineClassifier{base: base{name: pipeline.BaselineClassifier, params: params}, strategy: strategy}, nil
}

func (b *BaselineClassifier) Fit(X *data.Frame, y []float64) error {
	if err := checkFit(b.name, X, y); err != nil {
		return err
	}
	b.classes = sortedClasses(y)
	counts := data.ClassCounts(y)
	b.proba = make([]float64, len(b.classes))
	for i, c := range b.classes {
		b.proba[i] = float64(counts[c]) / float64(len(y))
	}
	b.mode = mode(y)
	return nil
}

func (b *BaselineClassifier) Predict(X *data.Frame) ([]float64, error) {
	pred, err := b.PredictProba(X)
	return pred.Values, err
}

func (b *BaselineClassifier) PredictProba(X *data.Frame) (data.Prediction, error) {
	if b.classes == nil {
		return data.Prediction{}, errors.Pipeline(b.name, fmt.Errorf("not fitted"))
	}
	n := X.NumRows()
	pred := data.Prediction{Values: make([]float64, n), Proba: make([][]float64, n), Classes: b.classes}
	modeIdx := classIndex(b.classes)[b.mode]
	for i := 0; i < n; i++ {
		pred.Values[i] = b.mode
		row := make([]float64, len(b.classes))
		if b.strategy == "prior" {
			copy(row, b.proba)
		} else {
			row[modeIdx] = 1
		}
		pred.Proba[i] = row
	}
	return pred, nil
}

// BaselineRegressor predicts the training mean or median.
type BaselineRegressor struct {
	base
	strategy string
	value    float64
	fitted   bool
}

func newBaselineRegressor(params map[string]any) (component.Component, error) {
	strategy, err := component.OneOf(params, "strategy", "mean", "median")
	if err != nil {
		return nil, err
	}
	return &BaselineRegressor{base: base{name: pipeline.BaselineRegressor, params: params}, strategy: strategy}, nil
}

func (b *BaselineRegressor) Fit(X *data.Frame, y []float64) error {
	if err := checkFit(b.name, X, y); err != nil {
		return err
	}
	if b.strategy == "median" {
		b.value = median(y)
	} else {
		b.value = mean(y)
	}
	b.fitted = true
	return nil
}

func (b *BaselineRegressor) Predict(X *data.Frame) ([]float64, error) {
	if !b.fitted {
		return nil, errors.Pipeline(b.name, fmt.Errorf("not fitted"))
	}
	out := make([]float64, X.NumRows())
	for i := range out {
		out[i] = b.value
	}
	return out, nil
}

// TimeSeriesBaseline predicts the target observed forecast_horizon+gap rows
// earlier, read from the delayed target column.
type TimeSeriesBaseline struct {
	base
	column         string
	classification bool
	classes        []float64
}

func newTimeSeriesBaseline(params map[string]any) (component.Component, error) {
	gap, err := component.Int(params, pipeline.ParamGap)
	if err != nil {
		return nil, err
	}
	horizon, err := component.Int(params, pipeline.ParamForecastHorizon)
	if err != nil {
		return nil, err
	}
	typ, err := component.String(params, pipeline.ParamProblemType)
	if err != nil {
		return nil, err
	}
	return &TimeSeriesBaseline{
		base:           base{name: pipeline.TimeSeriesBaseline, params: params},
		column:         targetDelayColumn(horizon + gap),
		classification: problem.Type(typ).IsClassification(),
	}, nil
}

func (b *TimeSeriesBaseline) Fit(X *data.Frame, y []float64) error {
	if err := checkFit(b.name, X, y); err != nil {
		return err
	}
	if X.ColumnIndex(b.column) < 0 {
		return errors.Dataf("%s: input has no %q column", b.name, b.column)
	}
	b.classes = sortedClasses(y)
	return nil
}

func (b *TimeSeriesBaseline) Predict(X *data.Frame) ([]float64, error) {
	j := X.ColumnIndex(b.column)
	if j < 0 {
		return nil, errors.Dataf("%s: input has no %q column", b.name, b.column)
	}
	return X.Column(j), nil
}

func (b *TimeSeriesBaseline) PredictProba(X *data.Frame) (data.Prediction, error) {
	values, err := b.Predict(X)
	if err != nil {
		return data.Prediction{}, err
	}
	pred := data.Prediction{Values: values}
	if !b.classification {
		return pred, nil
	}
	index := classIndex(b.classes)
	pred.Classes = b.classes
	pred.Proba = make([][]float64, len(values))
	for i, v := range values {
		row := make([]float64, len(b.classes))
		if k, ok := index[v]; ok {
			row[k] = 1
		} else {
			for k := range row {
				row[k] = 1 / float64(len(row))
			}
		}
		pred.Proba[i] = row
	}
	return pred, nil
}

func targetDelayColumn(k int) string {
	return fmt.Sprintf("target_delay_%d", k)
}

func isMissing(v float64) bool {
	return math.IsNaN(v)
}
