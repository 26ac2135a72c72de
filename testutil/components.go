package testutil

import (
	"fmt"
	"os"
	"time"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/components"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

// Names of the misbehaving estimators.
const (
	FailingEstimator   = "Failing Estimator"
	PanickingEstimator = "Panicking Estimator"
	SlowEstimator      = "Slow Estimator"
	FlakyEstimator     = "Flaky Estimator"
	CrashingEstimator  = "Crashing Estimator"
)

// Families of the misbehaving estimators.
const (
	FamilyFailing component.Family = "failing"
	FamilySlow    component.Family = "slow"
)

// FlakyMarker is the target value that makes the flaky estimator fail when
// it appears in the training rows.
const FlakyMarker = -999.0

// misbehaving predicts the training mean and fails on demand.
type misbehaving struct {
	name   string
	params map[string]any
	fit    func(y []float64) error
	mean   float64
	width  int
}

func (m *misbehaving) Name() string               { return m.name }
func (m *misbehaving) Parameters() map[string]any { return m.params }

func (m *misbehaving) Fit(X *data.Frame, y []float64) error {
	if err := m.fit(y); err != nil {
		return err
	}
	var sum float64
	n := 0
	for _, v := range y {
		if v != FlakyMarker {
			sum += v
			n++
		}
	}
	if n > 0 {
		m.mean = sum / float64(n)
	}
	m.width = X.NumCols()
	return nil
}

func (m *misbehaving) Predict(X *data.Frame) ([]float64, error) {
	out := make([]float64, X.NumRows())
	for i := range out {
		out[i] = m.mean
	}
	return out, nil
}

func definition(name string, family component.Family, defaults map[string]any, fit func(params map[string]any) func(y []float64) error) component.Definition {
	return component.Definition{
		Name:         name,
		Kind:         component.KindEstimator,
		Family:       family,
		ProblemTypes: problem.All,
		Defaults:     defaults,
		New: func(params map[string]any) (component.Component, error) {
			return &misbehaving{name: name, params: params, fit: fit(params)}, nil
		},
	}
}

// Definitions returns the misbehaving estimators:
//
//   - Failing Estimator returns a data error from Fit.
//   - Panicking Estimator panics in Fit.
//   - Slow Estimator sleeps delay_ms before fitting.
//   - Flaky Estimator fails when the training target holds FlakyMarker.
//   - Crashing Estimator exits the process with code 3. Only worker
//     processes may evaluate it.
func Definitions() []component.Definition {
	return []component.Definition{
		definition(FailingEstimator, FamilyFailing, map[string]any{}, func(map[string]any) func([]float64) error {
			return func([]float64) error { return errors.Data("cannot fit this data") }
		}),
		definition(PanickingEstimator, FamilyFailing, map[string]any{}, func(map[string]any) func([]float64) error {
			return func([]float64) error { panic("estimator exploded") }
		}),
		definition(SlowEstimator, FamilySlow, map[string]any{"delay_ms": 50}, func(params map[string]any) func([]float64) error {
			delay, _ := component.Int(params, "delay_ms")
			return func([]float64) error {
				time.Sleep(time.Duration(delay) * time.Millisecond)
				return nil
			}
		}),
		definition(CrashingEstimator, FamilyFailing, map[string]any{}, func(map[string]any) func([]float64) error {
			return func([]float64) error {
				os.Exit(3)
				return nil
			}
		}),
		definition(FlakyEstimator, FamilyFailing, map[string]any{}, func(map[string]any) func([]float64) error {
			return func(y []float64) error {
				for _, v := range y {
					if v == FlakyMarker {
						return fmt.Errorf("training rows contain %v", FlakyMarker)
					}
				}
				return nil
			}
		}),
	}
}

// Registry returns the built-in components plus the misbehaving estimators.
func Registry() *component.Registry {
	r := components.NewRegistry()
	for _, def := range Definitions() {
		r.MustRegister(def)
	}
	return r
}
