package pipeline

import (
	"strings"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

// Names of the built-in components default pipelines are assembled from.
const (
	Imputer              = "Imputer"
	DelayedFeatures      = "Delayed Feature Transformer"
	StandardScaler       = "Standard Scaler"
	BaselineClassifier   = "Baseline Classifier"
	BaselineRegressor    = "Baseline Regressor"
	TimeSeriesBaseline   = "Time Series Baseline Estimator"
	StackedEnsembleClass = "Stacked Ensemble Classifier"
	StackedEnsembleReg   = "Stacked Ensemble Regressor"
)

// Parameter names filled from the problem configuration and the search seed
// on every component that declares them.
const (
	ParamGap             = "gap"
	ParamMaxDelay        = "max_delay"
	ParamForecastHorizon = "forecast_horizon"
	ParamRandomSeed      = "random_seed"
	ParamProblemType     = "problem_type"
)

// MakeDefault builds the default pipeline for an estimator:
// Imputer -> [Delayed Feature Transformer] -> [Standard Scaler] -> estimator.
// The delay step is added for time-series problems and the scaler for
// distance and gradient based families.
func MakeDefault(registry *component.Registry, cfg problem.Config, estimator string, seed int64) (Configuration, error) {
	def, ok := registry.Get(estimator)
	if !ok {
		return Configuration{}, errors.Configurationf("estimator %q is not registered", estimator)
	}
	if def.Kind != component.KindEstimator {
		return Configuration{}, errors.Configurationf("%q is not an estimator", estimator)
	}
	if !def.Supports(cfg.Type) {
		return Configuration{}, errors.Configurationf("%s does not support %s problems", estimator, cfg.Type)
	}

	steps := []string{Imputer}
	if cfg.Type.IsTimeSeries() {
		steps = append(steps, DelayedFeatures)
	}
	if def.Family == component.FamilyLinearModel || def.Family == component.FamilyKNeighbors {
		steps = append(steps, StandardScaler)
	}
	name := estimator
	if len(steps) > 0 {
		name += " w/ " + strings.Join(steps, " + ")
	}
	steps = append(steps, estimator)

	c := Configuration{
		Name:        name,
		Family:      def.Family,
		ProblemType: cfg.Type,
		Graph:       Linear(steps...),
	}
	return WithProblemParameters(registry, c, cfg, seed), nil
}

// MakeBaseline builds the trivial pipeline every search starts from.
func MakeBaseline(registry *component.Registry, cfg problem.Config, seed int64) (Configuration, error) {
	var c Configuration
	switch {
	case cfg.Type.IsTimeSeries():
		c = Configuration{
			Name:  "Time Series Baseline Pipeline",
			Graph: Linear(DelayedFeatures, TimeSeriesBaseline),
			Parameters: map[string]map[string]any{
				DelayedFeatures: {"delay_features": false, "delay_target": true},
			},
		}
	case cfg.Type.IsClassification():
		c = Configuration{
			Name:  "Mode Baseline " + classificationLabel(cfg.Type) + " Pipeline",
			Graph: Linear(BaselineClassifier),
			Parameters: map[string]map[string]any{
				BaselineClassifier: {"strategy": "mode"},
			},
		}
	default:
		c = Configuration{
			Name:  "Mean Baseline Regression Pipeline",
			Graph: Linear(BaselineRegressor),
			Parameters: map[string]map[string]any{
				BaselineRegressor: {"strategy": "mean"},
			},
		}
	}
	c.Family = component.FamilyBaseline
	c.ProblemType = cfg.Type
	for _, n := range c.Graph.Nodes {
		if _, ok := registry.Get(n.Component); !ok {
			return Configuration{}, errors.Configurationf("baseline component %q is not registered", n.Component)
		}
	}
	return WithProblemParameters(registry, c, cfg, seed), nil
}

// WithProblemParameters sets the problem type, time-series settings and the
// seed on every node whose component declares them.
func WithProblemParameters(registry *component.Registry, c Configuration, cfg problem.Config, seed int64) Configuration {
	gap, maxDelay, horizon := cfg.Window()
	values := map[string]any{ParamRandomSeed: seed, ParamProblemType: string(cfg.Type)}
	if cfg.Type.IsTimeSeries() {
		values[ParamGap] = gap
		values[ParamMaxDelay] = maxDelay
		values[ParamForecastHorizon] = horizon
	}
	for _, n := range c.Graph.Nodes {
		def, ok := registry.Get(n.Component)
		if !ok {
			continue
		}
		set := make(map[string]any)
		for key, v := range values {
			if _, declared := def.Defaults[key]; declared {
				set[key] = v
			}
		}
		if len(set) > 0 {
			c = c.WithParameters(n.Name, set)
		}
	}
	return c
}

func classificationLabel(t problem.Type) string {
	if t.IsBinary() {
		return "Binary Classification"
	}
	return "Multiclass Classification"
}
