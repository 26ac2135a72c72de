package components

import (
	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/problem"
)

// Definitions returns the built-in component definitions. Ensemble factories
// build their input pipelines from registry.
func Definitions(registry *component.Registry) []component.Definition {
	return []component.Definition{
		{
			Name:         pipeline.Imputer,
			Kind:         component.KindTransformer,
			ProblemTypes: allTypes,
			Defaults:     map[string]any{"strategy": "mean", "fill_value": 0.0},
			New:          newImputer,
		},
		{
			Name:         pipeline.StandardScaler,
			Kind:         component.KindTransformer,
			ProblemTypes: allTypes,
			Defaults:     map[string]any{},
			New:          newStandardScaler,
		},
		{
			Name:         pipeline.DelayedFeatures,
			Kind:         component.KindTransformer,
			ProblemTypes: timeSeriesTypes,
			Defaults: map[string]any{
				pipeline.ParamGap:             0,
				pipeline.ParamMaxDelay:        0,
				pipeline.ParamForecastHorizon: 1,
				"delay_features":              true,
				"delay_target":                true,
			},
			New: newDelayedFeatures,
		},
		{
			Name:         pipeline.BaselineClassifier,
			Kind:         component.KindEstimator,
			Family:       component.FamilyBaseline,
			ProblemTypes: classificationTypes,
			Defaults:     map[string]any{"strategy": "mode"},
			New:          newBaselineClassifier,
		},
		{
			Name:         pipeline.BaselineRegressor,
			Kind:         component.KindEstimator,
			Family:       component.FamilyBaseline,
			ProblemTypes: regressionTypes,
			Defaults:     map[string]any{"strategy": "mean"},
			New:          newBaselineRegressor,
		},
		{
			Name:         pipeline.TimeSeriesBaseline,
			Kind:         component.KindEstimator,
			Family:       component.FamilyBaseline,
			ProblemTypes: timeSeriesTypes,
			Defaults: map[string]any{
				pipeline.ParamGap:             0,
				pipeline.ParamForecastHorizon: 1,
				pipeline.ParamProblemType:     "",
			},
			New: newTimeSeriesBaseline,
		},
		{
			Name:         LinearRegressorName,
			Kind:         component.KindEstimator,
			Family:       component.FamilyLinearModel,
			ProblemTypes: regressionTypes,
			Defaults:     map[string]any{"alpha": 0.01, "fit_intercept": true},
			Ranges: map[string]component.Range{
				"alpha":         component.Real{Min: 1e-4, Max: 10, Log: true},
				"fit_intercept": component.Categorical{Values: []any{true, false}},
			},
			New: newLinearRegressor,
		},
		{
			Name:         LogisticRegressionName,
			Kind:         component.KindEstimator,
			Family:       component.FamilyLinearModel,
			ProblemTypes: classificationTypes,
			Defaults:     map[string]any{"C": 1.0, "max_iter": 200, "learning_rate": 0.5},
			Ranges: map[string]component.Range{
				"C":        component.Real{Min: 0.01, Max: 10, Log: true},
				"max_iter": component.Integer{Min: 50, Max: 500},
			},
			New: newLogisticRegression,
		},
		{
			Name:         KNNClassifierName,
			Kind:         component.KindEstimator,
			Family:       component.FamilyKNeighbors,
			ProblemTypes: classificationTypes,
			Defaults:     map[string]any{"n_neighbors": 5, "weights": "uniform"},
			Ranges:       knnRanges(),
			New:          newKNN(KNNClassifierName, true),
		},
		{
			Name:         KNNRegressorName,
			Kind:         component.KindEstimator,
			Family:       component.FamilyKNeighbors,
			ProblemTypes: regressionTypes,
			Defaults:     map[string]any{"n_neighbors": 5, "weights": "uniform"},
			Ranges:       knnRanges(),
			New:          newKNN(KNNRegressorName, false),
		},
		{
			Name:         DecisionTreeClassifierName,
			Kind:         component.KindEstimator,
			Family:       component.FamilyDecisionTree,
			ProblemTypes: classificationTypes,
			Defaults:     map[string]any{"max_depth": 6, "min_samples_split": 2, "criterion": "gini"},
			Ranges: map[string]component.Range{
				"max_depth":         component.Integer{Min: 2, Max: 10},
				"min_samples_split": component.Integer{Min: 2, Max: 20},
				"criterion":         component.Categorical{Values: []any{"gini", "entropy"}},
			},
			New: newDecisionTree(DecisionTreeClassifierName, true),
		},
		{
			Name:         DecisionTreeRegressorName,
			Kind:         component.KindEstimator,
			Family:       component.FamilyDecisionTree,
			ProblemTypes: regressionTypes,
			Defaults:     map[string]any{"max_depth": 6, "min_samples_split": 2, "criterion": "squared_error"},
			Ranges: map[string]component.Range{
				"max_depth":         component.Integer{Min: 2, Max: 10},
				"min_samples_split": component.Integer{Min: 2, Max: 20},
			},
			New: newDecisionTree(DecisionTreeRegressorName, false),
		},
		{
			Name:         pipeline.StackedEnsembleClass,
			Kind:         component.KindEstimator,
			Family:       component.FamilyEnsemble,
			ProblemTypes: []problem.Type{problem.Binary, problem.Multiclass},
			Defaults:     ensembleDefaults(),
			New:          newStackedEnsemble(registry, pipeline.StackedEnsembleClass, true),
		},
		{
			Name:         pipeline.StackedEnsembleReg,
			Kind:         component.KindEstimator,
			Family:       component.FamilyEnsemble,
			ProblemTypes: []problem.Type{problem.Regression},
			Defaults:     ensembleDefaults(),
			New:          newStackedEnsemble(registry, pipeline.StackedEnsembleReg, false),
		},
	}
}

func knnRanges() map[string]component.Range {
	return map[string]component.Range{
		"n_neighbors": component.Integer{Min: 1, Max: 15},
		"weights":     component.Categorical{Values: []any{"uniform", "distance"}},
	}
}

func ensembleDefaults() map[string]any {
	return map[string]any{
		ParamInputPipelines:      []any{},
		"cv_folds":               3,
		"n_jobs":                 -1,
		pipeline.ParamRandomSeed: int64(0),
	}
}

// Register adds the built-in components to registry.
func Register(registry *component.Registry) error {
	for _, def := range Definitions(registry) {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in components.
func NewRegistry() *component.Registry {
	r := component.NewRegistry()
	for _, def := range Definitions(r) {
		r.MustRegister(def)
	}
	return r
}
