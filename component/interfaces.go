package component

import (
	"github.com/kbukum/automl/data"
)

// Kind tells whether a component reshapes features or predicts a target.
type Kind string

const (
	KindTransformer Kind = "transformer"
	KindEstimator   Kind = "estimator"
)

// Family tags estimators that are searched together. Transformers have FamilyNone.
type Family string

const (
	FamilyNone         Family = "none"
	FamilyBaseline     Family = "baseline"
	FamilyLinearModel  Family = "linear_model"
	FamilyKNeighbors   Family = "k_neighbors"
	FamilyDecisionTree Family = "decision_tree"
	FamilyEnsemble     Family = "ensemble"
)

// Component is a named, parameterized pipeline step.
type Component interface {
	// Name returns the registered component name, e.g. "Standard Scaler".
	Name() string
	// Parameters returns the parameters the component was built with.
	Parameters() map[string]any
}

// Fittable components learn state from training rows.
type Fittable interface {
	Fit(X *data.Frame, y []float64) error
}

// Transforms components map a frame to a new frame. y is the target aligned
// with X; it may be nil and carries NaN for rows whose target is unknown.
type Transforms interface {
	Transform(X *data.Frame, y []float64) (*data.Frame, error)
}

// Predicts components produce one value per row.
type Predicts interface {
	Predict(X *data.Frame) ([]float64, error)
}

// PredictsProba components produce class probabilities.
type PredictsProba interface {
	PredictProba(X *data.Frame) (data.Prediction, error)
}

// Windowed components build features for row t from rows before t. Lookback
// is how many leading rows have incomplete features.
type Windowed interface {
	Lookback() int
}

// Transformer is a fittable feature transformation.
type Transformer interface {
	Component
	Fittable
	Transforms
}

// Estimator is a fittable predictor.
type Estimator interface {
	Component
	Fittable
	Predicts
}
