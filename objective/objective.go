package objective

import (
	"math"

	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

// Objective scores predictions against the true target.
type Objective interface {
	Name() string
	GreaterIsBetter() bool
	// ScoreNeedsProba reports whether Score reads class probabilities
	// rather than predicted labels.
	ScoreNeedsProba() bool
	PerfectScore() float64
	ProblemTypes() []problem.Type
	Score(yTrue []float64, pred data.Prediction, X *data.Frame) (float64, error)
}

// ThresholdObjective is a binary objective whose score depends on the
// decision threshold applied to the positive class probability.
type ThresholdObjective interface {
	Objective
	DecisionFunction(proba []float64, threshold float64) []float64
}

// Supports reports whether o can score problems of type t.
func Supports(o Objective, t problem.Type) bool {
	for _, pt := range o.ProblemTypes() {
		if pt == t || pt == t.Base() {
			return true
		}
	}
	return false
}

// Score checks the inputs before calling o.Score and rejects non-finite scores.
func Score(o Objective, yTrue []float64, pred data.Prediction, X *data.Frame) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.Data("cannot score an empty target")
	}
	if pred.Len() != len(yTrue) {
		return 0, errors.Dataf("%s: %d predictions for %d rows", o.Name(), pred.Len(), len(yTrue))
	}
	if o.ScoreNeedsProba() && !pred.HasProba() {
		return 0, errors.Dataf("%s needs class probabilities", o.Name())
	}
	s, err := o.Score(yTrue, pred, X)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, errors.Dataf("%s produced a non-finite score", o.Name())
	}
	return s, nil
}

// Normalize maps a score onto the greater-is-better scale used for every
// comparison inside the search.
func Normalize(o Objective, score float64) float64 {
	if o.GreaterIsBetter() {
		return score
	}
	return -score
}

// IsBetter reports whether score a beats score b under o's direction.
func IsBetter(o Objective, a, b float64) bool {
	return Normalize(o, a) > Normalize(o, b)
}

// CanOptimizeThreshold reports whether o is a threshold objective scored on labels.
func CanOptimizeThreshold(o Objective) bool {
	_, ok := o.(ThresholdObjective)
	return ok && !o.ScoreNeedsProba()
}

// OptimizeThreshold evaluates steps evenly spaced thresholds over [0, 1] and
// returns the best. A row is positive when its probability is at least the
// threshold. Ties go to the smallest threshold.
func OptimizeThreshold(o Objective, yProba, yTrue []float64, steps int) (float64, error) {
	to, ok := o.(ThresholdObjective)
	if !ok || o.ScoreNeedsProba() {
		return 0, errors.Configurationf("objective %s cannot optimize a threshold", o.Name())
	}
	if steps < 2 {
		return 0, errors.Configurationf("threshold search needs at least 2 steps, got %d", steps)
	}
	if len(yProba) != len(yTrue) || len(yTrue) == 0 {
		return 0, errors.Dataf("threshold search got %d probabilities for %d rows", len(yProba), len(yTrue))
	}

	best, bestScore := 0.0, math.Inf(-1)
	for i := 0; i < steps; i++ {
		th := float64(i) / float64(steps-1)
		pred := data.Prediction{Values: to.DecisionFunction(yProba, th)}
		s, err := o.Score(yTrue, pred, nil)
		if err != nil {
			return 0, err
		}
		if n := Normalize(o, s); n > bestScore {
			best, bestScore = th, n
		}
	}
	return best, nil
}

func decide(proba []float64, threshold float64) []float64 {
	out := make([]float64, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}
