package datacheck

import (
	"fmt"
	"math"
	"sort"

	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

// Check inspects features and target.
type Check interface {
	Name() string
	Validate(X *data.Frame, y []float64) Result
}

// Checks runs several checks and merges their results in order.
type Checks []Check

func (cs Checks) Validate(X *data.Frame, y []float64) Result {
	var out Result
	for _, c := range cs {
		out.Merge(c.Validate(X, y))
	}
	return out
}

// Defaults returns the checks run before every search: the target check,
// the class imbalance check for classification and the null column check.
func Defaults(cfg problem.Config, folds int) Checks {
	checks := Checks{
		InvalidTarget{Problem: cfg.Type},
		HighlyNull{Threshold: DefaultNullThreshold},
	}
	if cfg.Type.IsClassification() {
		checks = append(checks, ClassImbalance{Folds: folds, Threshold: DefaultImbalanceThreshold})
	}
	return checks
}

// --- InvalidTarget ---

// InvalidTarget rejects targets with missing values, a length that does not
// match the features or too few classes for the problem type.
type InvalidTarget struct {
	Problem problem.Type
}

func (InvalidTarget) Name() string { return "InvalidTargetDataCheck" }

func (c InvalidTarget) Validate(X *data.Frame, y []float64) Result {
	var r Result
	if X != nil && X.NumRows() != len(y) {
		r.fail(c.Name(), CodeTargetLengthMismatch,
			fmt.Sprintf("Input target and features have different lengths: %d and %d", len(y), X.NumRows()),
			map[string]any{"features_length": X.NumRows(), "target_length": len(y)})
	}

	var nulls []int
	for i, v := range y {
		if math.IsNaN(v) {
			nulls = append(nulls, i)
		}
	}
	if len(nulls) > 0 {
		r.fail(c.Name(), CodeTargetHasNull,
			fmt.Sprintf("%d row(s) (%.1f%%) of target values are null", len(nulls), 100*float64(len(nulls))/float64(len(y))),
			map[string]any{"num_null_rows": len(nulls), "pct_null_rows": 100 * float64(len(nulls)) / float64(len(y))})
		r.act(ActionDropTarget, map[string]any{"rows": nulls})
	}

	if !c.Problem.IsClassification() {
		return r
	}
	classes := data.UniqueValues(y)
	if len(nulls) > 0 {
		classes = classes[:len(classes)-1]
	}
	switch {
	case len(classes) < 2:
		r.fail(c.Name(), CodeTargetNotEnoughClasses,
			fmt.Sprintf("Target has %d unique value(s); classification needs at least two", len(classes)),
			map[string]any{"target_values": classes})
	case c.Problem.IsBinary() && len(classes) != 2:
		r.fail(c.Name(), CodeTargetBinaryNotTwo,
			fmt.Sprintf("Binary class targets require exactly two unique values, got %d", len(classes)),
			map[string]any{"target_values": classes})
	}
	return r
}

// --- ClassImbalance ---

// DefaultImbalanceThreshold is the size of a class relative to the majority
// class below which a warning is raised.
const DefaultImbalanceThreshold = 0.1

// ClassImbalance flags classes too small to appear in every fold (error)
// and classes smaller than Threshold times the majority class (warning).
type ClassImbalance struct {
	Folds     int
	Threshold float64
}

func (ClassImbalance) Name() string { return "ClassImbalanceDataCheck" }

func (c ClassImbalance) Validate(_ *data.Frame, y []float64) Result {
	var r Result
	counts := data.ClassCounts(y)
	classes := make([]float64, 0, len(counts))
	for class := range counts {
		if !math.IsNaN(class) {
			classes = append(classes, class)
		}
	}
	sort.Float64s(classes)

	var belowFolds, belowThreshold []float64
	maxCount := 0
	for _, class := range classes {
		if counts[class] > maxCount {
			maxCount = counts[class]
		}
	}
	for _, class := range classes {
		if counts[class] < c.Folds {
			belowFolds = append(belowFolds, class)
		}
		if maxCount > 0 && float64(counts[class])/float64(maxCount) < c.Threshold {
			belowThreshold = append(belowThreshold, class)
		}
	}
	if len(belowFolds) > 0 {
		r.fail(c.Name(), CodeClassImbalanceBelowFold,
			fmt.Sprintf("The number of instances of these targets is less than the number of cross folds = %d: %v", c.Folds, belowFolds),
			map[string]any{"target_values": belowFolds})
	}
	if len(belowThreshold) > 0 {
		r.warn(c.Name(), CodeClassImbalanceThreshold,
			fmt.Sprintf("The following labels fall below %.0f%% of the majority class: %v", c.Threshold*100, belowThreshold),
			map[string]any{"target_values": belowThreshold})
	}
	return r
}

// --- HighlyNull ---

// DefaultNullThreshold is the null fraction at or above which a column is
// reported.
const DefaultNullThreshold = 0.95

// HighlyNull flags feature columns that are mostly missing.
type HighlyNull struct {
	Threshold float64
}

func (HighlyNull) Name() string { return "HighlyNullDataCheck" }

func (c HighlyNull) Validate(X *data.Frame, _ []float64) Result {
	var r Result
	if X == nil || X.NumRows() == 0 {
		return r
	}
	for j, col := range X.Columns {
		frac := X.NullFraction(j)
		if frac < c.Threshold {
			continue
		}
		r.warn(c.Name(), CodeHighlyNullCols,
			fmt.Sprintf("Column '%s' is %.1f%% or more null", col, c.Threshold*100),
			map[string]any{"column": col, "pct_null_rows": frac * 100})
		r.act(ActionDropCol, map[string]any{"column": col})
	}
	return r
}

// --- Sparsity ---

// Sparsity flags columns of multiclass problems whose values are spread
// over too many rarely seen values. A column's score is the fraction of its
// distinct values seen more than UniqueCountThreshold times; columns scoring
// below Threshold are too sparse.
type Sparsity struct {
	problem              problem.Type
	threshold            float64
	uniqueCountThreshold int
}

// DefaultUniqueCountThreshold is how often a value must occur not to count
// as sparse.
const DefaultUniqueCountThreshold = 10

// NewSparsity validates the settings. Only multiclass problems are accepted.
func NewSparsity(t problem.Type, threshold float64, uniqueCountThreshold int) (*Sparsity, error) {
	if !t.IsMulticlass() {
		return nil, errors.Configuration("Sparsity is only defined for multiclass problem types.")
	}
	if threshold < 0 || threshold > 1 {
		return nil, errors.Configuration("Threshold must be a float between 0 and 1, inclusive.")
	}
	if uniqueCountThreshold < 0 {
		return nil, errors.Configuration("Unique count threshold must be positive integer.")
	}
	return &Sparsity{problem: t, threshold: threshold, uniqueCountThreshold: uniqueCountThreshold}, nil
}

func (*Sparsity) Name() string { return "SparsityDataCheck" }

func (c *Sparsity) Validate(X *data.Frame, _ []float64) Result {
	var r Result
	if X == nil {
		return r
	}
	for j, col := range X.Columns {
		score := SparsityScore(X.Column(j), c.uniqueCountThreshold)
		if score >= c.threshold {
			continue
		}
		r.warn(c.Name(), CodeTooSparse,
			fmt.Sprintf("Input columns (%s) for %s problem type are too sparse.", col, c.problem),
			map[string]any{"column": col, "sparsity_score": score})
		r.act(ActionDropCol, map[string]any{"column": col})
	}
	return r
}

// SparsityScore returns the fraction of distinct non-null values occurring
// more than countThreshold times. A column without values scores 0.
func SparsityScore(col []float64, countThreshold int) float64 {
	counts := make(map[float64]int)
	for _, v := range col {
		if !math.IsNaN(v) {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return 0
	}
	dense := 0
	for _, n := range counts {
		if n > countThreshold {
			dense++
		}
	}
	return float64(dense) / float64(len(counts))
}
