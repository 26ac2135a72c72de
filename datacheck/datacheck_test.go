package datacheck

import (
	"math"
	"testing"

	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

func frame(t *testing.T, columns []string, values ...[]float64) *data.Frame {
	t.Helper()
	f, err := data.FromColumns(columns, values)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	return f
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// --- InvalidTarget tests ---

func TestInvalidTarget_SingleClass(t *testing.T) {
	X := frame(t, []string{"a"}, []float64{1, 2, 3, 4})
	res := InvalidTarget{Problem: problem.Binary}.Validate(X, []float64{1, 1, 1, 1})
	if !res.HasErrors() || res.Errors[0].Code != CodeTargetNotEnoughClasses {
		t.Fatalf("expected a not enough classes error, got %+v", res)
	}
	if !errors.HasCode(res.Err(), errors.ErrCodeConfiguration) {
		t.Errorf("expected a configuration error, got %v", res.Err())
	}
}

func TestInvalidTarget_BinaryNeedsTwo(t *testing.T) {
	X := frame(t, []string{"a"}, []float64{1, 2, 3})
	res := InvalidTarget{Problem: problem.Binary}.Validate(X, []float64{0, 1, 2})
	if !res.HasErrors() || res.Errors[0].Code != CodeTargetBinaryNotTwo {
		t.Fatalf("expected a binary target error, got %+v", res)
	}
	res = InvalidTarget{Problem: problem.Multiclass}.Validate(X, []float64{0, 1, 2})
	if res.HasErrors() {
		t.Errorf("three classes are fine for multiclass: %+v", res)
	}
}

func TestInvalidTarget_NullsAndLength(t *testing.T) {
	X := frame(t, []string{"a"}, []float64{1, 2, 3})
	res := InvalidTarget{Problem: problem.Regression}.Validate(X, []float64{1, math.NaN()})
	codes := map[MessageCode]bool{}
	for _, m := range res.Errors {
		codes[m.Code] = true
		if m.Level != LevelError || m.DataCheckName != "InvalidTargetDataCheck" {
			t.Errorf("unexpected message fields %+v", m)
		}
	}
	if !codes[CodeTargetHasNull] || !codes[CodeTargetLengthMismatch] {
		t.Errorf("expected null and length errors, got %+v", res.Errors)
	}
	if len(res.Actions) != 1 || res.Actions[0].Code != ActionDropTarget {
		t.Errorf("expected a drop rows action, got %+v", res.Actions)
	}
}

// --- ClassImbalance tests ---

func TestClassImbalance(t *testing.T) {
	y := append(repeat(0, 50), append(repeat(1, 4), repeat(2, 2)...)...)
	res := ClassImbalance{Folds: 3, Threshold: 0.1}.Validate(nil, y)
	if len(res.Errors) != 1 || res.Errors[0].Code != CodeClassImbalanceBelowFold {
		t.Fatalf("expected a below folds error, got %+v", res.Errors)
	}
	if got := res.Errors[0].Details["target_values"].([]float64); len(got) != 1 || got[0] != 2 {
		t.Errorf("expected class 2 below folds, got %v", got)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != CodeClassImbalanceThreshold {
		t.Fatalf("expected a threshold warning, got %+v", res.Warnings)
	}
	if got := res.Warnings[0].Details["target_values"].([]float64); len(got) != 2 {
		t.Errorf("expected classes 1 and 2 below threshold, got %v", got)
	}

	balanced := append(repeat(0, 10), repeat(1, 9)...)
	if res := (ClassImbalance{Folds: 3, Threshold: 0.1}).Validate(nil, balanced); res.HasErrors() || len(res.Warnings) > 0 {
		t.Errorf("balanced target should pass: %+v", res)
	}
}

// --- HighlyNull tests ---

func TestHighlyNull(t *testing.T) {
	nan := math.NaN()
	X := frame(t, []string{"full", "empty"}, []float64{1, 2, 3, 4}, []float64{nan, nan, nan, 1})
	res := HighlyNull{Threshold: 0.75}.Validate(X, nil)
	if len(res.Warnings) != 1 || res.Warnings[0].Details["column"] != "empty" {
		t.Fatalf("expected a warning for the empty column, got %+v", res.Warnings)
	}
	if len(res.Actions) != 1 || res.Actions[0].Code != ActionDropCol {
		t.Errorf("expected a drop column action, got %+v", res.Actions)
	}
}

// --- Sparsity tests ---

func TestNewSparsity(t *testing.T) {
	if _, err := NewSparsity(problem.Binary, 0.5, 10); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected binary to be rejected, got %v", err)
	}
	if _, err := NewSparsity(problem.Multiclass, 1.5, 10); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected threshold 1.5 to be rejected, got %v", err)
	}
	if _, err := NewSparsity(problem.Multiclass, 0.5, -1); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected a negative count threshold to be rejected, got %v", err)
	}
	if _, err := NewSparsity(problem.TimeSeriesMulticlass, 0, 10); err != nil {
		t.Errorf("time series multiclass should be accepted, got %v", err)
	}
}

func TestSparsity_Validate(t *testing.T) {
	sparse := make([]float64, 100)
	for i := range sparse {
		sparse[i] = float64(i)
	}
	X := frame(t, []string{"sparse", "not_sparse"}, sparse, repeat(1, 100))

	check, err := NewSparsity(problem.Multiclass, 0.5, 10)
	if err != nil {
		t.Fatalf("NewSparsity: %v", err)
	}
	res := check.Validate(X, nil)
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning, got %+v", res.Warnings)
	}
	w := res.Warnings[0]
	if w.Message != "Input columns (sparse) for multiclass problem type are too sparse." || w.Code != CodeTooSparse {
		t.Errorf("unexpected warning %+v", w)
	}
	if w.Details["sparsity_score"] != 0.0 {
		t.Errorf("expected score 0, got %v", w.Details["sparsity_score"])
	}
	if len(res.Actions) != 1 || res.Actions[0].Metadata["column"] != "sparse" {
		t.Errorf("expected a drop column action, got %+v", res.Actions)
	}
}

func TestSparsityScore(t *testing.T) {
	col := append(repeat(1, 11), append(repeat(2, 10), math.NaN())...)
	if got := SparsityScore(col, 10); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := SparsityScore([]float64{math.NaN()}, 10); got != 0 {
		t.Errorf("expected 0 for an empty column, got %v", got)
	}
}

// --- Checks tests ---

func TestDefaults(t *testing.T) {
	X := frame(t, []string{"a"}, []float64{1, 2, 3, 4, 5, 6})
	res := Defaults(problem.New(problem.Binary), 3).Validate(X, []float64{0, 0, 0, 0, 0, 1})
	if !res.HasErrors() {
		t.Fatal("expected the single minority row to fail the imbalance check")
	}
	res = Defaults(problem.New(problem.Regression), 3).Validate(X, []float64{1, 2, 3, 4, 5, 6})
	if res.HasErrors() || len(res.Warnings) > 0 {
		t.Errorf("expected a clean regression dataset, got %+v", res)
	}
	if (Result{}).Err() != nil {
		t.Error("an empty result has no error")
	}
}
