package util

import (
	"slices"
	"testing"

	"github.com/kbukum/automl/errors"
)

func TestPtr(t *testing.T) {
	p := Ptr(42)
	if p == nil || *p != 42 {
		t.Errorf("expected pointer to 42, got %v", p)
	}
}

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]int{"max_depth": 3, "alpha": 1, "fit_intercept": 0})
	want := []string{"alpha", "fit_intercept", "max_depth"}
	if !slices.Equal(got, want) {
		t.Errorf("SortedKeys = %v, want %v", got, want)
	}
	if len(SortedKeys(map[int]bool{})) != 0 {
		t.Error("expected no keys for an empty map")
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"linear_model", "decision_tree", "linear_model"})
	if !slices.Equal(got, []string{"linear_model", "decision_tree"}) {
		t.Errorf("Unique kept order wrong: %v", got)
	}
}

func TestValidateUUID(t *testing.T) {
	id, err := ValidateUUID("resume", " 550e8400-e29b-41d4-a716-446655440000 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("unexpected id %s", id)
	}
	if _, err := ValidateUUID("resume", "  "); !errors.HasCode(err, errors.ErrCodeMissingField) {
		t.Errorf("expected a missing field error, got %v", err)
	}
	if _, err := ValidateUUID("resume", "search-1"); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected an invalid input error, got %v", err)
	}
}
