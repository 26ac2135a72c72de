package component

import (
	"math"
	"math/rand"
	"testing"

	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

// mockEstimator implements Estimator for testing.
type mockEstimator struct {
	params map[string]any
}

func (m *mockEstimator) Name() string { return "Mock Estimator" }

func (m *mockEstimator) Parameters() map[string]any { return m.params }

func (m *mockEstimator) Fit(X *data.Frame, y []float64) error { return nil }

func (m *mockEstimator) Predict(X *data.Frame) ([]float64, error) {
	return make([]float64, X.NumRows()), nil
}

func mockDefinition(name string, family Family, types ...problem.Type) Definition {
	return Definition{
		Name:         name,
		Kind:         KindEstimator,
		Family:       family,
		ProblemTypes: types,
		Defaults:     map[string]any{"alpha": 1.0, "depth": 3},
		Ranges: map[string]Range{
			"alpha": Real{Min: 0.01, Max: 10, Log: true},
			"depth": Integer{Min: 1, Max: 8},
		},
		New: func(params map[string]any) (Component, error) {
			return &mockEstimator{params: params}, nil
		},
	}
}

// --- Registry tests ---

func TestRegister(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(mockDefinition("A", FamilyLinearModel, problem.Regression)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	def, ok := r.Get("A")
	if !ok || def.Family != FamilyLinearModel {
		t.Errorf("unexpected definition %+v", def)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing definition")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(mockDefinition("A", FamilyLinearModel, problem.Regression))
	err := r.Register(mockDefinition("A", FamilyLinearModel, problem.Regression))
	if errors.CodeOf(err) != errors.ErrCodeConfiguration {
		t.Errorf("expected configuration error for duplicate, got %v", err)
	}
}

func TestRegisterRejectsDefaultOutsideRange(t *testing.T) {
	def := mockDefinition("A", FamilyLinearModel, problem.Regression)
	def.Defaults["depth"] = 20
	if err := NewRegistry().Register(def); err == nil {
		t.Error("expected error for default outside range")
	}

	def = mockDefinition("B", "", problem.Regression)
	if err := NewRegistry().Register(def); err == nil {
		t.Error("expected error for estimator without family")
	}
}

func TestBuildMergesDefaults(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(mockDefinition("A", FamilyLinearModel, problem.Regression))

	c, err := r.Build("A", map[string]any{"depth": 5})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	params := c.Parameters()
	if params["depth"] != 5 || params["alpha"] != 1.0 {
		t.Errorf("unexpected params %v", params)
	}

	if _, err := r.Build("A", map[string]any{"gamma": 1}); errors.CodeOf(err) != errors.ErrCodeInvalidInput {
		t.Errorf("expected invalid input for unknown param, got %v", err)
	}
	if _, err := r.Build("Z", nil); errors.CodeOf(err) != errors.ErrCodeConfiguration {
		t.Errorf("expected configuration error for unknown component, got %v", err)
	}
}

func TestEstimatorsAndFamilies(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(mockDefinition("Tree C", FamilyDecisionTree, problem.Binary))
	r.MustRegister(mockDefinition("Linear C", FamilyLinearModel, problem.Binary, problem.Regression))
	r.MustRegister(mockDefinition("Tree R", FamilyDecisionTree, problem.Regression))
	r.MustRegister(Definition{
		Name:         "Scaler",
		Kind:         KindTransformer,
		ProblemTypes: []problem.Type{problem.Binary},
		New:          func(map[string]any) (Component, error) { return nil, nil },
	})

	ests := r.Estimators(problem.Binary)
	if len(ests) != 2 || ests[0].Name != "Tree C" || ests[1].Name != "Linear C" {
		t.Errorf("unexpected estimators %v", ests)
	}
	if got := r.Estimators(problem.Binary, FamilyDecisionTree); len(got) != 1 {
		t.Errorf("expected exclusion to drop decision trees, got %v", got)
	}
	fams := r.Families(problem.Regression)
	if len(fams) != 2 || fams[0] != FamilyLinearModel || fams[1] != FamilyDecisionTree {
		t.Errorf("unexpected families %v", fams)
	}
	if def, _ := r.Get("Scaler"); def.Family != FamilyNone {
		t.Errorf("expected transformer family none, got %q", def.Family)
	}
	if len(r.All()) != 4 {
		t.Errorf("expected 4 definitions, got %d", len(r.All()))
	}
}

// --- Range tests ---

func TestIntegerRange(t *testing.T) {
	r := Integer{Min: 1, Max: 5}
	if !r.Contains(3) || !r.Contains(3.0) || r.Contains(3.5) || r.Contains(6) {
		t.Error("unexpected Contains results")
	}
	if r.Encode(1) != 0 || r.Encode(5) != 1 || r.Decode(0.5) != 3 {
		t.Errorf("unexpected encode/decode")
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		if !r.Contains(r.Sample(rng)) {
			t.Fatal("sample outside range")
		}
	}
	if g := r.Grid(10); len(g) != 5 {
		t.Errorf("expected 5 distinct grid points, got %v", g)
	}
}

func TestRealRange(t *testing.T) {
	r := Real{Min: 0.01, Max: 100, Log: true}
	mid := r.Decode(0.5).(float64)
	if math.Abs(mid-1) > 1e-9 {
		t.Errorf("expected log midpoint 1, got %v", mid)
	}
	if math.Abs(r.Encode(1.0)-0.5) > 1e-9 {
		t.Errorf("unexpected encode %v", r.Encode(1.0))
	}
	if r.Contains(200.0) || !r.Contains(0.5) {
		t.Error("unexpected Contains results")
	}
	if g := r.Grid(3); len(g) != 3 || math.Abs(g[0].(float64)-0.01) > 1e-12 {
		t.Errorf("unexpected grid %v", g)
	}
}

func TestCategoricalRange(t *testing.T) {
	r := Categorical{Values: []any{"mean", "median", "most_frequent"}}
	for _, v := range r.Values {
		if r.Decode(r.Encode(v)) != v {
			t.Errorf("round trip failed for %v", v)
		}
	}
	if r.Contains("mode") {
		t.Error("unexpected member")
	}
	if r.Decode(1.0) != "most_frequent" {
		t.Errorf("unexpected decode of 1.0: %v", r.Decode(1.0))
	}
}

// --- params tests ---

func TestParamReaders(t *testing.T) {
	params := map[string]any{"n": 3.0, "x": 0.5, "s": "mean", "b": true, "frac": 2.5}
	if n, err := Int(params, "n"); err != nil || n != 3 {
		t.Errorf("Int: %v %v", n, err)
	}
	if _, err := Int(params, "frac"); err == nil {
		t.Error("expected error for fractional int")
	}
	if x, err := Float(params, "x"); err != nil || x != 0.5 {
		t.Errorf("Float: %v %v", x, err)
	}
	if _, err := Float(params, "s"); err == nil {
		t.Error("expected error for string float")
	}
	if s, err := OneOf(params, "s", "mean", "median"); err != nil || s != "mean" {
		t.Errorf("OneOf: %v %v", s, err)
	}
	if _, err := OneOf(params, "s", "median"); err == nil {
		t.Error("expected error for disallowed value")
	}
	if b, err := Bool(params, "b"); err != nil || !b {
		t.Errorf("Bool: %v %v", b, err)
	}
	if !Equal(3, 3.0) || Equal("3", 3) {
		t.Error("unexpected Equal results")
	}
}
