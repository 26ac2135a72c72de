package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/problem"
)

// THelper provides testing.T integration for building search fixtures.
type THelper struct {
	t        *testing.T
	ctx      context.Context
	registry *component.Registry
}

// T wraps a testing.T to provide helper methods.
//
// Example:
//
//	func TestSearch(t *testing.T) {
//	    cfg := testutil.T(t).Default(problem.New(problem.Binary), components.LogisticRegressionName)
//	    ...
//	}
func T(t *testing.T) *THelper {
	return &THelper{
		t:        t,
		ctx:      context.Background(),
		registry: Registry(),
	}
}

// WithContext sets a custom context for the helper.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Context returns the helper's context, cancelled when the test ends.
func (h *THelper) Context() context.Context {
	ctx, cancel := context.WithCancel(h.ctx)
	h.t.Cleanup(cancel)
	return ctx
}

// Registry returns the registry the helper builds configurations from.
func (h *THelper) Registry() *component.Registry {
	return h.registry
}

// Default builds the default configuration of an estimator.
func (h *THelper) Default(cfg problem.Config, estimator string) pipeline.Configuration {
	h.t.Helper()
	c, err := pipeline.MakeDefault(h.registry, cfg, estimator, 0)
	if err != nil {
		h.t.Fatalf("failed to build default pipeline for %s: %v", estimator, err)
	}
	return c
}

// Baseline builds the baseline configuration of a problem.
func (h *THelper) Baseline(cfg problem.Config) pipeline.Configuration {
	h.t.Helper()
	c, err := pipeline.MakeBaseline(h.registry, cfg, 0)
	if err != nil {
		h.t.Fatalf("failed to build baseline pipeline: %v", err)
	}
	return c
}

// Estimator builds a configuration holding a single estimator node.
func (h *THelper) Estimator(name string, params map[string]any) pipeline.Configuration {
	h.t.Helper()
	def, ok := h.registry.Get(name)
	if !ok {
		h.t.Fatalf("component %s is not registered", name)
	}
	c := pipeline.Configuration{Name: name, Family: def.Family, Graph: pipeline.Linear(name)}
	if params != nil {
		c = c.WithParameters(name, params)
	}
	return c
}
