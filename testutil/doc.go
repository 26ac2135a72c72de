// Package testutil provides fixtures for testing searches: synthetic
// datasets, estimators that fail on demand, and a testing.T helper that
// builds pipeline configurations.
//
// # Quick Start
//
//	func TestEvaluate(t *testing.T) {
//	    h := testutil.T(t)
//	    ds := testutil.Binary(200, 0.05, 1)
//	    cfg := h.Default(problem.New(problem.Binary), components.LogisticRegressionName)
//	    ...
//	}
//
// The misbehaving estimators (Failing, Panicking, Slow, Flaky) are registered
// alongside the built-in components by Registry.
package testutil
