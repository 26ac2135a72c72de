// Package datacheck inspects a dataset before a search starts.
//
// A Check returns a Result of warnings, errors and recommended actions.
// Errors block the search; warnings are logged. Defaults picks the checks
// that apply to a problem type:
//
//	res := datacheck.Defaults(cfg, folds).Validate(ds.X, ds.Y)
//	if res.HasErrors() {
//	    return res.Err()
//	}
package datacheck
