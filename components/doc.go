// Package components is the built-in component library: baselines,
// preprocessing, time-series delay features, linear models, nearest
// neighbours, decision trees and stacked ensembles.
//
// NewRegistry returns a component.Registry with all of them registered.
package components
