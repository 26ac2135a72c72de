// Package split partitions rows into cross-validation folds.
//
// TimeSeriesSplit implements rolling-origin validation: validation windows
// move forward through time, training sets only grow, and every split carries
// the context rows its windowed features need.
package split
