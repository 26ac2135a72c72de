// Package tuner proposes hyperparameters for one pipeline at a time.
//
// A Space maps node and parameter names to component ranges. Tuners work on
// the unit-cube encoding of the space, learn from normalized scores (greater
// is better) and never propose an assignment twice. GaussianProcess is the
// default; Random and Grid are simpler alternatives.
package tuner
