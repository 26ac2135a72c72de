// Package evaluation cross-validates one pipeline configuration.
//
// A Task names a configuration and its objectives. An Evaluator runs it
// against a Workload (dataset, problem and precomputed splits): every fold
// builds a fresh pipeline, fits it on the training rows, optionally tunes a
// binary decision threshold on a holdout of them, predicts the validation
// rows and scores every objective.
//
// Evaluate never returns an error. Failures are classified (data, pipeline,
// resource, timeout) and recorded on the Result. A task succeeds when at
// least one fold was scored; FailedFolds reports the rest.
package evaluation
