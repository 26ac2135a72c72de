// Package algorithm generates the batches of a search.
//
// Iterative starts from the baseline, evaluates every allowed pipeline with
// its default parameters and then tunes one pipeline per batch with a
// tuner.Tuner, optionally interleaving stacked ensembles of the best
// configuration per family. The orchestrator reports every result back
// through AddResult before asking for the next batch.
package algorithm
