// Package objective provides the scoring functions a search optimizes.
//
// Every Objective declares its direction. The search compares Normalize'd
// scores only, so lower-is-better objectives such as the log losses rank
// correctly without special cases. Binary objectives scored on labels also
// implement ThresholdObjective and can have their decision threshold tuned
// with OptimizeThreshold.
package objective
