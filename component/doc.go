// Package component defines the contracts pipeline steps implement.
//
// A step is a Component that may also be Fittable, Transforms, Predicts,
// PredictsProba or Windowed. Pipelines and the search only depend on these
// capability interfaces, never on concrete step types.
//
// # Registry
//
// Steps are registered as Definitions: a name, a Kind, an estimator Family,
// the problem types they support, default parameters, tunable Ranges and a
// Factory. The search builds every step through a Registry.
package component
