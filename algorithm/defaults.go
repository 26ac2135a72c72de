package algorithm

import (
	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/problem"
)

// DefaultAllowed builds the default configuration of every registered
// estimator supporting the problem. When families are given only those are
// kept, in the order given.
func DefaultAllowed(registry *component.Registry, cfg problem.Config, seed int64, families ...component.Family) ([]pipeline.Configuration, error) {
	estimators := registry.Estimators(cfg.Type, excluded...)
	if len(families) > 0 {
		var ordered []component.Definition
		for _, f := range families {
			found := false
			for _, def := range estimators {
				if def.Family == f {
					ordered = append(ordered, def)
					found = true
				}
			}
			if !found {
				return nil, errors.Configurationf("no estimator of family %q supports %s problems", f, cfg.Type)
			}
		}
		estimators = ordered
	}

	out := make([]pipeline.Configuration, 0, len(estimators))
	for _, def := range estimators {
		c, err := pipeline.MakeDefault(registry, cfg, def.Name, seed)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// FromDefinitions turns YAML graph definitions into configurations with the
// problem parameters and seed applied.
func FromDefinitions(registry *component.Registry, cfg problem.Config, seed int64, defs []pipeline.Definition) ([]pipeline.Configuration, error) {
	out := make([]pipeline.Configuration, 0, len(defs))
	for _, d := range defs {
		c := d.Configuration(cfg.Type)
		if err := c.Graph.Validate(); err != nil {
			return nil, err
		}
		est, ok := registry.Get(c.Estimator())
		if !ok {
			return nil, errors.Configurationf("pipeline %s: estimator %q is not registered", d.Name, c.Estimator())
		}
		if !est.Supports(cfg.Type) {
			return nil, errors.Configurationf("pipeline %s: %s does not support %s problems", d.Name, est.Name, cfg.Type)
		}
		if c.Family == "" {
			c.Family = est.Family
		}
		out = append(out, pipeline.WithProblemParameters(registry, c, cfg, seed))
	}
	return out, nil
}
