package component

import (
	"fmt"
	"sync"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/problem"
)

// Factory builds a component from a complete parameter set.
type Factory func(params map[string]any) (Component, error)

// Definition describes a registered component.
type Definition struct {
	Name         string
	Kind         Kind
	Family       Family
	ProblemTypes []problem.Type
	// Defaults holds every parameter the component accepts with its default value.
	Defaults map[string]any
	// Ranges holds the tunable subset of Defaults.
	Ranges map[string]Range
	New    Factory
}

// Supports reports whether the component handles the problem type.
func (d Definition) Supports(t problem.Type) bool {
	for _, pt := range d.ProblemTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// Build merges params over the defaults and calls the factory.
// Unknown parameter names are rejected.
func (d Definition) Build(params map[string]any) (Component, error) {
	for key := range params {
		if _, ok := d.Defaults[key]; !ok {
			return nil, errors.InvalidInput(key, fmt.Sprintf("%s does not accept parameter %q", d.Name, key))
		}
	}
	return d.New(Merge(d.Defaults, params))
}

// Registry holds component definitions in registration order.
type Registry struct {
	entries []Definition
	lookup  map[string]int
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make([]Definition, 0),
		lookup:  make(map[string]int),
	}
}

// Register adds a definition. Names must be unique.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" || def.New == nil {
		return errors.Configuration("component definition needs a name and a factory")
	}
	if def.Kind == KindEstimator && def.Family == "" {
		return errors.Configurationf("estimator %s needs a family", def.Name)
	}
	if def.Family == "" {
		def.Family = FamilyNone
	}
	for key, rng := range def.Ranges {
		dflt, ok := def.Defaults[key]
		if !ok {
			return errors.Configurationf("%s: range for unknown parameter %q", def.Name, key)
		}
		if !rng.Contains(dflt) {
			return errors.Configurationf("%s: default %v of %q is outside %s", def.Name, dflt, key, rng)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lookup[def.Name]; exists {
		return errors.Configurationf("component %s already registered", def.Name)
	}
	r.lookup[def.Name] = len(r.entries)
	r.entries = append(r.entries, def)

	logger.Debug("Component registered", map[string]interface{}{
		"component": def.Name,
		"family":    string(def.Family),
	})
	return nil
}

// MustRegister is Register that panics on error. Used for built-ins.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns a definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i, exists := r.lookup[name]; exists {
		return r.entries[i], true
	}
	return Definition{}, false
}

// Build constructs a named component with params merged over its defaults.
func (r *Registry) Build(name string, params map[string]any) (Component, error) {
	def, ok := r.Get(name)
	if !ok {
		return nil, errors.Configurationf("component %q is not registered", name)
	}
	return def.Build(params)
}

// All returns every definition in registration order.
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Definition, len(r.entries))
	copy(result, r.entries)
	return result
}

// Estimators returns the estimators supporting t, excluding the given families.
func (r *Registry) Estimators(t problem.Type, exclude ...Family) []Definition {
	skip := make(map[Family]bool, len(exclude))
	for _, f := range exclude {
		skip[f] = true
	}
	var out []Definition
	for _, def := range r.All() {
		if def.Kind == KindEstimator && def.Supports(t) && !skip[def.Family] {
			out = append(out, def)
		}
	}
	return out
}

// Families returns the distinct estimator families supporting t in registration order.
func (r *Registry) Families(t problem.Type) []Family {
	seen := make(map[Family]bool)
	var out []Family
	for _, def := range r.Estimators(t) {
		if !seen[def.Family] {
			seen[def.Family] = true
			out = append(out, def.Family)
		}
	}
	return out
}
