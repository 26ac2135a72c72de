package objective

import (
	"sort"
	"strings"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

var builtins = []Objective{
	AccuracyBinary,
	AccuracyMulticlass,
	BalancedAccuracyBinary,
	BalancedAccuracyMulticlass,
	F1,
	Precision,
	Recall,
	AUC,
	LogLossBinary,
	LogLossMulticlass,
	MSE,
	MAE,
	RMSE,
	R2,
	MedianAE,
}

// notAllowedInSearch lists objectives that can be scored but not optimized,
// with the reason reported to the caller.
var notAllowedInSearch = map[string]string{
	"recall": "recall is not allowed in AutoML!",
}

var coreNames = map[problem.Type][]string{
	problem.Binary: {
		"Log Loss Binary", "AUC", "F1", "Precision", "Balanced Accuracy Binary", "Accuracy Binary",
	},
	problem.Multiclass: {
		"Log Loss Multiclass", "Balanced Accuracy Multiclass", "Accuracy Multiclass",
	},
	problem.Regression: {
		"R2", "MAE", "MSE", "MedianAE", "Root Mean Squared Error",
	},
}

// All returns the built-in objectives sorted by name.
func All() []Objective {
	out := append([]Objective(nil), builtins...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Get looks up a built-in objective by name, ignoring case.
func Get(name string) (Objective, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, o := range builtins {
		if strings.ToLower(o.Name()) == key {
			return o, nil
		}
	}
	return nil, errors.Configurationf("%s is not a valid objective", name)
}

// ForSearch resolves an objective for a search over problem type t. An empty
// name selects the default objective.
func ForSearch(name string, t problem.Type) (Objective, error) {
	if strings.TrimSpace(name) == "" {
		return Default(t)
	}
	o, err := Get(name)
	if err != nil {
		return nil, err
	}
	if err := CheckSearch(o, t); err != nil {
		return nil, err
	}
	return o, nil
}

// CheckSearch rejects objectives that cannot drive a search over t.
func CheckSearch(o Objective, t problem.Type) error {
	if reason, ok := notAllowedInSearch[strings.ToLower(o.Name())]; ok {
		return errors.Configuration(reason)
	}
	if !Supports(o, t) {
		return errors.Configurationf("objective %s is not compatible with a %s problem", o.Name(), t)
	}
	return nil
}

// Default returns the objective a search optimizes when none is given.
func Default(t problem.Type) (Objective, error) {
	switch t.Base() {
	case problem.Binary:
		return LogLossBinary, nil
	case problem.Multiclass:
		return LogLossMulticlass, nil
	case problem.Regression:
		return R2, nil
	}
	return nil, errors.Configurationf("no default objective for problem type %q", t)
}

// Core returns the objectives scored alongside the primary one on every fold.
func Core(t problem.Type) []Objective {
	names := coreNames[t.Base()]
	out := make([]Objective, 0, len(names))
	for _, name := range names {
		o, err := Get(name)
		if err == nil {
			out = append(out, o)
		}
	}
	return out
}

// Additional resolves extra objective names, dropping the primary. Empty
// names select the core objectives of t.
func Additional(names []string, primary Objective, t problem.Type) ([]Objective, error) {
	var candidates []Objective
	if len(names) == 0 {
		candidates = Core(t)
	} else {
		for _, name := range names {
			o, err := Get(name)
			if err != nil {
				return nil, err
			}
			if !Supports(o, t) {
				return nil, errors.Configurationf("additional objective %s is not compatible with a %s problem", o.Name(), t)
			}
			candidates = append(candidates, o)
		}
	}
	out := make([]Objective, 0, len(candidates))
	seen := map[string]bool{primary.Name(): true}
	for _, o := range candidates {
		if seen[o.Name()] {
			continue
		}
		seen[o.Name()] = true
		out = append(out, o)
	}
	return out, nil
}

// Names returns the names of objectives in order.
func Names(objectives []Objective) []string {
	out := make([]string, len(objectives))
	for i, o := range objectives {
		out[i] = o.Name()
	}
	return out
}
