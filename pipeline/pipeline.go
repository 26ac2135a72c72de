package pipeline

import (
	"fmt"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/objective"
)

// Pipeline is a runnable instance of a Configuration. Each Pipeline owns its
// components, so fitting one never affects another built from the same
// configuration.
type Pipeline struct {
	config    Configuration
	registry  *component.Registry
	order     []string
	deps      map[string][]string
	nodes     map[string]component.Component
	sink      string
	lookback  int
	threshold *float64
	fitted    bool
}

// New builds the components of cfg from the registry.
func New(registry *component.Registry, cfg Configuration) (*Pipeline, error) {
	if err := cfg.Graph.Validate(); err != nil {
		return nil, err
	}
	order, err := cfg.Graph.Order()
	if err != nil {
		return nil, err
	}
	sink, err := cfg.Graph.Sink()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		config:   cfg.Clone(),
		registry: registry,
		order:    order,
		deps:     make(map[string][]string, len(order)),
		nodes:    make(map[string]component.Component, len(order)),
		sink:     sink,
	}

	for _, n := range cfg.Graph.Nodes {
		c, err := registry.Build(n.Component, cfg.Parameters[n.Name])
		if err != nil {
			return nil, err
		}
		if n.Name == sink {
			if _, ok := c.(component.Predicts); !ok {
				return nil, errors.Configurationf("final node %q (%s) is not an estimator", n.Name, n.Component)
			}
		} else if _, ok := c.(component.Transforms); !ok {
			return nil, errors.Configurationf("node %q (%s) cannot transform features", n.Name, n.Component)
		}
		if w, ok := c.(component.Windowed); ok && w.Lookback() > p.lookback {
			p.lookback = w.Lookback()
		}
		p.nodes[n.Name] = c
		p.deps[n.Name] = n.DependsOn
	}
	return p, nil
}

// Configuration returns a copy of the configuration the pipeline was built from.
func (p *Pipeline) Configuration() Configuration { return p.config.Clone() }

// Name returns the configuration name.
func (p *Pipeline) Name() string { return p.config.Name }

// Lookback is the number of leading rows dropped before the estimator.
func (p *Pipeline) Lookback() int { return p.lookback }

// IsFitted reports whether Fit succeeded.
func (p *Pipeline) IsFitted() bool { return p.fitted }

// Component returns the built component of a node.
func (p *Pipeline) Component(node string) (component.Component, bool) {
	c, ok := p.nodes[node]
	return c, ok
}

// Parameters returns the full parameter set of every node, defaults included.
func (p *Pipeline) Parameters() map[string]map[string]any {
	out := make(map[string]map[string]any, len(p.nodes))
	for name, c := range p.nodes {
		out[name] = component.CopyParams(c.Parameters())
	}
	return out
}

// Clone returns an unfitted pipeline built from the same configuration.
func (p *Pipeline) Clone() (*Pipeline, error) {
	return New(p.registry, p.config)
}

// SetThreshold sets the binary decision threshold applied to the positive
// class probability.
func (p *Pipeline) SetThreshold(t float64) { p.threshold = &t }

// Threshold returns the binary decision threshold if one is set.
func (p *Pipeline) Threshold() (float64, bool) {
	if p.threshold == nil {
		return 0, false
	}
	return *p.threshold, true
}

// Fit fits every node in dependency order. The first Lookback rows are
// dropped before the estimator since their window features are incomplete.
func (p *Pipeline) Fit(X *data.Frame, y []float64) (err error) {
	defer recoverStep(&err, "fit")
	p.fitted = false

	outputs := make(map[string]*data.Frame, len(p.order))
	for _, name := range p.order {
		input, err := p.input(name, X, outputs)
		if err != nil {
			return err
		}
		c := p.nodes[name]

		if name == p.sink {
			if p.lookback >= input.NumRows() {
				return errors.Dataf("pipeline needs more than %d rows to fit, got %d", p.lookback, input.NumRows())
			}
			est := c.(component.Fittable)
			if err := est.Fit(input.Slice(p.lookback, input.NumRows()), y[p.lookback:]); err != nil {
				return wrapStep(name, err)
			}
			continue
		}

		if f, ok := c.(component.Fittable); ok {
			if err := f.Fit(input, y); err != nil {
				return wrapStep(name, err)
			}
		}
		out, err := c.(component.Transforms).Transform(input, y)
		if err != nil {
			return wrapStep(name, err)
		}
		outputs[name] = out
	}
	p.fitted = true
	return nil
}

// PredictOption configures Predict.
type PredictOption func(*predictOptions)

type predictOptions struct {
	history []float64
	skip    int
}

// WithHistory passes the target aligned with X to windowed transformers and
// drops the first skip rows from the output. Rows whose target is unknown
// carry NaN. Time-series validation prepends skip context rows to X.
func WithHistory(y []float64, skip int) PredictOption {
	return func(o *predictOptions) {
		o.history = y
		o.skip = skip
	}
}

// Predict runs the transformers and the estimator over X.
func (p *Pipeline) Predict(X *data.Frame, opts ...PredictOption) (pred data.Prediction, err error) {
	defer recoverStep(&err, "predict")
	if !p.fitted {
		return data.Prediction{}, errors.Pipeline(p.config.Name, fmt.Errorf("pipeline is not fitted"))
	}
	var o predictOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.skip < 0 || o.skip > X.NumRows() {
		return data.Prediction{}, errors.Dataf("cannot skip %d of %d rows", o.skip, X.NumRows())
	}

	outputs := make(map[string]*data.Frame, len(p.order))
	for _, name := range p.order {
		input, err := p.input(name, X, outputs)
		if err != nil {
			return data.Prediction{}, err
		}
		if name != p.sink {
			out, err := p.nodes[name].(component.Transforms).Transform(input, o.history)
			if err != nil {
				return data.Prediction{}, wrapStep(name, err)
			}
			outputs[name] = out
			continue
		}

		input = input.Slice(o.skip, input.NumRows())
		return p.estimate(name, input)
	}
	return data.Prediction{}, errors.Internal(fmt.Errorf("pipeline has no final node"))
}

// Score predicts X and scores the predictions against yTrue, which must be
// aligned with the rows left after WithHistory's skip.
func (p *Pipeline) Score(X *data.Frame, yTrue []float64, objectives []objective.Objective, opts ...PredictOption) (map[string]float64, error) {
	pred, err := p.Predict(X, opts...)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(objectives))
	for _, o := range objectives {
		s, err := objective.Score(o, yTrue, pred, X)
		if err != nil {
			return nil, err
		}
		scores[o.Name()] = s
	}
	return scores, nil
}

func (p *Pipeline) estimate(name string, X *data.Frame) (data.Prediction, error) {
	c := p.nodes[name]
	if pp, ok := c.(component.PredictsProba); ok {
		pred, err := pp.PredictProba(X)
		if err != nil {
			return data.Prediction{}, wrapStep(name, err)
		}
		if p.threshold != nil && len(pred.Classes) == 2 {
			pos := pred.PositiveProba()
			for i, v := range pos {
				if v >= *p.threshold {
					pred.Values[i] = 1
				} else {
					pred.Values[i] = 0
				}
			}
		}
		return pred, nil
	}
	values, err := c.(component.Predicts).Predict(X)
	if err != nil {
		return data.Prediction{}, wrapStep(name, err)
	}
	return data.Prediction{Values: values}, nil
}

// input concatenates the outputs of a node's dependencies, or returns X for roots.
func (p *Pipeline) input(name string, X *data.Frame, outputs map[string]*data.Frame) (*data.Frame, error) {
	deps := p.deps[name]
	if len(deps) == 0 {
		return X, nil
	}
	frames := make([]*data.Frame, len(deps))
	for i, dep := range deps {
		frames[i] = outputs[dep]
	}
	return data.HStack(frames...)
}

// wrapStep classifies a component error. AppErrors keep their code; anything
// else is a pipeline error of the node.
func wrapStep(node string, err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.Pipeline(node, err)
}

func recoverStep(err *error, op string) {
	if r := recover(); r != nil {
		*err = errors.Pipeline("", fmt.Errorf("panic during %s: %v", op, r))
	}
}
