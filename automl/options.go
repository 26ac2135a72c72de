package automl

import (
	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/components"
	"github.com/kbukum/automl/datacheck"
	"github.com/kbukum/automl/engine"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/observability"
	"github.com/kbukum/automl/redis"
)

// EngineFactory builds the engine of a search once its evaluator exists.
type EngineFactory func(ev *evaluation.Evaluator) (engine.Engine, error)

// Option configures a search during Start.
type Option func(*searchOptions)

type searchOptions struct {
	callbacks Callbacks
	engine    EngineFactory
	redis     *redis.Client
	log       *logger.Logger
	metrics   *observability.SearchMetrics
	registry  *component.Registry
	checks    datacheck.Checks
	setChecks bool
	searchID  string
}

func resolveOptions(opts []Option) *searchOptions {
	o := &searchOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Get("automl")
	}
	if o.registry == nil {
		o.registry = components.NewRegistry()
	}
	return o
}

// WithCallbacks registers the search callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(o *searchOptions) {
		o.callbacks = cb
	}
}

// WithEngine overrides the engine built from Config.Engine.
func WithEngine(f EngineFactory) Option {
	return func(o *searchOptions) {
		o.engine = f
	}
}

// WithRedis sets the broker client of the distributed engine.
func WithRedis(client *redis.Client) Option {
	return func(o *searchOptions) {
		o.redis = client
	}
}

// WithLogger sets the logger. Defaults to the "automl" registry logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *searchOptions) {
		o.log = l
	}
}

// WithMetrics records search metrics.
func WithMetrics(m *observability.SearchMetrics) Option {
	return func(o *searchOptions) {
		o.metrics = m
	}
}

// WithRegistry sets the component registry. Defaults to the built-in
// components.
func WithRegistry(r *component.Registry) Option {
	return func(o *searchOptions) {
		o.registry = r
	}
}

// WithChecks replaces the default data checks. An empty list disables them.
func WithChecks(checks ...datacheck.Check) Option {
	return func(o *searchOptions) {
		o.checks = checks
		o.setChecks = true
	}
}

// withSearchID is used by Resume to keep the id of the restored search.
func withSearchID(id string) Option {
	return func(o *searchOptions) {
		o.searchID = id
	}
}
