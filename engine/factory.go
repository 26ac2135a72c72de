package engine

import (
	"github.com/kbukum/automl/config"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/redis"
)

// FromConfig builds the engine cfg selects. client is only needed for the
// distributed engine.
func FromConfig(cfg config.EngineConfig, ev *evaluation.Evaluator, client *redis.Client, opts ...Option) (Engine, error) {
	cfg.ApplyDefaults()
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, errors.InvalidInput("engine.task_timeout", err.Error())
	}
	opts = append([]Option{WithWorkers(cfg.Workers), WithTaskTimeout(timeout)}, opts...)

	switch cfg.Kind {
	case KindSequential:
		return NewSequential(ev, opts...), nil
	case KindThreads:
		return NewThreadPool(ev, opts...), nil
	case KindProcesses:
		return NewProcessPool(ev, ProcessConfig{Binary: cfg.WorkerBinary}, opts...)
	case KindDistributed:
		return NewDistributed(ev, client, DistributedConfig{Queue: cfg.Queue}, opts...)
	}
	return nil, errors.Configurationf("unknown engine kind %q", cfg.Kind)
}
