package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/process"
	"github.com/kbukum/automl/resilience"
)

// ProcessConfig configures the worker processes of a ProcessPool.
type ProcessConfig struct {
	// Binary is the worker executable. It is started as
	// "<Binary> <Args...> process --workload <path>".
	Binary string
	Args   []string
	Env    []string
	// GracePeriod is the wait between SIGTERM and SIGKILL.
	GracePeriod time.Duration
	// Dir is where the workload is spilled. Defaults to os.TempDir().
	Dir string
}

// ProcessPool evaluates each task in its own worker process. The workload
// is written to disk once; every worker decodes its own copy, so no memory
// is shared across a task boundary.
type ProcessPool struct {
	evaluator *evaluation.Evaluator
	cfg       ProcessConfig
	opts      options
	tasks     *tracker
	bulkhead  *resilience.Bulkhead
	runner    *process.Runner
	wg        sync.WaitGroup

	spill    singleflight.Group
	mu       sync.Mutex
	spillDir string
	workload string
}

// NewProcessPool creates a process-pool engine with WithWorkers processes.
func NewProcessPool(ev *evaluation.Evaluator, cfg ProcessConfig, opts ...Option) (*ProcessPool, error) {
	if cfg.Binary == "" {
		return nil, errors.MissingField("engine.worker_binary")
	}
	o := newOptions(KindProcesses, opts)
	breaker := resilience.DefaultCircuitBreakerConfig(KindProcesses)
	breaker.MaxFailures = 1
	log := o.log
	breaker.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("Worker launch circuit changed", logger.Fields("from", from.String(), "to", to.String()))
	}
	return &ProcessPool{
		evaluator: ev,
		cfg:       cfg,
		opts:      o,
		tasks:     newTracker(KindProcesses, o.metrics),
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          KindProcesses,
			MaxConcurrent: o.workers,
			MaxWait:       -1,
		}),
		// Only launch failures count: a crashing task says nothing about
		// the next one.
		runner: process.NewRunner(process.RunnerConfig{
			CircuitBreaker: &breaker,
			TripIf:         process.NotStarted,
		}),
	}, nil
}

func (p *ProcessPool) Kind() string { return KindProcesses }

func (p *ProcessPool) Submit(ctx context.Context, task *evaluation.Task) (Handle, error) {
	f, taskCtx, err := p.tasks.admit(ctx, task)
	if err != nil {
		return nil, err
	}
	path, err := p.spillWorkload()
	if err != nil {
		p.tasks.settle(f, nil, err)
		return nil, err
	}
	if err := p.bulkhead.Acquire(ctx); err != nil {
		p.tasks.settle(f, nil, err)
		return nil, errors.Cancelled("submitting task").WithCause(err)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.bulkhead.Release()
		res, err := p.run(taskCtx, task, path)
		p.tasks.settle(f, res, err)
	}()
	return f, nil
}

func (p *ProcessPool) run(ctx context.Context, task *evaluation.Task, path string) (*evaluation.Result, error) {
	timed, cancel := withTimeout(ctx, p.opts.taskTimeout)
	defer cancel()

	payload, err := json.Marshal(Message{Task: *task, Seed: p.evaluator.Seed(), Workload: path})
	if err != nil {
		return nil, errors.Internal(err)
	}
	args := append(append([]string{}, p.cfg.Args...), "process", "--workload", path)
	start := time.Now()
	out, err := p.runner.Run(timed, process.Command{
		Binary:      p.cfg.Binary,
		Args:        args,
		Env:         p.cfg.Env,
		Stdin:       bytes.NewReader(payload),
		GracePeriod: p.cfg.GracePeriod,
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		return decodeReply(task, out.Stdout, elapsed), nil
	case timed.Err() != nil:
		return interrupted(timed, task, elapsed), nil
	case process.NotStarted(err) || errors.HasCode(err, errors.ErrCodeResource) && out == nil:
		p.opts.log.Error("Cannot start worker process", logger.Fields(logger.FieldError, err.Error()))
		return nil, err
	}
	p.opts.log.Warn("Worker process failed", logger.MergeWithError(taskFields(task), err))
	return evaluation.Failed(task, err, elapsed), nil
}

// spillWorkload writes the workload to a temp file on first use.
func (p *ProcessPool) spillWorkload() (string, error) {
	p.mu.Lock()
	path := p.workload
	p.mu.Unlock()
	if path != "" {
		return path, nil
	}

	v, err, _ := p.spill.Do("workload", func() (interface{}, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.workload != "" {
			return p.workload, nil
		}
		dir, err := os.MkdirTemp(p.cfg.Dir, "automl-workload-")
		if err != nil {
			return "", errors.Resource("creating workload directory", err)
		}
		path := filepath.Join(dir, "workload.gob")
		file, err := os.Create(path)
		if err != nil {
			_ = os.RemoveAll(dir)
			return "", errors.Resource("creating workload file", err)
		}
		if err := p.evaluator.Workload().Encode(file); err != nil {
			_ = file.Close()
			_ = os.RemoveAll(dir)
			return "", err
		}
		if err := file.Close(); err != nil {
			_ = os.RemoveAll(dir)
			return "", errors.Resource("writing workload file", err)
		}
		p.spillDir, p.workload = dir, path
		p.opts.log.Debug("Workload spilled", logger.Fields("path", path))
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// WorkloadPath returns the spilled workload file, empty before the first
// submission and after Close.
func (p *ProcessPool) WorkloadPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workload
}

func (p *ProcessPool) CancelAll() { p.tasks.cancelAll() }

// Close terminates running workers and removes the spilled workload.
func (p *ProcessPool) Close() error {
	if p.tasks.close() {
		return nil
	}
	p.tasks.cancelAll()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spillDir == "" {
		return nil
	}
	if err := os.RemoveAll(p.spillDir); err != nil {
		return errors.Resource("removing workload", err)
	}
	p.spillDir, p.workload = "", ""
	return nil
}
