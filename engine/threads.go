package engine

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/resilience"
)

// ThreadPool evaluates tasks on goroutines sharing the process' dataset.
// A bulkhead bounds how many evaluations run at once; Submit waits for a
// slot until its context is done.
type ThreadPool struct {
	evaluator *evaluation.Evaluator
	opts      options
	tasks     *tracker
	bulkhead  *resilience.Bulkhead
	wg        sync.WaitGroup
}

// NewThreadPool creates a thread-pool engine with WithWorkers slots.
func NewThreadPool(ev *evaluation.Evaluator, opts ...Option) *ThreadPool {
	o := newOptions(KindThreads, opts)
	log := o.log
	return &ThreadPool{
		evaluator: ev,
		opts:      o,
		tasks:     newTracker(KindThreads, o.metrics),
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          KindThreads,
			MaxConcurrent: o.workers,
			MaxWait:       -1,
			OnReject: func(name string, err error) {
				log.Warn("Task not admitted", logger.Fields(logger.FieldError, err.Error()))
			},
		}),
	}
}

func (p *ThreadPool) Kind() string { return KindThreads }

// Workers returns the number of slots.
func (p *ThreadPool) Workers() int { return p.bulkhead.MaxConcurrent() }

func (p *ThreadPool) Submit(ctx context.Context, task *evaluation.Task) (Handle, error) {
	f, taskCtx, err := p.tasks.admit(ctx, task)
	if err != nil {
		return nil, err
	}
	if err := p.bulkhead.Acquire(ctx); err != nil {
		p.tasks.settle(f, nil, err)
		if ctx.Err() != nil {
			return nil, errors.Cancelled("submitting task").WithCause(err)
		}
		return nil, errors.Resource("thread pool cannot admit task", err)
	}

	if err := p.tasks.launch(&p.wg); err != nil {
		p.bulkhead.Release()
		p.tasks.settle(f, nil, err)
		return nil, err
	}
	go func() {
		defer p.wg.Done()
		start := time.Now()
		timed, cancel := withTimeout(taskCtx, p.opts.taskTimeout)
		defer cancel()
		// The slot is held until the evaluation returns, even when the
		// task has already resolved with a timeout.
		res := evaluateInProcess(timed, p.evaluator, task, p.bulkhead.Release)
		p.tasks.settle(f, res, nil)
		p.opts.log.Debug("Task resolved", logger.Fields(
			logger.FieldPipelineID, task.ID,
			logger.FieldStatus, string(res.Status),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	}()
	return f, nil
}

func (p *ThreadPool) CancelAll() { p.tasks.cancelAll() }

// Close cancels unresolved tasks and waits for them to resolve.
func (p *ThreadPool) Close() error {
	if p.tasks.close() {
		return nil
	}
	p.tasks.cancelAll()
	p.wg.Wait()
	return nil
}
