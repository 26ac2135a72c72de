package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/observability"
)

// Engine kinds.
const (
	KindSequential  = "sequential"
	KindThreads     = "threads"
	KindProcesses   = "processes"
	KindDistributed = "distributed"
)

// Engine runs evaluation tasks.
//
// Submit and Result return resource errors (the engine is closed, cannot
// start a worker or cannot reach its broker) and cancellation errors when
// the caller's context is done. Every task failure, including a crashed
// worker, is a failed Result.
type Engine interface {
	// Kind names the execution substrate.
	Kind() string
	// Submit starts a task and returns its handle.
	Submit(ctx context.Context, task *evaluation.Task) (Handle, error)
	// CancelAll cancels every unresolved task.
	CancelAll()
	// Close cancels unresolved tasks and releases the engine's resources.
	Close() error
}

// Handle is the future of one submitted task.
type Handle interface {
	Task() *evaluation.Task
	// Result blocks until the task resolves or ctx is done.
	Result(ctx context.Context) (*evaluation.Result, error)
	// Cancel asks the task to stop. A cancelled task resolves with a
	// cancelled result.
	Cancel()
}

// Option configures an engine.
type Option func(*options)

type options struct {
	workers     int
	taskTimeout time.Duration
	log         *logger.Logger
	metrics     *observability.SearchMetrics
}

// WithWorkers sets the number of concurrent tasks. Defaults to 1.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTaskTimeout bounds each task. A task over budget resolves with a
// timeout result.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *options) {
		o.taskTimeout = d
	}
}

// WithLogger sets the logger. Defaults to the "engine" registry logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMetrics records in-flight task counts.
func WithMetrics(m *observability.SearchMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func newOptions(kind string, opts []Option) options {
	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = 1
	}
	if o.log == nil {
		o.log = logger.Get("engine")
	}
	o.log = o.log.WithFields(logger.Fields(logger.FieldEngine, kind))
	return o
}

// future is the Handle shared by every engine.
type future struct {
	task   *evaluation.Task
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	result *evaluation.Result
	err    error
}

func newFuture(task *evaluation.Task, cancel context.CancelFunc) *future {
	return &future{task: task, cancel: cancel, done: make(chan struct{})}
}

func (f *future) Task() *evaluation.Task { return f.task }

func (f *future) Result(ctx context.Context) (*evaluation.Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, errors.Cancelled(fmt.Sprintf("waiting for task %d", f.task.ID)).WithCause(ctx.Err())
	}
}

func (f *future) Cancel() { f.cancel() }

// resolve settles the future once; later calls are ignored.
func (f *future) resolve(res *evaluation.Result, err error) bool {
	settled := false
	f.once.Do(func() {
		f.result, f.err = res, err
		f.cancel()
		close(f.done)
		settled = true
	})
	return settled
}

func (f *future) resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// tracker keeps the unresolved futures of an engine for CancelAll and Close.
type tracker struct {
	mu      sync.Mutex
	pending map[*future]struct{}
	closed  bool
	kind    string
	metrics *observability.SearchMetrics
}

func newTracker(kind string, metrics *observability.SearchMetrics) *tracker {
	return &tracker{pending: make(map[*future]struct{}), kind: kind, metrics: metrics}
}

// admit registers a new future, failing once the engine is closed.
func (t *tracker) admit(ctx context.Context, task *evaluation.Task) (*future, context.Context, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, errors.Resource(t.kind+" engine is closed", nil)
	}
	taskCtx, cancel := context.WithCancel(ctx)
	f := newFuture(task, cancel)
	t.pending[f] = struct{}{}
	t.metrics.TaskStarted(ctx, t.kind)
	return f, taskCtx, nil
}

// settle resolves f and forgets it.
func (t *tracker) settle(f *future, res *evaluation.Result, err error) {
	if !f.resolve(res, err) {
		return
	}
	t.mu.Lock()
	delete(t.pending, f)
	t.mu.Unlock()
	t.metrics.TaskFinished(context.Background(), t.kind)
}

func (t *tracker) cancelAll() {
	t.mu.Lock()
	pending := make([]*future, 0, len(t.pending))
	for f := range t.pending {
		pending = append(pending, f)
	}
	t.mu.Unlock()
	for _, f := range pending {
		f.Cancel()
	}
}

// launch adds a goroutine to wg unless the tracker closed after f was
// admitted. Close waits on wg only after closing, so Add never races Wait.
func (t *tracker) launch(wg *sync.WaitGroup) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.Resource(t.kind+" engine is closed", nil)
	}
	wg.Add(1)
	return nil
}

// close marks the tracker closed and reports whether it already was.
func (t *tracker) close() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.closed
	t.closed = true
	return was
}

// withTimeout derives the per-task context.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// interrupted turns a done task context into the result the task resolves
// with when its evaluation is abandoned.
func interrupted(ctx context.Context, task *evaluation.Task, elapsed time.Duration) *evaluation.Result {
	op := fmt.Sprintf("task %d", task.ID)
	if ctx.Err() == context.DeadlineExceeded {
		return evaluation.Failed(task, errors.Timeout(op).WithCause(ctx.Err()), elapsed)
	}
	return evaluation.Failed(task, errors.Cancelled(op).WithCause(ctx.Err()), elapsed)
}

// evaluateInProcess runs an evaluation in a goroutine and resolves when it
// finishes or ctx is done, whichever comes first. An abandoned evaluation
// keeps running until its next context check; done is called when it
// actually returns.
func evaluateInProcess(ctx context.Context, ev *evaluation.Evaluator, task *evaluation.Task, done func()) *evaluation.Result {
	start := time.Now()
	out := make(chan *evaluation.Result, 1)
	go func() {
		if done != nil {
			defer done()
		}
		out <- safeEvaluate(ctx, ev, task)
	}()
	select {
	case res := <-out:
		return res
	case <-ctx.Done():
		return interrupted(ctx, task, time.Since(start))
	}
}

// safeEvaluate turns a panic escaping the evaluator into a pipeline error.
func safeEvaluate(ctx context.Context, ev *evaluation.Evaluator, task *evaluation.Task) (res *evaluation.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = evaluation.Failed(task, errors.Pipeline(task.Configuration.Estimator(), fmt.Errorf("panic: %v", r)), time.Since(start))
		}
	}()
	return ev.Evaluate(ctx, task)
}

func taskFields(task *evaluation.Task) map[string]interface{} {
	return logger.Fields(
		logger.FieldPipelineID, task.ID,
		logger.FieldBatch, task.Batch,
		logger.FieldPipeline, task.Configuration.Name,
	)
}
