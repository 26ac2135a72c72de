package engine

import (
	"context"

	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/logger"
)

// Sequential evaluates each task inside Submit, so a task has resolved
// before the next one is submitted. It is the default engine and the
// reference the other engines are compared against.
type Sequential struct {
	evaluator *evaluation.Evaluator
	opts      options
	tasks     *tracker
}

// NewSequential creates a sequential engine. WithWorkers is ignored.
func NewSequential(ev *evaluation.Evaluator, opts ...Option) *Sequential {
	o := newOptions(KindSequential, opts)
	return &Sequential{evaluator: ev, opts: o, tasks: newTracker(KindSequential, o.metrics)}
}

func (s *Sequential) Kind() string { return KindSequential }

func (s *Sequential) Submit(ctx context.Context, task *evaluation.Task) (Handle, error) {
	f, taskCtx, err := s.tasks.admit(ctx, task)
	if err != nil {
		return nil, err
	}
	s.opts.log.Debug("Evaluating task", taskFields(task))

	var res *evaluation.Result
	if s.opts.taskTimeout > 0 {
		timed, cancel := withTimeout(taskCtx, s.opts.taskTimeout)
		res = evaluateInProcess(timed, s.evaluator, task, nil)
		cancel()
	} else {
		res = safeEvaluate(taskCtx, s.evaluator, task)
	}
	s.tasks.settle(f, res, nil)
	s.opts.log.Debug("Task resolved", logger.Fields(
		logger.FieldPipelineID, task.ID,
		logger.FieldStatus, string(res.Status),
	))
	return f, nil
}

func (s *Sequential) CancelAll() { s.tasks.cancelAll() }

func (s *Sequential) Close() error {
	s.tasks.close()
	s.tasks.cancelAll()
	return nil
}
