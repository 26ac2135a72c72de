// Package engine runs evaluation tasks on a pluggable execution substrate.
//
// Every engine implements Engine: Submit returns a Handle whose Result
// blocks until the task resolves. The variants differ only in where the
// evaluation runs:
//
//   - Sequential evaluates inside Submit.
//   - ThreadPool evaluates on goroutines bounded by a bulkhead.
//   - ProcessPool starts one worker process per task (ServeProcess on the
//     worker side) and exchanges JSON over stdin and stdout.
//   - Distributed pushes tasks to a redis list served by remote Workers.
//
// Engines never change which tasks run or how they are scored. Task
// failures, timeouts and crashed workers resolve as failed results; only
// resource errors (closed engine, worker binary missing, broker down) are
// returned as errors.
//
//	eng := engine.NewThreadPool(evaluator, engine.WithWorkers(4), engine.WithTaskTimeout(time.Minute))
//	defer eng.Close()
//	h, err := eng.Submit(ctx, task)
//	res, err := h.Result(ctx)
package engine
