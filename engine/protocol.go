package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/logger"
)

// Message is the task envelope sent to worker processes and remote workers.
type Message struct {
	Task evaluation.Task `json:"task"`
	// Seed reproduces the submitting evaluator's threshold holdouts.
	Seed int64 `json:"seed"`
	// Workload is a file path for worker processes and a redis key for
	// remote workers.
	Workload string `json:"workload"`
	// Reply is the redis list the result is pushed to.
	Reply string `json:"reply,omitempty"`
	// Timeout bounds the evaluation on the worker. Zero means none.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Reply carries a worker's answer: a result, or an error that kept the
// worker from evaluating at all.
type Reply struct {
	Result *evaluation.Result    `json:"result,omitempty"`
	Error  *errors.ErrorResponse `json:"error,omitempty"`
}

func replyError(err error) Reply {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	resp := appErr.ToResponse()
	return Reply{Error: &resp}
}

// decodeReply turns a worker's output into the task's result. Worker-level
// errors and malformed replies become failed results.
func decodeReply(task *evaluation.Task, raw []byte, elapsed time.Duration) *evaluation.Result {
	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return evaluation.Failed(task, errors.Resource("malformed worker reply", err), elapsed)
	}
	switch {
	case reply.Error != nil:
		return evaluation.Failed(task, errors.FromResponse(*reply.Error), elapsed)
	case reply.Result == nil:
		return evaluation.Failed(task, errors.Resource("empty worker reply", nil), elapsed)
	}
	return reply.Result
}

// serveMessage evaluates one message against an already loaded workload.
func serveMessage(ctx context.Context, registry *component.Registry, w *evaluation.Workload, msg *Message, log *logger.Logger) *evaluation.Result {
	ctx, cancel := withTimeout(ctx, msg.Timeout)
	defer cancel()

	ev := evaluation.NewEvaluator(w, registry, evaluation.WithSeed(msg.Seed), evaluation.WithLogger(log))
	task := msg.Task
	task.ReturnFitted = false
	start := time.Now()
	res := safeEvaluate(ctx, ev, &task)
	log.Debug("Task evaluated", logger.Fields(
		logger.FieldPipelineID, task.ID,
		logger.FieldStatus, string(res.Status),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return res.WithoutFitted()
}

func decodeMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, errors.InvalidInput("message", fmt.Sprintf("decoding task message: %v", err))
	}
	return &msg, nil
}
