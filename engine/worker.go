package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/redis"
)

// ServeProcess is the worker side of a ProcessPool: it reads one Message
// from in, evaluates it against the workload file and writes a Reply to
// out. It returns an error only when out cannot be written. Nothing else
// may write to out, so worker processes log to stderr.
func ServeProcess(ctx context.Context, registry *component.Registry, workloadPath string, in io.Reader, out io.Writer, log *logger.Logger) error {
	if log == nil {
		log = logger.Get("worker")
	}
	reply := func() Reply {
		raw, err := io.ReadAll(in)
		if err != nil {
			return replyError(errors.Resource("reading task", err))
		}
		msg, err := decodeMessage(raw)
		if err != nil {
			return replyError(err)
		}
		if workloadPath == "" {
			workloadPath = msg.Workload
		}
		w, err := loadWorkloadFile(workloadPath)
		if err != nil {
			return replyError(err)
		}
		return Reply{Result: serveMessage(ctx, registry, w, msg, log)}
	}()
	if err := json.NewEncoder(out).Encode(reply); err != nil {
		return errors.Resource("writing reply", err)
	}
	return nil
}

func loadWorkloadFile(path string) (*evaluation.Workload, error) {
	if path == "" {
		return nil, errors.MissingField("workload")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Resource("opening workload", err)
	}
	defer file.Close()
	return evaluation.DecodeWorkload(file)
}

// WorkerConfig configures a remote Worker.
type WorkerConfig struct {
	// Queue is the redis list tasks are popped from.
	Queue string
	// Prefix namespaces cancellation keys; it must match the submitter's.
	Prefix string
	// Concurrency is the number of tasks evaluated at once. Defaults to 1.
	Concurrency int
	// PollInterval bounds each blocking pop so Serve notices ctx.
	PollInterval time.Duration
	// ReplyTTL expires unread replies.
	ReplyTTL time.Duration
}

func (c *WorkerConfig) applyDefaults() {
	if c.Queue == "" {
		c.Queue = DefaultQueue
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.ReplyTTL <= 0 {
		c.ReplyTTL = time.Hour
	}
}

// Worker is the remote side of a Distributed engine. It pops messages from
// the task queue, evaluates them and pushes replies. Workloads are fetched
// once per key and cached.
type Worker struct {
	client   *redis.Client
	registry *component.Registry
	cfg      WorkerConfig
	log      *logger.Logger

	mu        sync.Mutex
	workloads map[string]*evaluation.Workload
}

// NewWorker creates a Worker.
func NewWorker(client *redis.Client, registry *component.Registry, cfg WorkerConfig, log *logger.Logger) *Worker {
	cfg.applyDefaults()
	if log == nil {
		log = logger.Get("worker")
	}
	return &Worker{
		client:    client,
		registry:  registry,
		cfg:       cfg,
		log:       log.WithFields(logger.Fields("queue", cfg.Queue)),
		workloads: make(map[string]*evaluation.Workload),
	}
}

// Serve processes messages until ctx is done, then waits for the tasks in
// progress. It returns nil on a done context.
func (w *Worker) Serve(ctx context.Context) error {
	w.log.Info("Worker started", logger.Fields("concurrency", w.cfg.Concurrency))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)

	for gctx.Err() == nil {
		_, raw, err := w.client.Pop(gctx, w.cfg.PollInterval, w.cfg.Queue)
		if err != nil {
			if redis.IsNil(err) || gctx.Err() != nil {
				continue
			}
			w.log.Error("Popping task failed", logger.Fields(logger.FieldError, err.Error()))
			select {
			case <-gctx.Done():
			case <-time.After(w.cfg.PollInterval):
			}
			continue
		}
		g.Go(func() error {
			w.Handle(gctx, raw)
			return nil
		})
	}
	err := g.Wait()
	w.log.Info("Worker stopped")
	return err
}

// Handle evaluates one raw message and pushes its reply.
func (w *Worker) Handle(ctx context.Context, raw []byte) {
	msg, err := decodeMessage(raw)
	if err != nil {
		w.log.Error("Dropping malformed message", logger.Fields(logger.FieldError, err.Error()))
		return
	}
	log := w.log.WithFields(taskFields(&msg.Task))

	var reply Reply
	switch cancelled, err := w.cancelled(ctx, msg.Reply); {
	case err != nil:
		reply = replyError(err)
	case cancelled:
		reply = Reply{Result: evaluation.Failed(&msg.Task, errors.Cancelled("task"), 0)}
	default:
		workload, err := w.workload(ctx, msg.Workload)
		if err != nil {
			reply = replyError(err)
			break
		}
		reply = Reply{Result: serveMessage(ctx, w.registry, workload, msg, log)}
	}

	if msg.Reply == "" {
		return
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		log.Error("Encoding reply failed", logger.Fields(logger.FieldError, err.Error()))
		return
	}
	// The reply must go out even when Serve is stopping.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.client.Push(pushCtx, msg.Reply, payload); err != nil {
		log.Error("Pushing reply failed", logger.Fields(logger.FieldError, err.Error()))
		return
	}
	_ = w.client.Expire(pushCtx, msg.Reply, w.cfg.ReplyTTL)
}

func (w *Worker) cancelled(ctx context.Context, reply string) (bool, error) {
	if reply == "" {
		return false, nil
	}
	n, err := w.client.Exists(ctx, cancelKey(w.cfg.Prefix, reply))
	if err != nil {
		return false, errors.Resource("checking cancellation", err)
	}
	return n > 0, nil
}

func (w *Worker) workload(ctx context.Context, key string) (*evaluation.Workload, error) {
	w.mu.Lock()
	cached, ok := w.workloads[key]
	w.mu.Unlock()
	if ok {
		return cached, nil
	}

	raw, err := w.client.GetBytes(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, errors.Resource("workload "+key+" not found", err)
		}
		return nil, errors.Resource("fetching workload", err)
	}
	workload, err := evaluation.DecodeWorkload(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.workloads[key] = workload
	w.mu.Unlock()
	w.log.Info("Workload loaded", logger.Fields("key", key, "rows", workload.Dataset.NumRows()))
	return workload, nil
}
