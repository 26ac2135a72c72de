package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/redis"
	"github.com/kbukum/automl/resilience"
)

// Defaults shared by Distributed and Worker.
const (
	DefaultQueue  = "automl:tasks"
	DefaultPrefix = "automl"
)

// DistributedConfig configures a Distributed engine.
type DistributedConfig struct {
	// Queue is the redis list remote workers pop tasks from.
	Queue string
	// Prefix namespaces workload, reply and cancellation keys.
	Prefix string
	// WorkloadTTL expires the shared workload. Zero keeps it.
	WorkloadTTL time.Duration
	// PollInterval bounds each blocking wait for a reply.
	PollInterval time.Duration
	// Retry and CircuitBreaker guard broker calls.
	Retry          resilience.RetryConfig
	CircuitBreaker resilience.CircuitBreakerConfig
}

func (c *DistributedConfig) applyDefaults() {
	if c.Queue == "" {
		c.Queue = DefaultQueue
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = resilience.DefaultRetryConfig()
	}
	if c.CircuitBreaker.Name == "" {
		c.CircuitBreaker = resilience.DefaultCircuitBreakerConfig(KindDistributed)
	}
}

// Distributed ships tasks to remote workers through a redis list. The
// workload is stored once under a content-addressed key; each task gets
// its own reply list.
type Distributed struct {
	evaluator *evaluation.Evaluator
	client    *redis.Client
	cfg       DistributedConfig
	opts      options
	tasks     *tracker
	breaker   *resilience.CircuitBreaker
	wg        sync.WaitGroup

	publish  singleflight.Group
	mu       sync.Mutex
	workload string
}

// NewDistributed creates a distributed engine. WithWorkers is ignored; the
// number of remote workers decides the parallelism.
func NewDistributed(ev *evaluation.Evaluator, client *redis.Client, cfg DistributedConfig, opts ...Option) (*Distributed, error) {
	if client == nil {
		return nil, errors.Configuration("distributed engine needs a redis client")
	}
	cfg.applyDefaults()
	o := newOptions(KindDistributed, opts)
	log := o.log
	cfg.CircuitBreaker.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("Broker circuit changed", logger.Fields("from", from.String(), "to", to.String()))
	}
	return &Distributed{
		evaluator: ev,
		client:    client,
		cfg:       cfg,
		opts:      o,
		tasks:     newTracker(KindDistributed, o.metrics),
		breaker:   resilience.NewCircuitBreaker(cfg.CircuitBreaker),
	}, nil
}

func (d *Distributed) Kind() string { return KindDistributed }

// broker runs a redis call through the circuit breaker and retry policy.
func (d *Distributed) broker(ctx context.Context, op string, fn func() error) error {
	err := resilience.RetryFunc(ctx, d.cfg.Retry, func() error {
		return d.breaker.Execute(fn)
	})
	if err != nil && ctx.Err() == nil {
		return errors.Resource("broker "+op+" failed", err)
	}
	return err
}

func (d *Distributed) Submit(ctx context.Context, task *evaluation.Task) (Handle, error) {
	f, taskCtx, err := d.tasks.admit(ctx, task)
	if err != nil {
		return nil, err
	}
	key, err := d.publishWorkload(ctx)
	if err != nil {
		d.tasks.settle(f, nil, err)
		return nil, err
	}

	reply := d.cfg.Prefix + ":reply:" + uuid.NewString()
	payload, err := json.Marshal(Message{
		Task:     *task,
		Seed:     d.evaluator.Seed(),
		Workload: key,
		Reply:    reply,
		Timeout:  d.opts.taskTimeout,
	})
	if err != nil {
		d.tasks.settle(f, nil, errors.Internal(err))
		return nil, errors.Internal(err)
	}
	if err := d.broker(ctx, "push", func() error {
		return d.client.Push(ctx, d.cfg.Queue, payload)
	}); err != nil {
		d.tasks.settle(f, nil, err)
		return nil, err
	}
	d.opts.log.Debug("Task queued", taskFields(task))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		res, err := d.await(taskCtx, task, reply)
		d.tasks.settle(f, res, err)
	}()
	return f, nil
}

// await waits for the reply of one task.
func (d *Distributed) await(ctx context.Context, task *evaluation.Task, reply string) (*evaluation.Result, error) {
	timed, cancel := withTimeout(ctx, d.opts.taskTimeout)
	defer cancel()
	start := time.Now()

	for {
		var raw []byte
		err := d.broker(timed, "pop", func() error {
			_, value, err := d.client.Pop(timed, d.cfg.PollInterval, reply)
			if redis.IsNil(err) {
				return nil
			}
			raw = value
			return err
		})
		switch {
		case timed.Err() != nil:
			d.markCancelled(reply)
			return interrupted(timed, task, time.Since(start)), nil
		case err != nil:
			d.opts.log.Error("Broker unreachable", logger.MergeWithError(taskFields(task), err))
			return nil, err
		case raw != nil:
			return decodeReply(task, raw, time.Since(start)), nil
		}
	}
}

// markCancelled tells workers to skip a task they have not started.
func (d *Distributed) markCancelled(reply string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PollInterval)
	defer cancel()
	if err := d.client.Set(ctx, cancelKey(d.cfg.Prefix, reply), 1, time.Hour); err != nil {
		d.opts.log.Warn("Marking task cancelled failed", logger.Fields(logger.FieldError, err.Error()))
	}
}

// publishWorkload stores the workload once under its fingerprint.
func (d *Distributed) publishWorkload(ctx context.Context) (string, error) {
	d.mu.Lock()
	key := d.workload
	d.mu.Unlock()
	if key != "" {
		return key, nil
	}

	v, err, _ := d.publish.Do("workload", func() (interface{}, error) {
		w := d.evaluator.Workload()
		raw, err := w.Bytes()
		if err != nil {
			return "", err
		}
		fingerprint, err := w.Fingerprint()
		if err != nil {
			return "", err
		}
		key := d.cfg.Prefix + ":workload:" + fingerprint
		err = d.broker(ctx, "publish workload", func() error {
			_, err := d.client.SetNX(ctx, key, raw, d.cfg.WorkloadTTL)
			return err
		})
		if err != nil {
			return "", err
		}
		d.mu.Lock()
		d.workload = key
		d.mu.Unlock()
		d.opts.log.Info("Workload published", logger.Fields("key", key, "bytes", len(raw)))
		return key, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// WorkloadKey returns the redis key of the published workload, if any.
func (d *Distributed) WorkloadKey() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.workload
}

func (d *Distributed) CancelAll() { d.tasks.cancelAll() }

// Close cancels unresolved tasks and waits for their waiters. The shared
// workload is left for its TTL since other searches may use it.
func (d *Distributed) Close() error {
	if d.tasks.close() {
		return nil
	}
	d.tasks.cancelAll()
	d.wg.Wait()
	return nil
}

func cancelKey(prefix, reply string) string {
	return prefix + ":cancel:" + reply
}
