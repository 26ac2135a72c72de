package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/automl/engine"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/redis"
	"github.com/kbukum/automl/testutil"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr()}, logger.NewNop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, mini
}

// startWorker serves the task queue until the test ends.
func startWorker(t *testing.T, client *redis.Client, concurrency int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := engine.NewWorker(client, testutil.Registry(), engine.WorkerConfig{
		Concurrency:  concurrency,
		PollInterval: time.Second,
	}, logger.NewNop())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func newDistributed(t *testing.T, ev *evaluation.Evaluator, client *redis.Client, opts ...engine.Option) *engine.Distributed {
	t.Helper()
	d, err := engine.NewDistributed(ev, client, engine.DistributedConfig{}, append([]engine.Option{engine.WithLogger(logger.NewNop())}, opts...)...)
	if err != nil {
		t.Fatalf("NewDistributed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// --- Distributed tests ---

func TestDistributed_RequiresClient(t *testing.T) {
	if _, err := engine.NewDistributed(newEvaluator(t), nil, engine.DistributedConfig{}); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
}

func TestDistributed_MatchesSequential(t *testing.T) {
	client, _ := newRedis(t)
	startWorker(t, client, 2)
	ev := newEvaluator(t)
	d := newDistributed(t, ev, client)

	want := runAll(t, engine.NewSequential(ev), batch(t))
	sameResults(t, want, runAll(t, d, batch(t)))
}

func TestDistributed_WorkloadIsContentAddressed(t *testing.T) {
	client, mini := newRedis(t)
	startWorker(t, client, 1)
	ev := newEvaluator(t)
	d := newDistributed(t, ev, client)
	if d.WorkloadKey() != "" {
		t.Fatal("expected no workload before the first submission")
	}

	runAll(t, d, []*evaluation.Task{newTask(1, testutil.T(t).Baseline(regression))})
	fingerprint, err := ev.Workload().Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	key := d.WorkloadKey()
	if key != engine.DefaultPrefix+":workload:"+fingerprint {
		t.Errorf("unexpected workload key %s", key)
	}
	if !mini.Exists(key) {
		t.Errorf("expected %s to be stored", key)
	}

	// A second engine over the same data reuses the stored workload.
	other := newDistributed(t, newEvaluator(t), client)
	runAll(t, other, []*evaluation.Task{newTask(2, testutil.T(t).Baseline(regression))})
	if other.WorkloadKey() != key {
		t.Errorf("expected the same key, got %s", other.WorkloadKey())
	}
}

func TestDistributed_TimeoutWithoutWorkers(t *testing.T) {
	client, mini := newRedis(t)
	d := newDistributed(t, newEvaluator(t), client, engine.WithTaskTimeout(300*time.Millisecond))

	res := runAll(t, d, []*evaluation.Task{newTask(1, testutil.T(t).Baseline(regression))})[0]
	if res.ErrorKind != evaluation.KindTimeout {
		t.Fatalf("expected a timeout, got %s/%s: %s", res.Status, res.ErrorKind, res.ErrorMessage)
	}
	var marked bool
	for _, key := range mini.Keys() {
		if strings.HasPrefix(key, engine.DefaultPrefix+":cancel:") {
			marked = true
		}
	}
	if !marked {
		t.Error("expected the timed out task to be marked cancelled")
	}
}

func TestDistributed_CancelAll(t *testing.T) {
	client, _ := newRedis(t)
	d := newDistributed(t, newEvaluator(t), client)

	h, err := d.Submit(context.Background(), newTask(1, testutil.T(t).Baseline(regression)))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	d.CancelAll()
	res, err := h.Result(context.Background())
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if res.Status != evaluation.StatusCancelled {
		t.Fatalf("expected a cancelled result, got %s", res.Status)
	}
}

func TestDistributed_BrokerDown(t *testing.T) {
	client, mini := newRedis(t)
	mini.Close()
	d, err := engine.NewDistributed(newEvaluator(t), client, engine.DistributedConfig{}, engine.WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("NewDistributed: %v", err)
	}
	defer d.Close()

	_, err = d.Submit(context.Background(), newTask(1, testutil.T(t).Baseline(regression)))
	if !errors.HasCode(err, errors.ErrCodeResource) {
		t.Fatalf("expected a resource error, got %v", err)
	}
}

func TestWorker_SkipsCancelledTasks(t *testing.T) {
	client, _ := newRedis(t)
	w := engine.NewWorker(client, testutil.Registry(), engine.WorkerConfig{}, logger.NewNop())
	ctx := context.Background()
	reply := engine.DefaultPrefix + ":reply:test"
	if err := client.Set(ctx, engine.DefaultPrefix+":cancel:"+reply, 1, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	w.Handle(ctx, []byte(`{"task":{"id":7,"batch":1,"configuration":{"name":"x"},"objective":"R2"},"workload":"missing","reply":"`+reply+`"}`))
	_, raw, err := client.Pop(ctx, time.Second, reply)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if !strings.Contains(string(raw), `"status":"cancelled"`) {
		t.Errorf("expected a cancelled reply, got %s", raw)
	}
}
