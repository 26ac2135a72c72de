package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/automl/config"
	"github.com/kbukum/automl/logger"
)

// testConfig is a minimal config that satisfies the Config interface.
type testConfig struct {
	config.ServiceConfig
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func newTestApp(t *testing.T) (*App[*testConfig], *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app, err := NewApp(newTestConfig("test", "1.0"), WithLogger(logger.NewNop()), WithSummaryOutput(&out))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app, &out
}

// --- App tests ---

func TestNewApp(t *testing.T) {
	cfg := newTestConfig("test-svc", "1.0.0")
	app, err := NewApp(cfg, WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.Name != "test-svc" {
		t.Errorf("expected name 'test-svc', got %q", app.Name)
	}
	if app.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", app.Version)
	}
	if app.Logger == nil || app.Summary == nil {
		t.Error("expected logger and summary")
	}
	if app.Cfg.Name != "test-svc" {
		t.Errorf("expected cfg.Name 'test-svc', got %q", app.Cfg.Name)
	}
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected default 15s, got %v", app.gracefulTimeout)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "x", Environment: "moon"}}
	if _, err := NewApp(cfg, WithLogger(logger.NewNop())); err == nil {
		t.Error("expected error for an unknown environment")
	}
}

func TestWithGracefulTimeout(t *testing.T) {
	app, err := NewApp(newTestConfig("test", "1.0"), WithLogger(logger.NewNop()), WithGracefulTimeout(30*time.Second))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.gracefulTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", app.gracefulTimeout)
	}
}

// --- Hook tests ---

func TestMultipleHooks(t *testing.T) {
	app, _ := newTestApp(t)
	order := []string{}
	app.OnStart(
		func(ctx context.Context) error { order = append(order, "first"); return nil },
		func(ctx context.Context) error { order = append(order, "second"); return nil },
	)

	if err := runHooks(context.Background(), app.onStart); err != nil {
		t.Fatalf("hooks failed: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected [first, second], got %v", order)
	}
}

func TestHookErrorStopsExecution(t *testing.T) {
	secondCalled := false
	hooks := []Hook{
		func(ctx context.Context) error { return fmt.Errorf("fail") },
		func(ctx context.Context) error { secondCalled = true; return nil },
	}
	if err := runHooks(context.Background(), hooks); err == nil {
		t.Error("expected error from failing hook")
	}
	if secondCalled {
		t.Error("expected second hook not to be called after first fails")
	}
}

// --- RunTask tests ---

func TestRunTaskSuccess(t *testing.T) {
	app, _ := newTestApp(t)
	executed := false
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		executed = true
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !executed {
		t.Error("expected task to be executed")
	}
}

func TestRunTaskError(t *testing.T) {
	app, _ := newTestApp(t)
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return fmt.Errorf("task error")
	})
	if err == nil || err.Error() != "task error" {
		t.Errorf("expected 'task error', got %v", err)
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := app.RunTask(ctx, func(taskCtx context.Context) error {
		cancel()
		<-taskCtx.Done()
		return taskCtx.Err()
	})
	if err == nil {
		t.Error("expected error from canceled task")
	}
}

func TestRunTaskLifecycleOrder(t *testing.T) {
	app, _ := newTestApp(t)
	order := []string{}
	closer := func(name string) func(context.Context) error {
		return func(context.Context) error { order = append(order, "close "+name); return nil }
	}
	app.OnStart(func(ctx context.Context) error {
		order = append(order, "start")
		app.Track(Resource{Name: "redis", Kind: "redis", Close: closer("redis")})
		app.Track(Resource{Name: "ledger", Kind: "ledger", Close: closer("ledger")})
		return nil
	})
	app.OnStop(func(ctx context.Context) error {
		order = append(order, "stop")
		return nil
	})

	if err := app.RunTask(context.Background(), func(ctx context.Context) error {
		order = append(order, "task")
		return nil
	}); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	expected := []string{"start", "task", "stop", "close ledger", "close redis"}
	if strings.Join(order, ",") != strings.Join(expected, ",") {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestRunTaskStartHookErrorClosesResources(t *testing.T) {
	app, _ := newTestApp(t)
	closed := false
	taskRan := false
	app.OnStart(
		func(ctx context.Context) error {
			app.Track(Resource{Name: "redis", Close: func(context.Context) error { closed = true; return nil }})
			return nil
		},
		func(ctx context.Context) error { return fmt.Errorf("store unreachable") },
	)

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		taskRan = true
		return nil
	})
	if err == nil {
		t.Fatal("expected start error")
	}
	if taskRan {
		t.Error("task should not run after a failed start")
	}
	if !closed {
		t.Error("resources opened before the failure should be closed")
	}
}

func TestRunTaskCloseError(t *testing.T) {
	app, _ := newTestApp(t)
	app.Track(Resource{Name: "ledger", Close: func(context.Context) error { return fmt.Errorf("flush failed") }})

	err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "ledger") {
		t.Errorf("expected close error naming the resource, got %v", err)
	}
}

func TestShutdownOnce(t *testing.T) {
	app, _ := newTestApp(t)
	calls := 0
	app.Track(Resource{Name: "redis", Close: func(context.Context) error { calls++; return nil }})

	_ = app.Shutdown(context.Background())
	_ = app.Shutdown(context.Background())
	if calls != 1 {
		t.Errorf("expected one close, got %d", calls)
	}
}

// --- Summary tests ---

func TestSummaryDisplay(t *testing.T) {
	app, out := newTestApp(t)
	app.Summary.TrackSetting("engine", "threads")
	app.OnStart(func(ctx context.Context) error {
		app.Track(Resource{Name: "ledger", Kind: "ledger", Details: "sql ledger.db"})
		return nil
	})
	if err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"test 1.0", "ledger: sql ledger.db", "engine: threads"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestSummaryDisplayInProcess(t *testing.T) {
	var out bytes.Buffer
	NewSummary("automl", "").Display(&out)
	if !strings.Contains(out.String(), "In-process only") || !strings.Contains(out.String(), "automl dev") {
		t.Errorf("unexpected summary:\n%s", out.String())
	}
}

func TestTreePrefix(t *testing.T) {
	if p := treePrefix(2, 3); p != "└──" {
		t.Errorf("expected '└──' for last item, got %q", p)
	}
	if p := treePrefix(0, 3); p != "├──" {
		t.Errorf("expected '├──' for non-last item, got %q", p)
	}
}

func TestStatusIcon(t *testing.T) {
	tests := []struct {
		status  string
		healthy bool
		icon    string
	}{
		{"connected", true, "✅"},
		{"disabled", true, "⏸️"},
		{"error", true, "❌"},
		{"unknown", true, "⚠️"},
		{"connected", false, "❌"},
	}

	for _, tc := range tests {
		got := statusIcon(tc.status, tc.healthy)
		if got != tc.icon {
			t.Errorf("statusIcon(%q, %v) = %q, expected %q", tc.status, tc.healthy, got, tc.icon)
		}
	}
}
