package process_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/process"
	"github.com/kbukum/automl/resilience"
)

// --- Runner tests ---

func TestRunner_NilRunsDirectly(t *testing.T) {
	var runner *process.Runner
	result, err := runner.Run(context.Background(), process.Command{Binary: "echo", Args: []string{"hello"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "hello\n" {
		t.Fatalf("expected 'hello\\n', got %q", result.Stdout)
	}
	if runner.State() != resilience.StateClosed {
		t.Error("expected a nil runner to report closed")
	}
}

func TestRunner_RetriesFailures(t *testing.T) {
	attempts := 0
	runner := process.NewRunner(process.RunnerConfig{
		Retry: &resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			BackoffFactor:  1.0,
			OnRetry:        func(int, error, time.Duration) { attempts++ },
		},
	})
	result, err := runner.Run(context.Background(), process.Command{Binary: "false"})
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if attempts != 1 {
		t.Errorf("expected one retry, got %d", attempts)
	}
	if result == nil || result.ExitCode != 1 {
		t.Errorf("expected the last result to be kept, got %+v", result)
	}
}

func TestRunner_CircuitBreakerTrips(t *testing.T) {
	runner := process.NewRunner(process.RunnerConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{
			Name:        "worker",
			MaxFailures: 2,
			Timeout:     time.Minute,
		},
	})
	for i := 0; i < 2; i++ {
		if _, err := runner.Run(context.Background(), process.Command{Binary: "false"}); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	_, err := runner.Run(context.Background(), process.Command{Binary: "echo"})
	if !stderrors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen in the chain, got %v", err)
	}
	if !errors.HasCode(err, errors.ErrCodeResource) {
		t.Errorf("expected a resource error, got %v", err)
	}
	if runner.State() != resilience.StateOpen {
		t.Errorf("expected open, got %s", runner.State())
	}
}

func TestRunner_TripIfIgnoresCrashes(t *testing.T) {
	runner := process.NewRunner(process.RunnerConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute},
		TripIf:         process.NotStarted,
	})
	for i := 0; i < 3; i++ {
		_, err := runner.Run(context.Background(), process.Command{Binary: "false"})
		if err == nil || stderrors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatalf("call %d: expected the crash itself, got %v", i, err)
		}
	}

	_, _ = runner.Run(context.Background(), process.Command{Binary: "automl-worker-does-not-exist"})
	if runner.State() != resilience.StateOpen {
		t.Errorf("expected a launch failure to open the circuit, got %s", runner.State())
	}
}

func TestRunner_SuccessDoesNotTrip(t *testing.T) {
	runner := process.NewRunner(process.RunnerConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Second},
	})
	for i := 0; i < 5; i++ {
		if _, err := runner.Run(context.Background(), process.Command{Binary: "echo", Args: []string{"ok"}}); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}
}
