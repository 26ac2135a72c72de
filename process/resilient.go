package process

import (
	"context"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/resilience"
)

// RunnerConfig configures the guards around repeated subprocess runs.
// Nil fields are skipped.
type RunnerConfig struct {
	Retry          *resilience.RetryConfig
	CircuitBreaker *resilience.CircuitBreakerConfig
	// TripIf selects the errors the circuit breaker counts. Defaults to
	// every error.
	TripIf func(error) bool
}

// Runner runs subprocesses with persistent breaker state: repeated failures
// open the circuit and later runs fail fast until it half-opens.
type Runner struct {
	retry   *resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	tripIf  func(error) bool
}

// NewRunner creates a Runner. A zero config runs commands directly.
func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{retry: cfg.Retry, tripIf: cfg.TripIf}
	if cfg.CircuitBreaker != nil {
		r.breaker = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if r.tripIf == nil {
		r.tripIf = func(error) bool { return true }
	}
	return r
}

// Run executes cmd through the breaker and retry policy. An open circuit is
// a resource error wrapping resilience.ErrCircuitOpen.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if r == nil {
		return Run(ctx, cmd)
	}
	if r.retry == nil {
		return r.once(ctx, cmd)
	}
	var last *Result
	_, err := resilience.Retry(ctx, *r.retry, func() (struct{}, error) {
		res, err := r.once(ctx, cmd)
		last = res
		return struct{}{}, err
	})
	return last, err
}

// State returns the breaker state, or closed when there is no breaker.
func (r *Runner) State() resilience.State {
	if r == nil || r.breaker == nil {
		return resilience.StateClosed
	}
	return r.breaker.State()
}

func (r *Runner) once(ctx context.Context, cmd Command) (*Result, error) {
	if r.breaker == nil {
		return Run(ctx, cmd)
	}
	var (
		result *Result
		runErr error
	)
	err := r.breaker.Execute(func() error {
		result, runErr = Run(ctx, cmd)
		if runErr != nil && r.tripIf(runErr) {
			return runErr
		}
		return nil
	})
	if err == resilience.ErrCircuitOpen {
		return nil, errors.Resource(cmd.Binary+" circuit is open", err)
	}
	return result, runErr
}
