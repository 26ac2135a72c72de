package resilience

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/automl/errors"
)

// --- Bulkhead tests ---

func TestBulkhead_AllowsRequestsWithinLimit(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrent: 3})

	var calls int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Execute(context.Background(), func() error {
				atomic.AddInt32(&calls, 1)
				time.Sleep(10 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	var rejected string
	b := NewBulkhead(BulkheadConfig{
		Name:          "engine",
		MaxConcurrent: 1,
		OnReject:      func(name string, _ error) { rejected = name },
	})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer b.Release()

	if err := b.Acquire(context.Background()); !stderrors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if rejected != "engine" {
		t.Errorf("expected OnReject for engine, got %q", rejected)
	}
}

func TestBulkhead_TimesOutWaiting(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	_ = b.Acquire(context.Background())
	defer b.Release()

	start := time.Now()
	if err := b.Acquire(context.Background()); !stderrors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("returned before MaxWait elapsed")
	}
}

func TestBulkhead_WaitsUntilContextDone(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: -1})
	_ = b.Acquire(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Release()
	}()
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("expected the slot after release, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Acquire(ctx); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestBulkhead_AvailableAndInUse(t *testing.T) {
	var inUse []int
	b := NewBulkhead(BulkheadConfig{
		MaxConcurrent: 2,
		OnAcquire:     func(_ string, n int) { inUse = append(inUse, n) },
	})
	_ = b.Acquire(context.Background())
	_ = b.Acquire(context.Background())
	if b.Available() != 0 || b.InUse() != 2 || b.MaxConcurrent() != 2 {
		t.Errorf("unexpected slots: available %d in use %d", b.Available(), b.InUse())
	}
	b.Release()
	if b.Available() != 1 {
		t.Errorf("expected 1 available, got %d", b.Available())
	}
	if len(inUse) != 2 || inUse[1] != 2 {
		t.Errorf("unexpected OnAcquire calls %v", inUse)
	}
}

// --- Retry tests ---

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, BackoffFactor: 2}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(3), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, stderrors.New("broker hiccup")
		}
		return 42, nil
	})
	if err != nil || got != 42 || calls != 2 {
		t.Errorf("expected 42 after 2 calls, got %d after %d (%v)", got, calls, err)
	}
}

func TestRetry_ExceedsMaxAttempts(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), fastRetry(3), func() error {
		calls++
		return errors.Resource("worker unavailable", nil)
	})
	if calls != 3 || errors.CodeOf(err) != errors.ErrCodeResource {
		t.Errorf("expected 3 calls ending in a resource error, got %d (%v)", calls, err)
	}
}

func TestRetry_DefaultRetryIf(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{stderrors.New("plain"), true},
		{errors.Resource("full", nil), true},
		{errors.Storage("save", nil), true},
		{errors.Configuration("bad"), false},
		{errors.Data("bad"), false},
		{context.Canceled, false},
		{ErrCircuitOpen, false},
	}
	for _, tt := range tests {
		if got := DefaultRetryIf(tt.err); got != tt.want {
			t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}

	calls := 0
	_ = RetryFunc(context.Background(), fastRetry(3), func() error {
		calls++
		return errors.Configuration("bad")
	})
	if calls != 1 {
		t.Errorf("expected a configuration error not to be retried, got %d calls", calls)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := RetryConfig{MaxAttempts: 10, InitialBackoff: 50 * time.Millisecond}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RetryFunc(ctx, cfg, func() error {
		calls++
		return stderrors.New("fail")
	})
	if !stderrors.Is(err, context.Canceled) || calls >= 10 {
		t.Errorf("expected cancellation after few calls, got %v after %d", err, calls)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) { attempts = append(attempts, attempt) }
	_ = RetryFunc(context.Background(), cfg, func() error { return stderrors.New("fail") })
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected attempts [1 2], got %v", attempts)
	}
}

func TestBackoffFor(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
	}
	for _, tt := range tests {
		if got := backoffFor(tt.attempt, cfg); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

// --- CircuitBreaker tests ---

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "broker", MaxFailures: 3, Timeout: time.Second})
	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.State())
	}
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return stderrors.New("unreachable") })
	}
	if cb.State() != StateOpen {
		t.Errorf("expected open, got %s", cb.State())
	}
	err := cb.Execute(func() error {
		t.Error("function should not have been called")
		return nil
	})
	if !stderrors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Timeout:     10 * time.Millisecond,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	_ = cb.Execute(func() error { return stderrors.New("fail") })
	time.Sleep(15 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}

	_ = cb.Execute(func() error { return stderrors.New("still failing") })
	if cb.State() != StateOpen {
		t.Fatalf("expected a failed probe to reopen, got %s", cb.State())
	}
	time.Sleep(15 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected the probe to run, got %v", err)
	}
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("expected closed with no failures, got %s/%d", cb.State(), cb.Failures())
	}
	want := []string{"closed->open", "open->half-open", "half-open->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour})
	_ = cb.Execute(func() error { return stderrors.New("fail") })
	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("expected closed after reset, got %s", cb.State())
	}
	if State(42).String() != "unknown" {
		t.Error("expected unknown state name")
	}
}
