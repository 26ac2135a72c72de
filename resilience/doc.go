// Package resilience provides the guards execution engines put around
// evaluation work.
//
//   - Bulkhead: bounds how many evaluations run at once.
//   - Retry: retries transient failures with exponential backoff.
//   - CircuitBreaker: fails fast when a dependency keeps failing.
//
// A thread-pool engine acquires a bulkhead slot per task; a distributed
// engine wraps broker calls in a circuit breaker and retries them:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("broker"))
//	err := resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), func() error {
//	    return cb.Execute(func() error {
//	        return client.LPush(ctx, queue, payload).Err()
//	    })
//	})
package resilience
