package resilience

import (
	"context"
	"errors"
	"time"
)

// Common bulkhead errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead in logs and metrics.
	Name string
	// MaxConcurrent is the number of slots.
	MaxConcurrent int
	// MaxWait is how long Acquire waits for a slot. 0 fails immediately,
	// a negative value waits until the context is done.
	MaxWait time.Duration
	// OnReject is called when a caller gives up on a slot.
	OnReject func(name string, err error)
	// OnAcquire is called with the number of slots in use after an acquire.
	OnAcquire func(name string, inUse int)
}

// Bulkhead bounds the number of concurrently running evaluations.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a bulkhead. MaxConcurrent defaults to 1.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire takes a slot. Callers must Release it.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name, err)
		}
		return err
	}
	if b.config.OnAcquire != nil {
		b.config.OnAcquire(b.config.Name, len(b.sem))
	}
	return nil
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	<-b.sem
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return fn()
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	switch {
	case b.config.MaxWait == 0:
		return ErrBulkheadFull
	case b.config.MaxWait < 0:
		select {
		case b.sem <- struct{}{}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Available returns the number of free slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots taken.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// MaxConcurrent returns the number of slots.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
