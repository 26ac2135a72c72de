package automl

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// StopReason says why a search ended.
type StopReason string

const (
	StopNone          StopReason = ""
	StopMaxBatches    StopReason = "max_batches"
	StopMaxIterations StopReason = "max_iterations"
	StopMaxTime       StopReason = "max_time"
	StopCancelled     StopReason = "cancelled"
	StopExhausted     StopReason = "exhausted"
	StopError         StopReason = "error"
)

// maxEmptyBatches ends a search whose algorithm keeps proposing only
// configurations that were already evaluated.
const maxEmptyBatches = 10

// SearchState is the mutable state of one search. Only the goroutine
// running Step writes it; readers get copies through Search.State.
type SearchState struct {
	// Batch is the number of completed batches, the baseline included.
	Batch        int
	Fingerprints map[string]int
	// BestScore is the normalized score of BestID, -Inf before any success.
	BestScore  float64
	BestID     int
	StartTime  time.Time
	Done       bool
	StopReason StopReason

	emptyBatches int
	cancelled    atomic.Bool
	mu           sync.RWMutex
}

func newState(start time.Time) *SearchState {
	return &SearchState{
		Fingerprints: make(map[string]int),
		BestScore:    math.Inf(-1),
		BestID:       -1,
		StartTime:    start,
	}
}

// Cancelled reports whether cancellation was requested.
func (s *SearchState) Cancelled() bool { return s.cancelled.Load() }

// Elapsed is the search time so far.
func (s *SearchState) Elapsed() time.Duration { return time.Since(s.StartTime) }

// copy returns a detached snapshot.
func (s *SearchState) copy() *SearchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fps := make(map[string]int, len(s.Fingerprints))
	for k, v := range s.Fingerprints {
		fps[k] = v
	}
	out := &SearchState{
		Batch:        s.Batch,
		Fingerprints: fps,
		BestScore:    s.BestScore,
		BestID:       s.BestID,
		StartTime:    s.StartTime,
		Done:         s.Done,
		StopReason:   s.StopReason,
		emptyBatches: s.emptyBatches,
	}
	out.cancelled.Store(s.cancelled.Load())
	return out
}

func (s *SearchState) finish(reason StopReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Done {
		s.Done = true
		s.StopReason = reason
	}
}

func (s *SearchState) isDone() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Done
}

func (s *SearchState) seen(fingerprint string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.Fingerprints[fingerprint]
	return ok
}
