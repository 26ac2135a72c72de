package ledger

import (
	"fmt"
	"math"
	"sync"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
)

// Ledger is the append-only record of a search's results.
type Ledger struct {
	objective       string
	greaterIsBetter bool

	mu           sync.RWMutex
	results      []*evaluation.Result
	fingerprints map[string]int
}

// New creates an empty ledger ranking on the named objective.
func New(objective string, greaterIsBetter bool) *Ledger {
	return &Ledger{
		objective:       objective,
		greaterIsBetter: greaterIsBetter,
		fingerprints:    make(map[string]int),
	}
}

// Objective returns the primary objective name and direction.
func (l *Ledger) Objective() (string, bool) {
	return l.objective, l.greaterIsBetter
}

// Append records r. Results must arrive in submission order, IDs starting at
// zero, and a fingerprint is recorded at most once. The fitted pipeline is
// not kept.
func (l *Ledger) Append(r *evaluation.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r.ID != len(l.results) {
		return errors.Internal(fmt.Errorf("result %d appended out of order, expected %d", r.ID, len(l.results)))
	}
	stored := r.WithoutFitted()
	if stored.Fingerprint == "" {
		stored.Fingerprint = stored.Configuration.Fingerprint()
	}
	if prev, ok := l.fingerprints[stored.Fingerprint]; ok {
		return errors.Internal(fmt.Errorf("configuration of result %d was already evaluated as %d", r.ID, prev))
	}
	l.results = append(l.results, stored)
	l.fingerprints[stored.Fingerprint] = r.ID
	return nil
}

// Len returns the number of results.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.results)
}

// Contains reports whether a configuration with this fingerprint was recorded.
func (l *Ledger) Contains(fingerprint string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.fingerprints[fingerprint]
	return ok
}

// Get returns a copy of the result with the given id.
func (l *Ledger) Get(id int) (*evaluation.Result, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id < 0 || id >= len(l.results) {
		return nil, errors.PipelineNotFound(id)
	}
	return l.results[id].Clone(), nil
}

// Results returns copies of every result in submission order.
func (l *Ledger) Results() []*evaluation.Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*evaluation.Result, len(l.results))
	for i, r := range l.results {
		out[i] = r.Clone()
	}
	return out
}

// Batch returns copies of the results of one batch.
func (l *Ledger) Batch(n int) []*evaluation.Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*evaluation.Result
	for _, r := range l.results {
		if r.Batch == n {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Best returns the top of the full ranking.
func (l *Ledger) Best() (*evaluation.Result, error) {
	ranking := l.FullRankings()
	if len(ranking) == 0 {
		return nil, errors.NoSuccessfulPipeline()
	}
	return l.Get(ranking[0].ID)
}

// Normalize maps a mean score onto a greater-is-better scale. NaN ranks last.
func (l *Ledger) Normalize(score float64) float64 {
	if math.IsNaN(score) {
		return math.Inf(-1)
	}
	if l.greaterIsBetter {
		return score
	}
	return -score
}

// baseline returns the first succeeded baseline result. Callers hold mu.
func (l *Ledger) baseline() (*evaluation.Result, bool) {
	for _, r := range l.results {
		if r.Configuration.Family == component.FamilyBaseline && r.Succeeded() {
			return r, true
		}
	}
	return nil, false
}
