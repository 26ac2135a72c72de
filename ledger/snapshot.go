package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/problem"
)

// SnapshotVersion is the version written by this package.
const SnapshotVersion = 1

// Snapshot is the persisted form of a search: its results plus the state
// the orchestrator needs to continue the batch loop.
type Snapshot struct {
	Version              int                  `json:"version"`
	SearchID             string               `json:"search_id"`
	Problem              problem.Config       `json:"problem"`
	Objective            string               `json:"objective"`
	GreaterIsBetter      bool                 `json:"greater_is_better"`
	AdditionalObjectives []string             `json:"additional_objectives,omitempty"`
	// Batches is the number of batches the algorithm produced.
	Batches int `json:"batches"`
	// Elapsed is the search time spent before the snapshot.
	Elapsed time.Duration        `json:"elapsed"`
	Results []*evaluation.Result `json:"results"`
	SavedAt time.Time            `json:"saved_at"`
	// SavedBy is the build version that wrote the snapshot.
	SavedBy string `json:"saved_by,omitempty"`
}

// Snapshot captures the ledger's objective and results. The caller fills in
// the search fields.
func (l *Ledger) Snapshot() *Snapshot {
	return &Snapshot{
		Version:         SnapshotVersion,
		Objective:       l.objective,
		GreaterIsBetter: l.greaterIsBetter,
		Results:         l.Results(),
	}
}

// Validate checks the snapshot can be restored.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return errors.InvalidInput("version", fmt.Sprintf("unsupported snapshot version %d", s.Version))
	}
	if s.SearchID == "" {
		return errors.MissingField("search_id")
	}
	if s.Objective == "" {
		return errors.MissingField("objective")
	}
	for i, r := range s.Results {
		if r == nil || r.ID != i {
			return errors.InvalidInput("results", fmt.Sprintf("result %d is missing or out of order", i))
		}
		if r.Batch >= s.Batches {
			return errors.InvalidInput("results", fmt.Sprintf("result %d belongs to batch %d but only %d batches ran", i, r.Batch, s.Batches))
		}
	}
	return nil
}

// Restore rebuilds a ledger from a snapshot.
func Restore(s *Snapshot) (*Ledger, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	l := New(s.Objective, s.GreaterIsBetter)
	for _, r := range s.Results {
		if err := l.Append(r); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Encode renders s as JSON.
func Encode(s *Snapshot) ([]byte, error) {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Storage("encode snapshot", err)
	}
	return raw, nil
}

// Decode parses and validates a JSON snapshot.
func Decode(raw []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Storage("decode snapshot", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
