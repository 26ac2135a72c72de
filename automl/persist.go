package automl

import (
	"context"
	"math"
	"time"

	"github.com/kbukum/automl/algorithm"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/ledger"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/objective"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/version"
)

// Snapshot captures the completed batches of the search. Results of a
// batch still in flight are left out.
func (s *Search) Snapshot() *ledger.Snapshot {
	st := s.State()
	snap := s.ledger.Snapshot()
	kept := snap.Results[:0]
	for _, r := range snap.Results {
		if r.Batch < st.Batch {
			kept = append(kept, r)
		}
	}
	snap.Results = kept
	snap.SearchID = s.id
	snap.Problem = s.cfg.Problem
	snap.AdditionalObjectives = objective.Names(s.additional)
	snap.Batches = st.Batch
	snap.Elapsed = st.Elapsed()
	snap.SavedAt = time.Now().UTC()
	snap.SavedBy = version.Short()
	return snap
}

// Save writes a snapshot of the search to store.
func (s *Search) Save(ctx context.Context, store ledger.Store) error {
	if store == nil {
		return errors.MissingField("store")
	}
	snap := s.Snapshot()
	if err := store.Save(ctx, snap); err != nil {
		return err
	}
	s.log.Info("Search saved", logger.Fields(logger.FieldBatch, snap.Batches, "results", len(snap.Results)))
	return nil
}

// Resume starts a search from a snapshot. The algorithm replays the
// recorded batches without evaluating anything, so the next Step continues
// where the saved search stopped. ds and cfg must match the saved search.
func Resume(ctx context.Context, ds *data.Dataset, snap *ledger.Snapshot, cfg Config, opts ...Option) (*Search, error) {
	if snap == nil {
		return nil, errors.MissingField("snapshot")
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	opts = append(append([]Option(nil), opts...), withSearchID(snap.SearchID))
	s, err := Start(ctx, ds, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.restore(snap); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.log.Info("Search resumed", logger.Fields(logger.FieldBatch, snap.Batches, "results", len(snap.Results)))
	return s, nil
}

// ResumeFrom loads a snapshot from store and resumes it.
func ResumeFrom(ctx context.Context, store ledger.Store, searchID string, ds *data.Dataset, cfg Config, opts ...Option) (*Search, error) {
	if store == nil {
		return nil, errors.MissingField("store")
	}
	snap, err := store.Load(ctx, searchID)
	if err != nil {
		return nil, err
	}
	return Resume(ctx, ds, snap, cfg, opts...)
}

func (s *Search) restore(snap *ledger.Snapshot) error {
	if snap.Objective != s.primary.Name() {
		return errors.Configurationf("snapshot %s optimizes %s, not %s", snap.SearchID, snap.Objective, s.primary.Name())
	}
	if snap.Problem.Type != s.cfg.Problem.Type {
		return errors.Configurationf("snapshot %s is a %s search, not %s", snap.SearchID, snap.Problem.Type, s.cfg.Problem.Type)
	}
	if current := version.Short(); snap.SavedBy != "" && !version.SameRelease(snap.SavedBy, current) {
		s.log.Warn("Snapshot was written by another release", logger.Fields("saved_by", snap.SavedBy, "running", current))
	}
	restored, err := ledger.Restore(snap)
	if err != nil {
		return err
	}

	byBatch := make(map[int][]*evaluation.Result)
	for _, r := range snap.Results {
		byBatch[r.Batch] = append(byBatch[r.Batch], r)
	}

	st := s.state
	for b := 0; b < snap.Batches; b++ {
		proposed, err := s.algorithm.NextBatch()
		if err != nil {
			return err
		}
		index := make(map[string]pipeline.Configuration, len(proposed))
		for _, c := range proposed {
			index[c.Fingerprint()] = c
		}
		for _, r := range byBatch[b] {
			c, ok := index[r.Fingerprint]
			if !ok {
				return errors.Configurationf("snapshot %s does not match this search: pipeline %d of batch %d was not proposed", snap.SearchID, r.ID, b)
			}
			score := restored.Normalize(r.MeanScore)
			succeeded := r.Succeeded() && !math.IsInf(score, 0)
			obs := algorithm.Observation{ID: r.ID, Batch: b, Configuration: c, Score: score, Succeeded: succeeded}
			if err := s.algorithm.AddResult(obs); err != nil {
				return err
			}
			st.Fingerprints[r.Fingerprint] = r.ID
			if succeeded && score > st.BestScore {
				st.BestScore = score
				st.BestID = r.ID
			}
		}
	}
	s.ledger = restored
	st.Batch = snap.Batches
	st.StartTime = time.Now().Add(-snap.Elapsed)
	return nil
}
