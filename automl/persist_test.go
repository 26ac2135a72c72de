package automl_test

import (
	"context"
	"testing"

	"github.com/kbukum/automl/automl"
	"github.com/kbukum/automl/config"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/ledger"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/testutil"
)

func localStore(t *testing.T) ledger.Store {
	t.Helper()
	store, err := ledger.OpenStore(context.Background(), config.LedgerConfig{Store: config.StoreLocal, Path: t.TempDir(), Prefix: "searches"}, nil, logger.NewNop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	return store
}

// --- Snapshot tests ---

func TestSnapshot_CompletedBatches(t *testing.T) {
	ds := testutil.Regression(90, 0.1, 3)
	s := start(t, ds, small(1))
	run(t, s)

	snap := s.Snapshot()
	if snap.SearchID != s.ID() {
		t.Errorf("expected search id %s, got %s", s.ID(), snap.SearchID)
	}
	if snap.Batches != 2 {
		t.Errorf("expected 2 completed batches, got %d", snap.Batches)
	}
	if snap.Objective != "MAE" || snap.GreaterIsBetter {
		t.Errorf("unexpected objective %s (greater=%v)", snap.Objective, snap.GreaterIsBetter)
	}
	if len(snap.Results) != len(s.Results()) {
		t.Errorf("expected %d results, got %d", len(s.Results()), len(snap.Results))
	}
	if err := snap.Validate(); err != nil {
		t.Errorf("snapshot should validate: %v", err)
	}
}

func TestSnapshot_ExcludesBatchInFlight(t *testing.T) {
	ds := testutil.Regression(90, 0.1, 3)
	var s *automl.Search
	var mid *ledger.Snapshot
	cb := automl.Callbacks{
		AfterResult: func(r evaluation.Result) {
			if r.Batch == 1 && mid == nil {
				mid = s.Snapshot()
			}
		},
	}
	s = start(t, ds, small(1), automl.WithCallbacks(cb))
	run(t, s)

	if mid == nil {
		t.Fatal("expected a snapshot taken during batch 1")
	}
	if mid.Batches != 1 {
		t.Errorf("expected 1 completed batch, got %d", mid.Batches)
	}
	for _, r := range mid.Results {
		if r.Batch != 0 {
			t.Errorf("result %d of batch %d should not be in the snapshot", r.ID, r.Batch)
		}
	}
}

func TestSave_NilStore(t *testing.T) {
	s := start(t, testutil.Regression(60, 0.1, 3), small(1))
	assertCode(t, s.Save(context.Background(), nil), errors.ErrCodeMissingField)
}

// --- Resume tests ---

func TestResume_MatchesUninterruptedSearch(t *testing.T) {
	ds := testutil.Regression(90, 0.1, 3)
	ctx := context.Background()

	full := start(t, ds, small(3))
	run(t, full)

	first := start(t, ds, small(1))
	run(t, first)
	store := localStore(t)
	if err := first.Save(ctx, store); err != nil {
		t.Fatalf("Save: %v", err)
	}

	resumed, err := automl.ResumeFrom(ctx, store, first.ID(), ds, small(3),
		automl.WithLogger(logger.NewNop()),
		automl.WithRegistry(testutil.Registry()),
	)
	if err != nil {
		t.Fatalf("ResumeFrom: %v", err)
	}
	defer resumed.Close()

	if resumed.ID() != first.ID() {
		t.Errorf("resumed search should keep id %s, got %s", first.ID(), resumed.ID())
	}
	if got := resumed.State().Batch; got != 2 {
		t.Errorf("expected batch 2 after resume, got %d", got)
	}
	run(t, resumed)

	sameStrings(t, "fingerprints", fingerprints(full.Results()), fingerprints(resumed.Results()))
	want, err := full.BestPipeline()
	if err != nil {
		t.Fatalf("BestPipeline: %v", err)
	}
	got, err := resumed.BestPipeline()
	if err != nil {
		t.Fatalf("BestPipeline after resume: %v", err)
	}
	if want.Fingerprint() != got.Fingerprint() {
		t.Errorf("best pipeline differs after resume: %s vs %s", want.Name, got.Name)
	}
}

func TestResume_EncodedSnapshot(t *testing.T) {
	ds := testutil.Regression(90, 0.1, 3)
	s := start(t, ds, small(1))
	run(t, s)

	raw, err := ledger.Encode(s.Snapshot())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	snap, err := ledger.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	resumed, err := automl.Resume(context.Background(), ds, snap, small(1), automl.WithLogger(logger.NewNop()), automl.WithRegistry(testutil.Registry()))
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	defer resumed.Close()

	// the budget is already spent
	done, err := resumed.Step(context.Background())
	if err != nil || !done {
		t.Fatalf("expected a finished search, got done=%v err=%v", done, err)
	}
	if got := resumed.State().StopReason; got != automl.StopMaxBatches {
		t.Errorf("expected %s, got %s", automl.StopMaxBatches, got)
	}
	sameStrings(t, "fingerprints", fingerprints(s.Results()), fingerprints(resumed.Results()))
}

func TestResume_ObjectiveMismatch(t *testing.T) {
	ds := testutil.Regression(90, 0.1, 3)
	s := start(t, ds, small(1))
	run(t, s)

	cfg := small(2)
	cfg.Objective = "R2"
	_, err := automl.Resume(context.Background(), ds, s.Snapshot(), cfg, automl.WithLogger(logger.NewNop()), automl.WithRegistry(testutil.Registry()))
	assertCode(t, err, errors.ErrCodeConfiguration)
}

func TestResume_DifferentFamiliesDoNotMatch(t *testing.T) {
	ds := testutil.Regression(90, 0.1, 3)
	s := start(t, ds, small(1))
	run(t, s)

	cfg := small(2)
	cfg.AllowedFamilies = cfg.AllowedFamilies[:1]
	_, err := automl.Resume(context.Background(), ds, s.Snapshot(), cfg, automl.WithLogger(logger.NewNop()), automl.WithRegistry(testutil.Registry()))
	assertCode(t, err, errors.ErrCodeConfiguration)
}

func TestResume_NilSnapshot(t *testing.T) {
	_, err := automl.Resume(context.Background(), testutil.Regression(60, 0.1, 3), nil, small(1))
	assertCode(t, err, errors.ErrCodeMissingField)
}
