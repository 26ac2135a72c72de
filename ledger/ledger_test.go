package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/problem"
)

func configOf(name string, family component.Family, alpha float64) pipeline.Configuration {
	c := pipeline.Configuration{
		Name:        name,
		Family:      family,
		ProblemType: problem.Regression,
		Graph:       pipeline.Linear(name),
	}
	return c.WithParameters(name, map[string]any{"alpha": alpha})
}

func result(id, batch int, c pipeline.Configuration, scores ...float64) *evaluation.Result {
	r := &evaluation.Result{
		ID:            id,
		Batch:         batch,
		Configuration: c,
		Fingerprint:   c.Fingerprint(),
		Objective:     "MAE",
		TrainingTime:  time.Duration(id+1) * time.Millisecond,
	}
	if len(scores) == 0 {
		r.Status = evaluation.StatusErrored
		r.ErrorKind = evaluation.KindPipeline
		r.ErrorMessage = "boom"
		return r
	}
	for i, s := range scores {
		r.Folds = append(r.Folds, evaluation.FoldResult{Fold: i, Scores: map[string]float64{"MAE": s}})
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	r.Status = evaluation.StatusSucceeded
	r.MeanScore = sum / float64(len(scores))
	return r
}

// filled returns a lower-is-better ledger holding a baseline, two linear
// results, a failure and a tree.
func filled(t *testing.T) *Ledger {
	t.Helper()
	l := New("MAE", false)
	for _, r := range []*evaluation.Result{
		result(0, 0, configOf("Baseline", component.FamilyBaseline, 0), 4),
		result(1, 1, configOf("Linear", component.FamilyLinearModel, 1), 2),
		result(2, 1, configOf("Tree", component.FamilyDecisionTree, 1)),
		result(3, 2, configOf("Linear", component.FamilyLinearModel, 0.5), 1),
		result(4, 2, configOf("Tree", component.FamilyDecisionTree, 2), 2),
	} {
		if err := l.Append(r); err != nil {
			t.Fatalf("Append(%d): %v", r.ID, err)
		}
	}
	return l
}

// --- Ledger tests ---

func TestLedger_AppendOrder(t *testing.T) {
	l := New("MAE", false)
	if err := l.Append(result(1, 0, configOf("A", component.FamilyLinearModel, 1), 1)); !errors.HasCode(err, errors.ErrCodeInternal) {
		t.Fatalf("expected an out of order error, got %v", err)
	}
	c := configOf("A", component.FamilyLinearModel, 1)
	if err := l.Append(result(0, 0, c, 1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(result(1, 1, c, 1)); !errors.HasCode(err, errors.ErrCodeInternal) {
		t.Fatalf("expected a duplicate fingerprint error, got %v", err)
	}
	if !l.Contains(c.Fingerprint()) || l.Len() != 1 {
		t.Errorf("expected one recorded configuration")
	}
}

func TestLedger_AccessorsReturnCopies(t *testing.T) {
	l := filled(t)
	r, err := l.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	r.MeanScore = 100
	r.Folds[0].Scores["MAE"] = 100
	r.Configuration.Parameters["Linear"]["alpha"] = 9.0

	again, _ := l.Get(1)
	if again.MeanScore != 2 || again.Folds[0].Scores["MAE"] != 2 || again.Configuration.Parameters["Linear"]["alpha"] != 1.0 {
		t.Errorf("mutating a copy changed the ledger: %+v", again)
	}
	if _, err := l.Get(5); !errors.HasCode(err, errors.ErrCodePipelineNotFound) {
		t.Errorf("expected pipeline not found, got %v", err)
	}
	if got := len(l.Batch(2)); got != 2 {
		t.Errorf("expected 2 results in batch 2, got %d", got)
	}
}

func TestLedger_DropsFitted(t *testing.T) {
	l := New("MAE", false)
	r := result(0, 0, configOf("A", component.FamilyLinearModel, 1), 1)
	r.Fitted = &pipeline.Pipeline{}
	if err := l.Append(r); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, _ := l.Get(0)
	if got.Fitted != nil {
		t.Error("the ledger should not keep fitted pipelines")
	}
}

// --- Ranking tests ---

func TestLedger_FullRankings(t *testing.T) {
	l := filled(t)
	got := l.FullRankings().IDs()
	want := []int{3, 1, 4, 0}
	if len(got) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, got)
		}
	}
}

func TestLedger_RankingsBestPerName(t *testing.T) {
	l := filled(t)
	ranking := l.Rankings()
	if ids := ranking.IDs(); len(ids) != 3 || ids[0] != 3 || ids[1] != 4 || ids[2] != 0 {
		t.Fatalf("expected ids [3 4 0], got %v", ids)
	}
	if len(ranking) > len(l.FullRankings()) {
		t.Error("rankings cannot be longer than full rankings")
	}
}

func TestLedger_RankingsGreaterIsBetter(t *testing.T) {
	l := New("R2", true)
	_ = l.Append(result(0, 0, configOf("Baseline", component.FamilyBaseline, 0), 0.5))
	_ = l.Append(result(1, 1, configOf("A", component.FamilyLinearModel, 1), 0.9))
	_ = l.Append(result(2, 1, configOf("B", component.FamilyDecisionTree, 1), 0.9))
	_ = l.Append(result(3, 1, configOf("C", component.FamilyKNeighbors, 1), 0.7))

	ids := l.FullRankings().IDs()
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 || ids[3] != 0 {
		t.Fatalf("expected ties to keep submission order, got %v", ids)
	}
	best, err := l.Best()
	if err != nil || best.ID != 1 {
		t.Fatalf("expected result 1 as best, got %v %v", best, err)
	}
}

func TestLedger_PercentBetterThanBaseline(t *testing.T) {
	l := filled(t)
	for _, e := range l.FullRankings() {
		if e.PercentBetterThanBaseline == nil {
			t.Fatalf("entry %d has no baseline comparison", e.ID)
		}
		want := (4 - e.MeanScore) / 4 * 100
		if math.Abs(*e.PercentBetterThanBaseline-want) > 1e-9 {
			t.Errorf("entry %d: expected %v, got %v", e.ID, want, *e.PercentBetterThanBaseline)
		}
	}
	if percentBetter(1, 0, true) != nil {
		t.Error("a zero baseline has no relative improvement")
	}
}

func TestLedger_NonFiniteScoresAreNotRanked(t *testing.T) {
	l := New("R2", true)
	_ = l.Append(result(0, 1, configOf("A", component.FamilyLinearModel, 1), math.NaN()))
	_ = l.Append(result(1, 1, configOf("B", component.FamilyLinearModel, 2), -3))
	_ = l.Append(result(2, 1, configOf("C", component.FamilyLinearModel, 3), math.Inf(1)))
	if ids := l.FullRankings().IDs(); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("expected only the finite score, got %v", ids)
	}
}

func TestLedger_BestWithoutSuccess(t *testing.T) {
	l := New("MAE", false)
	_ = l.Append(result(0, 0, configOf("A", component.FamilyBaseline, 1)))
	if _, err := l.Best(); !errors.HasCode(err, errors.ErrCodeNoSuccessfulPipeline) {
		t.Errorf("expected no successful pipeline, got %v", err)
	}
}

// --- Snapshot tests ---

func snapshot(t *testing.T, l *Ledger) *Snapshot {
	t.Helper()
	s := l.Snapshot()
	s.SearchID = "search-1"
	s.Problem = problem.New(problem.Regression)
	s.AdditionalObjectives = []string{"R2"}
	s.Batches = 3
	s.Elapsed = 2 * time.Second
	s.SavedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return s
}

func TestSnapshot_RoundTrip(t *testing.T) {
	l := filled(t)
	raw, err := Encode(snapshot(t, l))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	restored, err := Restore(s)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	assertSameRankings(t, l, restored)
}

func TestSnapshot_Validate(t *testing.T) {
	l := filled(t)
	cases := []struct {
		name   string
		mutate func(*Snapshot)
		code   errors.ErrorCode
	}{
		{"version", func(s *Snapshot) { s.Version = 9 }, errors.ErrCodeInvalidInput},
		{"search id", func(s *Snapshot) { s.SearchID = "" }, errors.ErrCodeMissingField},
		{"objective", func(s *Snapshot) { s.Objective = "" }, errors.ErrCodeMissingField},
		{"order", func(s *Snapshot) { s.Results[0], s.Results[1] = s.Results[1], s.Results[0] }, errors.ErrCodeInvalidInput},
		{"batches", func(s *Snapshot) { s.Batches = 2 }, errors.ErrCodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := snapshot(t, l)
			tc.mutate(s)
			if err := s.Validate(); !errors.HasCode(err, tc.code) {
				t.Errorf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func assertSameRankings(t *testing.T, want, got *Ledger) {
	t.Helper()
	a, b := want.FullRankings(), got.FullRankings()
	if len(a) != len(b) {
		t.Fatalf("expected %d ranked results, got %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].MeanScore != b[i].MeanScore || a[i].Fingerprint != b[i].Fingerprint {
			t.Errorf("rank %d: expected %+v, got %+v", i, a[i], b[i])
		}
	}
	bestA, _ := want.Best()
	bestB, _ := got.Best()
	if bestA.ID != bestB.ID {
		t.Errorf("expected best %d, got %d", bestA.ID, bestB.ID)
	}
	if got.Len() != want.Len() {
		t.Errorf("expected %d results, got %d", want.Len(), got.Len())
	}
}
