package split

import (
	"testing"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

func checkPartition(t *testing.T, splits []Split, n int) {
	t.Helper()
	seen := make([]int, n)
	for i, s := range splits {
		if len(s.Train)+len(s.Validation) != n {
			t.Errorf("fold %d covers %d rows, want %d", i, len(s.Train)+len(s.Validation), n)
		}
		for _, row := range s.Validation {
			seen[row]++
		}
	}
	for row, c := range seen {
		if c != 1 {
			t.Errorf("row %d validated %d times", row, c)
		}
	}
}

// --- KFold tests ---

func TestKFold(t *testing.T) {
	splits, err := (&KFold{Folds: 3}).Split(10, nil)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	checkPartition(t, splits, 10)
	if len(splits[0].Validation) != 4 || len(splits[2].Validation) != 3 {
		t.Errorf("expected the first fold to be larger, got %d and %d",
			len(splits[0].Validation), len(splits[2].Validation))
	}
	if splits[0].Validation[0] != 0 {
		t.Errorf("unshuffled folds should be contiguous, got %v", splits[0].Validation)
	}
}

func TestKFoldShuffleDeterministic(t *testing.T) {
	a, _ := (&KFold{Folds: 4, Shuffle: true, Seed: 9}).Split(20, nil)
	b, _ := (&KFold{Folds: 4, Shuffle: true, Seed: 9}).Split(20, nil)
	for i := range a {
		for j := range a[i].Validation {
			if a[i].Validation[j] != b[i].Validation[j] {
				t.Fatal("same seed should give the same folds")
			}
		}
	}
	checkPartition(t, a, 20)
	if _, err := (&KFold{Folds: 4}).Split(3, nil); errors.CodeOf(err) != errors.ErrCodeConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

// --- StratifiedKFold tests ---

func TestStratifiedKFold(t *testing.T) {
	y := []float64{0, 0, 0, 0, 0, 0, 1, 1, 1}
	splits, err := (&StratifiedKFold{Folds: 3, Seed: 1}).Split(len(y), y)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	checkPartition(t, splits, len(y))
	for i, s := range splits {
		pos := 0
		for _, row := range s.Validation {
			if y[row] == 1 {
				pos++
			}
		}
		if pos != 1 {
			t.Errorf("fold %d has %d positive rows, want 1", i, pos)
		}
	}
}

func TestStratifiedKFoldSmallClass(t *testing.T) {
	y := []float64{0, 0, 0, 0, 1}
	if _, err := (&StratifiedKFold{Folds: 3}).Split(len(y), y); errors.CodeOf(err) != errors.ErrCodeConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

// --- Holdout tests ---

func TestHoldout(t *testing.T) {
	y := []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	splits, err := (&Holdout{TestSize: 0.2, Stratify: true, Seed: 3}).Split(len(y), y)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(splits) != 1 || len(splits[0].Validation) != 2 || len(splits[0].Train) != 8 {
		t.Fatalf("unexpected holdout %+v", splits)
	}
	if y[splits[0].Validation[0]] == y[splits[0].Validation[1]] {
		t.Error("stratified holdout should hold one row per class")
	}
	if _, err := (&Holdout{TestSize: 1}).Split(4, nil); err == nil {
		t.Error("expected error for test size 1")
	}
}

// --- TimeSeriesSplit tests ---

func TestTimeSeriesSplitRollingOrigin(t *testing.T) {
	s := &TimeSeriesSplit{Folds: 3, Gap: 1, MaxDelay: 2, ForecastHorizon: 3}
	splits, err := s.Split(30, nil)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(splits) != 3 {
		t.Fatalf("expected 3 folds, got %d", len(splits))
	}
	lookback := s.Window().Lookback()
	prevTrain, prevEnd := 0, -1
	for i, sp := range splits {
		if len(sp.Train) <= prevTrain {
			t.Errorf("fold %d: training rows should grow, got %d after %d", i, len(sp.Train), prevTrain)
		}
		prevTrain = len(sp.Train)

		start := sp.Validation[0]
		if start <= prevEnd {
			t.Errorf("fold %d: validation windows overlap", i)
		}
		prevEnd = sp.Validation[len(sp.Validation)-1]
		if len(sp.Validation) != 3 {
			t.Errorf("fold %d: expected a window of 3, got %d", i, len(sp.Validation))
		}
		if last := sp.Train[len(sp.Train)-1]; last != start-s.Gap-1 {
			t.Errorf("fold %d: train ends at %d, want %d", i, last, start-s.Gap-1)
		}
		if len(sp.Context) != lookback || sp.Context[len(sp.Context)-1] != start-1 {
			t.Errorf("fold %d: unexpected context %v", i, sp.Context)
		}
	}
	if prevEnd != 29 {
		t.Errorf("the last window should end at the last row, got %d", prevEnd)
	}
}

func TestTimeSeriesSplitReducesFolds(t *testing.T) {
	// lookback 4, window 2: the earliest of 5 folds would train on too few rows.
	s := &TimeSeriesSplit{Folds: 5, Gap: 0, MaxDelay: 2, ForecastHorizon: 2}
	splits, err := s.Split(12, nil)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(splits) != 3 {
		t.Fatalf("expected 3 folds to fit, got %d", len(splits))
	}
	if len(splits[0].Train) <= 4 {
		t.Errorf("first fold should train on more rows than the lookback, got %d", len(splits[0].Train))
	}

	if _, err := s.Split(5, nil); errors.CodeOf(err) != errors.ErrCodeConfiguration {
		t.Errorf("expected configuration error when no fold fits, got %v", err)
	}
}

func TestTimeSeriesSplitValidationSize(t *testing.T) {
	s := &TimeSeriesSplit{Folds: 2, MaxDelay: 1, ForecastHorizon: 3, ValidationSize: 4}
	if _, err := s.Split(40, nil); errors.CodeOf(err) != errors.ErrCodeConfiguration {
		t.Errorf("expected configuration error for a window wider than the horizon, got %v", err)
	}
	s.ValidationSize = 1
	splits, err := s.Split(40, nil)
	if err != nil || len(splits[1].Validation) != 1 {
		t.Errorf("expected single-row windows, got %v (%v)", splits, err)
	}
}

func TestFeatureWindowBounds(t *testing.T) {
	fw := FeatureWindow{MaxDelay: 7, ForecastHorizon: 7, Gap: 0}
	lo, hi := fw.Bounds(100)
	if lo != 86 || hi != 93 {
		t.Errorf("expected [t-14, t-7] = [86, 93], got [%d, %d]", lo, hi)
	}
	if fw.Lookback() != 14 {
		t.Errorf("expected lookback 14, got %d", fw.Lookback())
	}
}

// --- ForProblem tests ---

func TestForProblem(t *testing.T) {
	tests := []struct {
		cfg  problem.Config
		want string
	}{
		{problem.New(problem.Binary), "StratifiedKFold"},
		{problem.New(problem.Multiclass), "StratifiedKFold"},
		{problem.New(problem.Regression), "KFold"},
		{problem.NewTimeSeries(problem.TimeSeriesRegression, 0, 3, 2), "TimeSeriesSplit"},
	}
	for _, tt := range tests {
		s, err := ForProblem(tt.cfg, 3, 0)
		if err != nil {
			t.Fatalf("ForProblem(%s): %v", tt.cfg.Type, err)
		}
		if s.Name() != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.cfg.Type, tt.want, s.Name())
		}
	}
	if _, err := ForProblem(problem.New(problem.Binary), 1, 0); err == nil {
		t.Error("expected error for a single fold")
	}
}
