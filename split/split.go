package split

import (
	"math/rand"
	"sort"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/problem"
	"github.com/kbukum/automl/util"
)

// Split holds row indices of one cross-validation fold. Context is set by
// time-series splitters: rows right before Validation that windowed features
// of the validation rows read from.
type Split struct {
	Train      []int `json:"train"`
	Validation []int `json:"validation"`
	Context    []int `json:"context,omitempty"`
}

// Splitter partitions n rows into folds.
type Splitter interface {
	Split(n int, y []float64) ([]Split, error)
	Name() string
}

// ForProblem picks the splitter for a problem: stratified folds for
// classification, shuffled folds for regression and rolling origin for time
// series.
func ForProblem(cfg problem.Config, folds int, seed int64) (Splitter, error) {
	if folds < 2 {
		return nil, errors.Configurationf("at least 2 folds are needed, got %d", folds)
	}
	switch {
	case cfg.Type.IsTimeSeries():
		gap, maxDelay, horizon := cfg.Window()
		return &TimeSeriesSplit{Folds: folds, Gap: gap, MaxDelay: maxDelay, ForecastHorizon: horizon}, nil
	case cfg.Type.IsClassification():
		return &StratifiedKFold{Folds: folds, Seed: seed}, nil
	default:
		return &KFold{Folds: folds, Shuffle: true, Seed: seed}, nil
	}
}

// KFold splits rows into contiguous folds, optionally over a seeded
// permutation. The first n%k folds are one row larger.
type KFold struct {
	Folds   int
	Shuffle bool
	Seed    int64
}

func (k *KFold) Name() string { return "KFold" }

func (k *KFold) Split(n int, _ []float64) ([]Split, error) {
	if k.Folds < 2 {
		return nil, errors.Configurationf("KFold needs at least 2 folds, got %d", k.Folds)
	}
	if n < k.Folds {
		return nil, errors.Configurationf("cannot split %d rows into %d folds", n, k.Folds)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if k.Shuffle {
		rng := rand.New(rand.NewSource(k.Seed))
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	assign := make([]int, n)
	start := 0
	for f := 0; f < k.Folds; f++ {
		size := n / k.Folds
		if f < n%k.Folds {
			size++
		}
		for _, row := range order[start : start+size] {
			assign[row] = f
		}
		start += size
	}
	return fromAssignment(assign, k.Folds), nil
}

// StratifiedKFold keeps class proportions per fold. Each class' rows are
// shuffled with the seed and dealt round-robin, continuing where the previous
// class stopped.
type StratifiedKFold struct {
	Folds int
	Seed  int64
}

func (s *StratifiedKFold) Name() string { return "StratifiedKFold" }

func (s *StratifiedKFold) Split(n int, y []float64) ([]Split, error) {
	if s.Folds < 2 {
		return nil, errors.Configurationf("StratifiedKFold needs at least 2 folds, got %d", s.Folds)
	}
	if len(y) != n {
		return nil, errors.Configurationf("StratifiedKFold got %d targets for %d rows", len(y), n)
	}
	byClass := classRows(y)
	classes := util.SortedKeys(byClass)
	for _, c := range classes {
		if len(byClass[c]) < s.Folds {
			return nil, errors.Configurationf(
				"the least populated class %v has %d rows, fewer than %d folds", c, len(byClass[c]), s.Folds)
		}
	}

	rng := rand.New(rand.NewSource(s.Seed))
	assign := make([]int, n)
	next := 0
	for _, c := range classes {
		rows := byClass[c]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		for _, row := range rows {
			assign[row] = next
			next = (next + 1) % s.Folds
		}
	}
	return fromAssignment(assign, s.Folds), nil
}

// Holdout splits off a single validation set, used to tune a binary decision
// threshold on training rows.
type Holdout struct {
	TestSize float64
	Stratify bool
	Seed     int64
}

func (h *Holdout) Name() string { return "Holdout" }

func (h *Holdout) Split(n int, y []float64) ([]Split, error) {
	if h.TestSize <= 0 || h.TestSize >= 1 {
		return nil, errors.Configurationf("holdout test size must be in (0, 1), got %v", h.TestSize)
	}
	rng := rand.New(rand.NewSource(h.Seed))
	var groups [][]int
	if h.Stratify && len(y) == n {
		byClass := classRows(y)
		for _, c := range util.SortedKeys(byClass) {
			groups = append(groups, byClass[c])
		}
	} else {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		groups = [][]int{all}
	}

	var train, validation []int
	for _, rows := range groups {
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		cut := int(float64(len(rows))*h.TestSize + 0.5)
		if cut == 0 && len(rows) > 1 {
			cut = 1
		}
		if cut >= len(rows) {
			cut = len(rows) - 1
		}
		validation = append(validation, rows[:cut]...)
		train = append(train, rows[cut:]...)
	}
	if len(train) == 0 || len(validation) == 0 {
		return nil, errors.Dataf("cannot split %d rows into a holdout", n)
	}
	sort.Ints(train)
	sort.Ints(validation)
	return []Split{{Train: train, Validation: validation}}, nil
}

// TimeSeriesSplit is rolling-origin validation. Split i of k validates the
// window [n-(k-i)W, n-(k-i-1)W) and trains on every row up to gap rows before
// it. W defaults to ForecastHorizon.
type TimeSeriesSplit struct {
	Folds           int
	Gap             int
	MaxDelay        int
	ForecastHorizon int
	ValidationSize  int
}

func (s *TimeSeriesSplit) Name() string { return "TimeSeriesSplit" }

// Window returns the feature window of the splitter's problem settings.
func (s *TimeSeriesSplit) Window() FeatureWindow {
	return FeatureWindow{MaxDelay: s.MaxDelay, ForecastHorizon: s.ForecastHorizon, Gap: s.Gap}
}

func (s *TimeSeriesSplit) Split(n int, _ []float64) ([]Split, error) {
	if s.Folds < 1 {
		return nil, errors.Configurationf("TimeSeriesSplit needs at least 1 fold, got %d", s.Folds)
	}
	if s.ForecastHorizon < 1 || s.Gap < 0 || s.MaxDelay < 0 {
		return nil, errors.Configurationf("invalid time series settings gap=%d max_delay=%d forecast_horizon=%d",
			s.Gap, s.MaxDelay, s.ForecastHorizon)
	}
	w := s.ValidationSize
	if w == 0 {
		w = s.ForecastHorizon
	}
	if w < 1 || w > s.ForecastHorizon {
		return nil, errors.Configurationf("validation size must be in [1, %d], got %d", s.ForecastHorizon, w)
	}
	lookback := s.Window().Lookback()

	// The earliest fold needs more training rows than the lookback.
	k := s.Folds
	for k > 0 && n-k*w-s.Gap-lookback < 1 {
		k--
	}
	if k == 0 {
		return nil, errors.Configurationf(
			"%d rows are too few for a time series split: need more than %d", n, w+s.Gap+lookback)
	}
	if k < s.Folds {
		logger.Get("split").Warn("Reduced the number of time series folds", logger.Fields(
			"requested", s.Folds, "folds", k, "rows", n, "lookback", lookback))
	}

	splits := make([]Split, k)
	for i := 0; i < k; i++ {
		start := n - (k-i)*w
		splits[i] = Split{
			Train:      span(0, start-s.Gap),
			Validation: span(start, start+w),
			Context:    span(start-lookback, start),
		}
	}
	return splits, nil
}

// FeatureWindow describes which past rows a time-series feature for row t
// may read: [t-(MaxDelay+ForecastHorizon+Gap), t-(ForecastHorizon+Gap)].
type FeatureWindow struct {
	MaxDelay        int
	ForecastHorizon int
	Gap             int
}

// Bounds returns the inclusive row range features of row t are built from.
func (fw FeatureWindow) Bounds(t int) (lo, hi int) {
	return t - fw.Lookback(), t - (fw.ForecastHorizon + fw.Gap)
}

// Lookback is the number of rows before t the window reaches back.
func (fw FeatureWindow) Lookback() int {
	return fw.MaxDelay + fw.ForecastHorizon + fw.Gap
}

func span(from, to int) []int {
	if to <= from {
		return nil
	}
	out := make([]int, to-from)
	for i := range out {
		out[i] = from + i
	}
	return out
}

func fromAssignment(assign []int, folds int) []Split {
	splits := make([]Split, folds)
	for row, f := range assign {
		for i := range splits {
			if i == f {
				splits[i].Validation = append(splits[i].Validation, row)
			} else {
				splits[i].Train = append(splits[i].Train, row)
			}
		}
	}
	return splits
}

func classRows(y []float64) map[float64][]int {
	out := make(map[float64][]int)
	for i, v := range y {
		out[v] = append(out[v], i)
	}
	return out
}
