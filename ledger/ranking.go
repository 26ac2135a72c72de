package ledger

import (
	"math"
	"sort"
	"time"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/logger"
)

// Entry is one row of a ranking.
type Entry struct {
	ID          int                       `json:"id"`
	Name        string                    `json:"name"`
	Family      component.Family          `json:"family"`
	Batch       int                       `json:"batch"`
	Fingerprint string                    `json:"fingerprint"`
	MeanScore   float64                   `json:"mean_score"`
	StdScore    float64                   `json:"std_score"`
	Folds       int                       `json:"folds"`
	FailedFolds int                       `json:"failed_folds"`
	Parameters  map[string]map[string]any `json:"parameters"`
	// PercentBetterThanBaseline is nil when there is no baseline to compare
	// against or its score is zero.
	PercentBetterThanBaseline *float64      `json:"percent_better_than_baseline,omitempty"`
	TrainingTime              time.Duration `json:"training_time"`
}

// Degraded reports whether some folds of the entry failed.
func (e Entry) Degraded() bool { return e.FailedFolds > 0 }

// Ranking is a list of succeeded results, best first.
type Ranking []Entry

// IDs returns the result ids in rank order.
func (r Ranking) IDs() []int {
	out := make([]int, len(r))
	for i, e := range r {
		out[i] = e.ID
	}
	return out
}

// Log renders the ranking as a table.
func (r Ranking) Log(log *logger.Logger, objective string) {
	s := logger.NewSummary("Rankings ("+objective+")", "rank", "id", "pipeline", "mean", "std", "failed folds", "vs baseline %")
	for i, e := range r {
		var pct interface{}
		if e.PercentBetterThanBaseline != nil {
			pct = *e.PercentBetterThanBaseline
		}
		s.AddRow(i+1, e.ID, e.Name, e.MeanScore, e.StdScore, e.FailedFolds, pct)
	}
	s.Log(log)
}

// FullRankings ranks every succeeded result with a finite mean score.
func (l *Ledger) FullRankings() Ranking {
	l.mu.RLock()
	defer l.mu.RUnlock()

	baseline, hasBaseline := l.baseline()
	var out Ranking
	for _, r := range l.results {
		if !r.Succeeded() || math.IsNaN(r.MeanScore) || math.IsInf(r.MeanScore, 0) {
			continue
		}
		e := Entry{
			ID:           r.ID,
			Name:         r.Configuration.Name,
			Family:       r.Configuration.Family,
			Batch:        r.Batch,
			Fingerprint:  r.Fingerprint,
			MeanScore:    r.MeanScore,
			StdScore:     r.StdScore,
			Folds:        len(r.Folds),
			FailedFolds:  r.FailedFolds,
			Parameters:   r.Configuration.Clone().Parameters,
			TrainingTime: r.TrainingTime,
		}
		if hasBaseline {
			e.PercentBetterThanBaseline = percentBetter(r.MeanScore, baseline.MeanScore, l.greaterIsBetter)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return l.Normalize(out[i].MeanScore) > l.Normalize(out[j].MeanScore)
	})
	return out
}

// Rankings keeps the best entry per pipeline name. Use FullRankings for
// every succeeded result.
func (l *Ledger) Rankings() Ranking {
	full := l.FullRankings()
	seen := make(map[string]bool, len(full))
	out := make(Ranking, 0, len(full))
	for _, e := range full {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		out = append(out, e)
	}
	return out
}

// percentBetter is the relative improvement over the baseline score in the
// objective's direction, in percent.
func percentBetter(score, baseline float64, greaterIsBetter bool) *float64 {
	if baseline == 0 || math.IsNaN(baseline) || math.IsNaN(score) {
		return nil
	}
	change := (score - baseline) / math.Abs(baseline)
	if !greaterIsBetter {
		change = -change
	}
	pct := change * 100
	return &pct
}
