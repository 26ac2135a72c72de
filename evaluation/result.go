package evaluation

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/pipeline"
)

// Status is the terminal state of a task.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusErrored   Status = "errored"
	StatusCancelled Status = "cancelled"
)

// ErrorKind classifies why a task or fold failed.
type ErrorKind string

const (
	KindData     ErrorKind = "data"
	KindPipeline ErrorKind = "pipeline"
	KindResource ErrorKind = "resource"
	KindTimeout  ErrorKind = "timeout"
)

// Classify maps an error to the kind recorded on results. Recovered panics
// and unknown errors are pipeline errors.
func Classify(err error) ErrorKind {
	switch errors.CodeOf(err) {
	case errors.ErrCodeData:
		return KindData
	case errors.ErrCodeResource:
		return KindResource
	case errors.ErrCodeTimeout:
		return KindTimeout
	default:
		return KindPipeline
	}
}

// FoldResult is the outcome of one split.
type FoldResult struct {
	Fold           int                `json:"fold"`
	Scores         map[string]float64 `json:"scores,omitempty"`
	Threshold      *float64           `json:"threshold,omitempty"`
	TrainRows      int                `json:"train_rows"`
	ValidationRows int                `json:"validation_rows"`
	FitTime        time.Duration      `json:"fit_time"`
	Error          string             `json:"error,omitempty"`
	ErrorKind      ErrorKind          `json:"error_kind,omitempty"`
}

// Succeeded reports whether the fold was scored.
func (f FoldResult) Succeeded() bool { return f.Error == "" }

func (f *FoldResult) fail(err error) {
	f.Scores = nil
	f.Error = err.Error()
	f.ErrorKind = Classify(err)
}

// Result is the outcome of a task. It is created once when the task resolves
// and not modified afterwards.
type Result struct {
	ID            int                    `json:"id"`
	Batch         int                    `json:"batch"`
	Configuration pipeline.Configuration `json:"configuration"`
	Fingerprint   string                 `json:"fingerprint"`
	Objective     string                 `json:"objective"`
	Folds         []FoldResult           `json:"folds"`
	MeanScore     float64                `json:"mean_score"`
	StdScore      float64                `json:"std_score"`
	FailedFolds   int                    `json:"failed_folds"`
	TrainingTime  time.Duration          `json:"training_time"`
	Status        Status                 `json:"status"`
	ErrorKind     ErrorKind              `json:"error_kind,omitempty"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	// Fitted is the pipeline fitted on the last scored fold, set only when
	// the task asked for it and the engine runs in-process.
	Fitted *pipeline.Pipeline `json:"-"`
}

// Succeeded reports whether at least one fold was scored.
func (r *Result) Succeeded() bool { return r.Status == StatusSucceeded }

// Degraded reports whether the result succeeded with some folds failing.
func (r *Result) Degraded() bool { return r.Succeeded() && r.FailedFolds > 0 }

// Score returns the mean of an objective over the scored folds.
func (r *Result) Score(name string) (float64, bool) {
	values := r.FoldScores(name)
	if len(values) == 0 {
		return 0, false
	}
	return stat.Mean(values, nil), true
}

// FoldScores returns an objective's score on every fold that has one.
func (r *Result) FoldScores(name string) []float64 {
	var out []float64
	for _, f := range r.Folds {
		if s, ok := f.Scores[name]; ok && f.Succeeded() {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy. The fitted pipeline is shared.
func (r *Result) Clone() *Result {
	out := *r
	out.Configuration = r.Configuration.Clone()
	out.Folds = make([]FoldResult, len(r.Folds))
	for i, f := range r.Folds {
		if f.Scores != nil {
			scores := make(map[string]float64, len(f.Scores))
			for k, v := range f.Scores {
				scores[k] = v
			}
			f.Scores = scores
		}
		if f.Threshold != nil {
			t := *f.Threshold
			f.Threshold = &t
		}
		out.Folds[i] = f
	}
	return &out
}

// WithoutFitted returns a copy that does not hold the fitted pipeline.
func (r *Result) WithoutFitted() *Result {
	out := r.Clone()
	out.Fitted = nil
	return out
}

// Failed builds the result of a task that could not run. A cancelled context
// gives a cancelled result; anything else is an errored result.
func Failed(task *Task, err error, elapsed time.Duration) *Result {
	r := &Result{
		ID:            task.ID,
		Batch:         task.Batch,
		Configuration: task.Configuration.Clone(),
		Fingerprint:   task.Configuration.Fingerprint(),
		Objective:     task.Objective,
		TrainingTime:  elapsed,
	}
	r.fail(err)
	return r
}

func (r *Result) fail(err error) {
	r.Fitted = nil
	r.ErrorMessage = err.Error()
	if errors.CodeOf(err) == errors.ErrCodeCancelled {
		r.Status = StatusCancelled
		return
	}
	r.Status = StatusErrored
	r.ErrorKind = Classify(err)
}

// summarize aggregates the primary objective over the scored folds.
func (r *Result) summarize() {
	var scores []float64
	var firstFailure *FoldResult
	for i := range r.Folds {
		f := &r.Folds[i]
		if !f.Succeeded() {
			r.FailedFolds++
			if firstFailure == nil {
				firstFailure = f
			}
			continue
		}
		scores = append(scores, f.Scores[r.Objective])
	}
	if len(scores) == 0 {
		r.Status = StatusErrored
		if firstFailure != nil {
			r.ErrorKind = firstFailure.ErrorKind
			r.ErrorMessage = firstFailure.Error
		} else {
			r.ErrorKind = KindPipeline
			r.ErrorMessage = "no folds were evaluated"
		}
		return
	}
	r.Status = StatusSucceeded
	r.MeanScore, r.StdScore = stat.PopMeanStdDev(scores, nil)
}
