package evaluation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/objective"
	"github.com/kbukum/automl/observability"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/split"
)

// thresholdHoldout is the share of training rows held out to tune a binary
// decision threshold.
const thresholdHoldout = 0.2

// Evaluator cross-validates configurations against a workload. It is safe
// for concurrent use: every fold builds its own pipeline.
type Evaluator struct {
	workload *Workload
	registry *component.Registry
	log      *logger.Logger
	seed     int64
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. Defaults to the "evaluation" registry logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Evaluator) {
		e.log = l
	}
}

// WithSeed seeds the threshold-tuning holdout.
func WithSeed(seed int64) Option {
	return func(e *Evaluator) {
		e.seed = seed
	}
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(w *Workload, registry *component.Registry, opts ...Option) *Evaluator {
	e := &Evaluator{workload: w, registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get("evaluation")
	}
	return e
}

// Workload returns the workload tasks are evaluated against.
func (e *Evaluator) Workload() *Workload { return e.workload }

// Seed returns the seed remote workers need to reproduce this evaluator.
func (e *Evaluator) Seed() int64 { return e.seed }

// Evaluate runs every split of the task. It never returns an error: failures
// are recorded on the result. A failed fold does not stop the remaining
// folds; the context is checked between folds.
func (e *Evaluator) Evaluate(ctx context.Context, task *Task) *Result {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, observability.SpanEvaluate)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrPipeline, task.Configuration.Name)
	observability.SetSpanAttribute(ctx, observability.AttrFamily, string(task.Configuration.Family))
	observability.SetSpanAttribute(ctx, observability.AttrBatch, task.Batch)
	log := e.log.WithFields(logger.Fields(
		logger.FieldPipelineID, task.ID,
		logger.FieldBatch, task.Batch,
		logger.FieldPipeline, task.Configuration.Name,
	))

	primary, additional, err := task.Objectives()
	if err != nil {
		return Failed(task, err, time.Since(start))
	}
	res := &Result{
		ID:            task.ID,
		Batch:         task.Batch,
		Configuration: task.Configuration.Clone(),
		Fingerprint:   task.Configuration.Fingerprint(),
		Objective:     primary.Name(),
	}

	splits := e.workload.Splits
	if task.FoldLimit > 0 && task.FoldLimit < len(splits) {
		splits = splits[:task.FoldLimit]
	}

	var fitted *pipeline.Pipeline
	for i, s := range splits {
		if err := ctx.Err(); err != nil {
			return Failed(task, err, time.Since(start))
		}
		foldCtx, foldSpan := observability.StartSpan(ctx, observability.SpanFold)
		observability.SetSpanAttribute(foldCtx, observability.AttrFold, i)
		fold, p := e.evaluateFold(task, i, s, primary, additional)
		if !fold.Succeeded() {
			log.Debug("Fold failed", logger.Fields(logger.FieldFold, i, logger.FieldError, fold.Error))
			observability.SetSpanError(foldCtx, fmt.Errorf("%s", fold.Error))
		} else {
			fitted = p
		}
		foldSpan.End()
		res.Folds = append(res.Folds, fold)
	}
	if err := ctx.Err(); err != nil {
		return Failed(task, err, time.Since(start))
	}

	res.TrainingTime = time.Since(start)
	res.summarize()
	observability.SetSpanAttribute(ctx, observability.AttrStatus, string(res.Status))
	if task.ReturnFitted && res.Succeeded() {
		res.Fitted = fitted
	}
	return res
}

func (e *Evaluator) evaluateFold(task *Task, index int, s split.Split, primary objective.Objective, additional []objective.Objective) (fold FoldResult, fitted *pipeline.Pipeline) {
	fold = FoldResult{Fold: index, TrainRows: len(s.Train), ValidationRows: len(s.Validation)}
	defer func() {
		if r := recover(); r != nil {
			fold.fail(errors.Pipeline("", fmt.Errorf("panic during scoring: %v", r)))
			fitted = nil
		}
	}()

	start := time.Now()
	p, threshold, err := e.fit(task, s.Train, primary)
	fold.FitTime = time.Since(start)
	if err != nil {
		fold.fail(err)
		return fold, nil
	}
	fold.Threshold = threshold

	pred, err := e.predict(p, s.Validation, s.Context, false)
	if err != nil {
		fold.fail(err)
		return fold, nil
	}
	ds := e.workload.Dataset
	yTrue := take(ds.Y, s.Validation)
	X := ds.X.Take(s.Validation)

	score, err := objective.Score(primary, yTrue, pred, X)
	if err != nil {
		fold.fail(err)
		return fold, nil
	}
	fold.Scores = map[string]float64{primary.Name(): score}
	for _, o := range additional {
		v, err := objective.Score(o, yTrue, pred, X)
		if err != nil {
			e.log.Debug("Additional objective not scored", logger.Fields(
				logger.FieldObjective, o.Name(), logger.FieldError, err.Error()))
			continue
		}
		fold.Scores[o.Name()] = v
	}
	return fold, p
}

// fit builds a fresh pipeline and fits it on the training rows. When the
// task tunes a binary threshold, the pipeline is fitted on all but a holdout
// of the training rows and the threshold is chosen on the holdout.
func (e *Evaluator) fit(task *Task, train []int, primary objective.Objective) (*pipeline.Pipeline, *float64, error) {
	ds := e.workload.Dataset
	p, err := pipeline.New(e.registry, task.Configuration)
	if err != nil {
		return nil, nil, err
	}
	if !e.tunesThreshold(task, primary) {
		if err := p.Fit(ds.X.Take(train), take(ds.Y, train)); err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}

	fitRows, tuneRows, contextRows, err := e.thresholdSplit(train)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Fit(ds.X.Take(fitRows), take(ds.Y, fitRows)); err != nil {
		return nil, nil, err
	}
	pred, err := e.predict(p, tuneRows, contextRows, true)
	if err != nil {
		return nil, nil, err
	}
	if !pred.HasProba() {
		return p, nil, nil
	}
	threshold, err := objective.OptimizeThreshold(primary, pred.PositiveProba(), take(ds.Y, tuneRows), task.thresholdSteps())
	if err != nil {
		return nil, nil, err
	}
	p.SetThreshold(threshold)
	return p, &threshold, nil
}

func (e *Evaluator) tunesThreshold(task *Task, primary objective.Objective) bool {
	return task.OptimizeThreshold && e.workload.Problem.Type.IsBinary() && objective.CanOptimizeThreshold(primary)
}

// thresholdSplit holds out the last rows of a time-series training window,
// with the rows before them as context, or a stratified random share otherwise.
func (e *Evaluator) thresholdSplit(train []int) (fitRows, tuneRows, contextRows []int, err error) {
	ds := e.workload.Dataset
	if e.workload.Problem.Type.IsTimeSeries() {
		m := int(float64(len(train)) * thresholdHoldout)
		if m < 1 {
			m = 1
		}
		lookback := e.workload.Problem.Lookback()
		fitRows = train[:len(train)-m]
		if len(fitRows) <= lookback {
			return nil, nil, nil, errors.Dataf("%d training rows are too few to hold out a threshold window", len(train))
		}
		return fitRows, train[len(train)-m:], fitRows[len(fitRows)-lookback:], nil
	}

	holdout := &split.Holdout{TestSize: thresholdHoldout, Stratify: true, Seed: e.seed}
	parts, err := holdout.Split(len(train), take(ds.Y, train))
	if err != nil {
		return nil, nil, nil, err
	}
	return pick(train, parts[0].Train), pick(train, parts[0].Validation), nil, nil
}

// predict predicts rows. Time-series rows are preceded by their context rows so
// windowed transformers see the history; the context is dropped from the
// output. The targets of the predicted rows are hidden unless observed is
// set: a threshold window is longer than the forecast horizon, and its rows
// are forecast from targets observed inside the window.
func (e *Evaluator) predict(p *pipeline.Pipeline, rows, contextRows []int, observed bool) (data.Prediction, error) {
	ds := e.workload.Dataset
	if len(contextRows) == 0 {
		return p.Predict(ds.X.Take(rows))
	}
	idx := make([]int, 0, len(contextRows)+len(rows))
	idx = append(idx, contextRows...)
	idx = append(idx, rows...)
	history := make([]float64, len(idx))
	for i, r := range idx {
		if observed || i < len(contextRows) {
			history[i] = ds.Y[r]
		} else {
			history[i] = math.NaN()
		}
	}
	return p.Predict(ds.X.Take(idx), pipeline.WithHistory(history, len(contextRows)))
}

func take(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}

// pick maps positions into rows.
func pick(rows, positions []int) []int {
	out := make([]int, len(positions))
	for i, p := range positions {
		out[i] = rows[p]
	}
	return out
}
