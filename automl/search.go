package automl

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/automl/algorithm"
	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/datacheck"
	"github.com/kbukum/automl/engine"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/ledger"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/objective"
	"github.com/kbukum/automl/observability"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/split"
)

// Search is one AutoML search. Step and RunToCompletion must not be called
// concurrently; every other method is safe to call while a batch runs.
type Search struct {
	id         string
	cfg        Config
	dataset    *data.Dataset
	workload   *evaluation.Workload
	registry   *component.Registry
	primary    objective.Objective
	additional []objective.Objective
	algorithm  *algorithm.Iterative
	engine     engine.Engine
	ledger     *ledger.Ledger
	state      *SearchState
	checks     datacheck.Result
	callbacks  Callbacks
	log        *logger.Logger
	metrics    *observability.SearchMetrics

	run       sync.Mutex
	fittedMu  sync.RWMutex
	fitted    map[int]*pipeline.Pipeline
	closeOnce sync.Once
	closeErr  error
}

// Start validates the inputs and prepares a search. It fails with a
// configuration error when the data is empty, the problem configuration is
// invalid, a classification target has fewer than two classes, or a data
// check reports an error. No task is submitted.
func Start(ctx context.Context, ds *data.Dataset, cfg Config, opts ...Option) (*Search, error) {
	o := resolveOptions(opts)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	t := cfg.Problem.Type
	if err := checkTarget(ds.Y, cfg); err != nil {
		return nil, err
	}

	id := o.searchID
	if id == "" {
		id = uuid.NewString()
	}
	log := o.log.WithFields(logger.Fields(logger.FieldSearchID, id))

	checks := o.checks
	if !o.setChecks {
		checks = datacheck.Defaults(cfg.Problem, cfg.Folds)
	}
	report := checks.Validate(ds.X, ds.Y)
	for _, w := range report.Warnings {
		log.Warn(w.Message, logger.Fields("data_check", w.DataCheckName, "code", string(w.Code)))
	}
	if err := report.Err(); err != nil {
		return nil, err
	}

	primary, err := objective.ForSearch(cfg.Objective, t)
	if err != nil {
		return nil, err
	}
	additional, err := objective.Additional(cfg.AdditionalObjectives, primary, t)
	if err != nil {
		return nil, err
	}

	working, err := prepareDataset(ds, cfg)
	if err != nil {
		return nil, err
	}
	splitter, err := split.ForProblem(cfg.Problem, cfg.Folds, cfg.Seed)
	if err != nil {
		return nil, err
	}
	workload, err := evaluation.NewWorkload(working, cfg.Problem, splitter)
	if err != nil {
		return nil, err
	}
	if n := len(workload.Splits); n < cfg.Folds {
		log.Warn("Fewer folds fit the data than requested", logger.Fields("requested", cfg.Folds, "folds", n))
	}
	ev := evaluation.NewEvaluator(workload, o.registry,
		evaluation.WithSeed(cfg.Seed),
		evaluation.WithLogger(log.WithComponent("evaluation")),
	)

	allowed, err := allowedPipelines(o.registry, cfg)
	if err != nil {
		return nil, err
	}
	alg, err := algorithm.NewIterative(algorithm.Config{
		Problem:               cfg.Problem,
		Registry:              o.registry,
		Allowed:               allowed,
		PipelinesPerBatch:     cfg.PipelinesPerBatch,
		Ensembling:            cfg.Ensembling,
		Seed:                  cfg.Seed,
		Tuner:                 cfg.Tuner,
		PipelineParams:        cfg.PipelineParams,
		CustomHyperparameters: cfg.CustomHyperparameters,
		Logger:                log.WithComponent("algorithm"),
	})
	if err != nil {
		return nil, err
	}

	eng, err := buildEngine(ev, cfg, o, log)
	if err != nil {
		return nil, err
	}

	s := &Search{
		id:         id,
		cfg:        cfg,
		dataset:    working,
		workload:   workload,
		registry:   o.registry,
		primary:    primary,
		additional: additional,
		algorithm:  alg,
		engine:     eng,
		ledger:     ledger.New(primary.Name(), primary.GreaterIsBetter()),
		state:      newState(time.Now()),
		checks:     report,
		callbacks:  o.callbacks,
		log:        log,
		metrics:    o.metrics,
		fitted:     make(map[int]*pipeline.Pipeline),
	}
	log.Info("Search started", logger.Fields(
		"problem_type", string(t),
		logger.FieldObjective, primary.Name(),
		logger.FieldEngine, eng.Kind(),
		"pipelines", len(allowed),
		"folds", len(workload.Splits),
	))
	return s, nil
}

// checkTarget rejects classification targets that cannot be split into
// classes.
func checkTarget(y []float64, cfg Config) error {
	t := cfg.Problem.Type
	if !t.IsClassification() {
		return nil
	}
	classes := 0
	for _, v := range data.UniqueValues(y) {
		if !math.IsNaN(v) {
			classes++
		}
	}
	if classes < 2 {
		return errors.Configurationf("Target has %d distinct value(s); %s problems need at least two classes", classes, t).
			WithDetail("classes", classes)
	}
	if t.IsBinary() && classes != 2 {
		return errors.Configurationf("Binary class targets require exactly two unique values; found %d", classes).
			WithDetail("classes", classes)
	}
	return nil
}

// prepareDataset encodes classification labels on a copy of the target.
// The feature frame is shared: the search never writes to it.
func prepareDataset(ds *data.Dataset, cfg Config) (*data.Dataset, error) {
	out := &data.Dataset{X: ds.X, Y: ds.Y}
	if !cfg.Problem.Type.IsClassification() {
		return out, nil
	}
	out.Y = append([]float64(nil), ds.Y...)
	if err := out.EncodeLabels(); err != nil {
		return nil, errors.Configuration("Target cannot be encoded as classes").WithCause(err)
	}
	return out, nil
}

func allowedPipelines(registry *component.Registry, cfg Config) ([]pipeline.Configuration, error) {
	switch {
	case len(cfg.AllowedPipelines) > 0:
		out := make([]pipeline.Configuration, len(cfg.AllowedPipelines))
		for i, c := range cfg.AllowedPipelines {
			out[i] = c.Clone()
		}
		return out, nil
	case len(cfg.AllowedGraphs) > 0:
		return algorithm.FromDefinitions(registry, cfg.Problem, cfg.Seed, cfg.AllowedGraphs)
	}
	return algorithm.DefaultAllowed(registry, cfg.Problem, cfg.Seed, cfg.AllowedFamilies...)
}

func buildEngine(ev *evaluation.Evaluator, cfg Config, o *searchOptions, log *logger.Logger) (engine.Engine, error) {
	if o.engine != nil {
		return o.engine(ev)
	}
	return engine.FromConfig(cfg.Engine, ev, o.redis,
		engine.WithLogger(log.WithComponent("engine")),
		engine.WithMetrics(o.metrics),
	)
}

// Step evaluates one batch. It returns done once a stopping criterion
// fired, the search was cancelled or the algorithm has nothing left to
// propose. Cancellation is not an error.
func (s *Search) Step(ctx context.Context) (bool, error) {
	s.run.Lock()
	defer s.run.Unlock()

	if s.state.isDone() {
		return true, nil
	}
	if reason := s.stopReason(); reason != StopNone {
		s.finish(reason)
		return true, nil
	}

	n := s.batchNumber()
	proposed, err := s.algorithm.NextBatch()
	if err != nil {
		return true, s.fail(ctx, err)
	}
	if len(proposed) == 0 {
		s.finish(StopExhausted)
		return true, nil
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanBatch)
	defer span.End()
	observability.SetSpanAttribute(ctx, "batch", n)
	started := time.Now()
	log := s.log.WithFields(logger.Fields(logger.FieldBatch, n))

	configs := s.truncate(n, s.dedup(proposed, log))
	results, cancelled, err := s.evaluate(ctx, n, configs)
	switch {
	case err != nil:
		return true, s.fail(ctx, err)
	case cancelled:
		log.Info("Search cancelled, discarding batch", logger.Fields("submitted", len(configs)))
		s.finish(StopCancelled)
		return true, nil
	}
	if err := s.record(ctx, configs, results, log); err != nil {
		return true, s.fail(ctx, err)
	}

	s.state.mu.Lock()
	s.state.Batch++
	if len(configs) == 0 {
		s.state.emptyBatches++
	} else {
		s.state.emptyBatches = 0
	}
	s.state.mu.Unlock()

	elapsed := time.Since(started)
	s.metrics.RecordBatch(ctx, n, len(results), elapsed)
	observability.SetSpanAttribute(ctx, "size", len(results))
	log.Info("Batch completed", logger.MergeWithDuration(logger.Fields(
		"evaluated", len(results),
		"skipped", len(proposed)-len(configs),
	), elapsed))

	if reason := s.stopReason(); reason != StopNone {
		s.finish(reason)
		return true, nil
	}
	return false, nil
}

// RunToCompletion steps until the search is done and logs the rankings.
func (s *Search) RunToCompletion(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanSearch)
	defer span.End()
	for {
		done, err := s.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	st := s.State()
	s.log.Info("Search finished", logger.MergeWithDuration(logger.Fields(
		"reason", string(st.StopReason),
		"batches", st.Batch,
		"evaluated", s.ledger.Len(),
	), st.Elapsed()))
	s.ledger.Rankings().Log(s.log, s.primary.Name())
	return nil
}

// Cancel asks the search to stop. The flag is checked between submissions;
// tasks already submitted are cancelled through the engine and the batch
// they belong to is discarded.
func (s *Search) Cancel() {
	if s.state.cancelled.Swap(true) {
		return
	}
	s.log.Info("Search cancellation requested")
	s.engine.CancelAll()
}

// Close releases the engine.
func (s *Search) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.engine.Close()
	})
	return s.closeErr
}

func (s *Search) batchNumber() int {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.Batch
}

// stopReason checks the stopping criteria. The baseline batch is exempt
// from every budget.
func (s *Search) stopReason() StopReason {
	if s.state.Cancelled() {
		return StopCancelled
	}
	s.state.mu.RLock()
	batch, empty := s.state.Batch, s.state.emptyBatches
	s.state.mu.RUnlock()
	switch {
	case batch == 0:
		return StopNone
	case s.cfg.MaxBatches > 0 && batch > s.cfg.MaxBatches:
		return StopMaxBatches
	case s.cfg.MaxIterations > 0 && s.ledger.Len() >= s.cfg.MaxIterations:
		return StopMaxIterations
	case s.cfg.MaxTime > 0 && s.state.Elapsed() >= s.cfg.MaxTime:
		return StopMaxTime
	case empty >= maxEmptyBatches:
		return StopExhausted
	}
	return StopNone
}

func (s *Search) finish(reason StopReason) {
	s.state.finish(reason)
}

// fail ends the search with a fatal error.
func (s *Search) fail(ctx context.Context, err error) error {
	s.finish(StopError)
	observability.SetSpanError(ctx, err)
	s.metrics.RecordError(ctx, string(errors.CodeOf(err)), "automl")
	s.log.Error("Search failed", logger.ErrorFields("step", err))
	s.callbacks.onError(err)
	return err
}

// dedup drops configurations already in the ledger or earlier in the batch.
func (s *Search) dedup(batch []pipeline.Configuration, log *logger.Logger) []pipeline.Configuration {
	out := make([]pipeline.Configuration, 0, len(batch))
	inBatch := make(map[string]bool, len(batch))
	for _, c := range batch {
		fp := c.Fingerprint()
		if inBatch[fp] || s.state.seen(fp) || s.ledger.Contains(fp) {
			log.Debug("Skipping duplicate configuration", logger.Fields(
				logger.FieldPipeline, c.Name,
				logger.FieldFingerprint, fp,
			))
			continue
		}
		inBatch[fp] = true
		out = append(out, c)
	}
	return out
}

// truncate fits a batch into the remaining iteration budget.
func (s *Search) truncate(n int, configs []pipeline.Configuration) []pipeline.Configuration {
	if n == 0 || s.cfg.MaxIterations <= 0 {
		return configs
	}
	remaining := s.cfg.MaxIterations - s.ledger.Len()
	if remaining < 0 {
		remaining = 0
	}
	if remaining < len(configs) {
		return configs[:remaining]
	}
	return configs
}

func (s *Search) task(id, batch int, c pipeline.Configuration) *evaluation.Task {
	t := &evaluation.Task{
		ID:                   id,
		Batch:                batch,
		Configuration:        c,
		Objective:            s.primary.Name(),
		AdditionalObjectives: objective.Names(s.additional),
		OptimizeThreshold: s.cfg.OptimizeThresholds &&
			s.cfg.Problem.Type.IsBinary() &&
			objective.CanOptimizeThreshold(s.primary),
		ThresholdSteps: s.cfg.ThresholdSteps,
		ReturnFitted:   true,
	}
	if c.Family == component.FamilyEnsemble {
		t.FoldLimit = 1
	}
	return t
}

// evaluate submits a batch and waits for every task in submission order.
// cancelled reports that the batch must be discarded.
func (s *Search) evaluate(ctx context.Context, batch int, configs []pipeline.Configuration) (results []*evaluation.Result, cancelled bool, err error) {
	first := s.ledger.Len()
	handles := make([]engine.Handle, 0, len(configs))
	for i, c := range configs {
		if s.interrupted(ctx) {
			s.abandon(ctx, handles)
			return nil, true, nil
		}
		s.callbacks.beforeEvaluation(first+i, batch, c)
		if s.interrupted(ctx) {
			s.abandon(ctx, handles)
			return nil, true, nil
		}
		h, err := s.engine.Submit(ctx, s.task(first+i, batch, c))
		if err != nil {
			s.abandon(ctx, handles)
			if errors.CodeOf(err) == errors.ErrCodeCancelled {
				return nil, true, nil
			}
			return nil, false, err
		}
		handles = append(handles, h)
	}

	results = make([]*evaluation.Result, len(handles))
	for i, h := range handles {
		res, err := h.Result(ctx)
		if err != nil {
			s.abandon(ctx, handles[i+1:])
			if errors.CodeOf(err) == errors.ErrCodeCancelled {
				return nil, true, nil
			}
			return nil, false, err
		}
		results[i] = res
	}
	if s.interrupted(ctx) {
		return nil, true, nil
	}
	return results, false, nil
}

func (s *Search) interrupted(ctx context.Context) bool {
	return s.state.Cancelled() || ctx.Err() != nil
}

// abandon cancels the submitted tasks and waits for them to resolve so no
// task of a discarded batch outlives it.
func (s *Search) abandon(ctx context.Context, handles []engine.Handle) {
	s.engine.CancelAll()
	wait := context.WithoutCancel(ctx)
	for _, h := range handles {
		_, _ = h.Result(wait)
	}
}

// record appends a resolved batch to the ledger and reports it to the
// algorithm. configs are the submitted configurations, aligned with results.
func (s *Search) record(ctx context.Context, configs []pipeline.Configuration, results []*evaluation.Result, log *logger.Logger) error {
	for i, r := range results {
		fitted := r.Fitted
		if err := s.ledger.Append(r); err != nil {
			return err
		}
		score := s.ledger.Normalize(r.MeanScore)
		ok := r.Succeeded() && !math.IsInf(score, 0)

		s.state.mu.Lock()
		s.state.Fingerprints[r.Fingerprint] = r.ID
		improved := ok && score > s.state.BestScore
		if improved {
			s.state.BestScore = score
			s.state.BestID = r.ID
		}
		s.state.mu.Unlock()
		s.retain(r.ID, fitted, improved)

		fields := logger.Fields(
			logger.FieldPipelineID, r.ID,
			logger.FieldPipeline, r.Configuration.Name,
			logger.FieldStatus, string(r.Status),
		)
		if ok {
			fields[logger.FieldScore] = r.MeanScore
			if r.Degraded() {
				fields["failed_folds"] = r.FailedFolds
			}
		} else if r.ErrorMessage != "" {
			fields[logger.FieldError] = r.ErrorMessage
		}
		log.Info("Pipeline evaluated", fields)

		s.metrics.RecordEvaluation(ctx, string(r.Configuration.Family), string(r.Status), r.TrainingTime, r.FailedFolds)
		if improved {
			s.metrics.RecordBestScore(ctx, s.primary.Name(), r.MeanScore)
		}

		obs := algorithm.Observation{
			ID:            r.ID,
			Batch:         r.Batch,
			Configuration: configs[i],
			Score:         score,
			Succeeded:     ok,
		}
		if err := s.algorithm.AddResult(obs); err != nil {
			return err
		}
		s.callbacks.afterResult(r)
	}
	return nil
}

// retain keeps the fitted pipeline of the current best, or of every result
// with RetainAllFitted.
func (s *Search) retain(id int, fitted *pipeline.Pipeline, improved bool) {
	if fitted == nil {
		return
	}
	s.fittedMu.Lock()
	defer s.fittedMu.Unlock()
	switch {
	case s.cfg.RetainAllFitted:
		s.fitted[id] = fitted
	case improved:
		s.fitted = map[int]*pipeline.Pipeline{id: fitted}
	}
}
