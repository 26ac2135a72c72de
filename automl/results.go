package automl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kbukum/automl/algorithm"
	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/datacheck"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/ledger"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/objective"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/util"
)

// ID returns the search id.
func (s *Search) ID() string { return s.id }

// Config returns the configuration with defaults applied.
func (s *Search) Config() Config { return s.cfg }

// Objective returns the primary objective.
func (s *Search) Objective() objective.Objective { return s.primary }

// AdditionalObjectives returns the objectives scored alongside the primary.
func (s *Search) AdditionalObjectives() []objective.Objective {
	return append([]objective.Objective(nil), s.additional...)
}

// State returns a copy of the search state.
func (s *Search) State() *SearchState { return s.state.copy() }

// DataChecks returns the warnings the data checks reported at Start.
func (s *Search) DataChecks() datacheck.Result { return s.checks }

// Rankings returns the best result per pipeline name, best first.
func (s *Search) Rankings() ledger.Ranking { return s.ledger.Rankings() }

// FullRankings returns every succeeded result, best first.
func (s *Search) FullRankings() ledger.Ranking { return s.ledger.FullRankings() }

// Results returns copies of every recorded result in submission order.
func (s *Search) Results() []*evaluation.Result { return s.ledger.Results() }

// BestPipelineInfo returns the best configuration per family.
func (s *Search) BestPipelineInfo() map[component.Family]algorithm.BestPipelineInfo {
	return s.algorithm.BestPipelineInfo()
}

// BestResult returns the result at the top of the full ranking.
func (s *Search) BestResult() (*evaluation.Result, error) {
	return s.ledger.Best()
}

// BestPipeline returns the configuration at the top of the full ranking.
// It fails with a no-successful-pipeline error when nothing succeeded.
func (s *Search) BestPipeline() (pipeline.Configuration, error) {
	best, err := s.ledger.Best()
	if err != nil {
		return pipeline.Configuration{}, err
	}
	return best.Configuration, nil
}

// BestFitted returns the pipeline fitted while the best configuration was
// cross-validated. Engines that run tasks out of process do not return
// fitted pipelines; use FitBestPipeline there.
func (s *Search) BestFitted() (*pipeline.Pipeline, error) {
	best, err := s.ledger.Best()
	if err != nil {
		return nil, err
	}
	s.fittedMu.RLock()
	defer s.fittedMu.RUnlock()
	p, ok := s.fitted[best.ID]
	if !ok {
		return nil, errors.NotFound("fitted pipeline", strconv.Itoa(best.ID))
	}
	return p, nil
}

// Fitted returns the fitted pipeline kept for a result, if any.
func (s *Search) Fitted(id int) (*pipeline.Pipeline, bool) {
	s.fittedMu.RLock()
	defer s.fittedMu.RUnlock()
	p, ok := s.fitted[id]
	return p, ok
}

// GetPipeline returns the configuration of a result.
func (s *Search) GetPipeline(id int) (pipeline.Configuration, error) {
	r, err := s.ledger.Get(id)
	if err != nil {
		return pipeline.Configuration{}, err
	}
	return r.Configuration, nil
}

// FitBestPipeline builds the best configuration and fits it on every row.
// A binary decision threshold tuned during cross-validation is carried over
// as the mean of the fold thresholds.
func (s *Search) FitBestPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	best, err := s.ledger.Best()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Cancelled("fitting the best pipeline").WithCause(err)
	}
	p, err := pipeline.New(s.registry, best.Configuration)
	if err != nil {
		return nil, err
	}
	if err := p.Fit(s.dataset.X, s.dataset.Y); err != nil {
		return nil, err
	}
	var thresholds []float64
	for _, f := range best.Folds {
		if f.Succeeded() && f.Threshold != nil {
			thresholds = append(thresholds, *f.Threshold)
		}
	}
	if len(thresholds) > 0 {
		p.SetThreshold(stat.Mean(thresholds, nil))
	}
	s.log.Info("Best pipeline fitted", logger.Fields(
		logger.FieldPipelineID, best.ID,
		logger.FieldPipeline, best.Configuration.Name,
	))
	return p, nil
}

// DecodeLabels maps predictions of a classification pipeline back to the
// original target values.
func (s *Search) DecodeLabels(encoded []float64) []float64 {
	return s.dataset.DecodeLabels(encoded)
}

// Describe logs the configuration and objective scores of a result and
// returns it.
func (s *Search) Describe(id int) (*evaluation.Result, error) {
	r, err := s.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	c := r.Configuration
	s.log.Info(fmt.Sprintf("* %s *", c.Name), logger.Fields(
		logger.FieldPipelineID, r.ID,
		logger.FieldFamily, string(c.Family),
		logger.FieldBatch, r.Batch,
		logger.FieldStatus, string(r.Status),
	))
	if order, err := c.Graph.Order(); err == nil {
		for i, node := range order {
			n, _ := c.Graph.Node(node)
			s.log.Info(fmt.Sprintf("%d. %s", i+1, n.Component), logger.Fields("parameters", formatParameters(c.Parameters[node])))
		}
	}
	if !r.Succeeded() {
		s.log.Info("Evaluation failed", logger.Fields(logger.FieldError, r.ErrorMessage, "kind", string(r.ErrorKind)))
		return r, nil
	}

	names := append([]string{r.Objective}, objective.Names(s.additional)...)
	headers := append([]string{"fold"}, names...)
	table := logger.NewSummary(fmt.Sprintf("Training time %s", r.TrainingTime.Round(time.Millisecond)), headers...)
	for _, f := range r.Folds {
		row := []interface{}{f.Fold}
		for _, name := range names {
			if v, ok := f.Scores[name]; ok && f.Succeeded() {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		table.AddRow(row...)
	}
	mean := []interface{}{"mean"}
	for _, name := range names {
		if v, ok := r.Score(name); ok {
			mean = append(mean, v)
		} else {
			mean = append(mean, nil)
		}
	}
	table.AddRow(mean...)
	table.Log(s.log)
	return r, nil
}

func formatParameters(params map[string]any) string {
	keys := util.SortedKeys(params)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return strings.Join(parts, ", ")
}
