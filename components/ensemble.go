package components

import (
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/split"
)

// ParamInputPipelines holds the configurations a stacked ensemble combines.
const ParamInputPipelines = "input_pipelines"

// EnsembleParameters encodes input configurations as a plain JSON value so
// ensemble configurations fingerprint the same before and after a round trip
// through a remote engine.
func EnsembleParameters(inputs []pipeline.Configuration) (map[string]any, error) {
	raw, err := json.Marshal(inputs)
	if err != nil {
		return nil, errors.Internal(err)
	}
	var plain []any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, errors.Internal(err)
	}
	return map[string]any{ParamInputPipelines: plain}, nil
}

func decodeInputs(v any) ([]pipeline.Configuration, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.InvalidInput(ParamInputPipelines, err.Error())
	}
	var inputs []pipeline.Configuration
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, errors.InvalidInput(ParamInputPipelines, err.Error())
	}
	return inputs, nil
}

// StackedEnsemble fits its input pipelines, builds meta features from their
// out-of-fold predictions and fits a final linear estimator on them. Input
// pipelines are fitted in parallel, n_jobs at a time.
type StackedEnsemble struct {
	base
	registry   *component.Registry
	inputs     []pipeline.Configuration
	classifier bool
	folds      int
	jobs       int
	seed       int64
	classes    []float64
	fitted     []*pipeline.Pipeline
	final      component.Estimator
}

func newStackedEnsemble(registry *component.Registry, name string, classifier bool) component.Factory {
	return func(params map[string]any) (component.Component, error) {
		inputs, err := decodeInputs(params[ParamInputPipelines])
		if err != nil {
			return nil, err
		}
		folds, err := component.Int(params, "cv_folds")
		if err != nil {
			return nil, err
		}
		jobs, err := component.Int(params, "n_jobs")
		if err != nil {
			return nil, err
		}
		seed, err := component.Int(params, pipeline.ParamRandomSeed)
		if err != nil {
			return nil, err
		}
		if folds < 2 {
			return nil, errors.InvalidInput("cv_folds", "cv_folds must be at least 2")
		}
		return &StackedEnsemble{
			base:       base{name: name, params: params},
			registry:   registry,
			inputs:     inputs,
			classifier: classifier,
			folds:      folds,
			jobs:       jobs,
			seed:       int64(seed),
		}, nil
	}
}

// Inputs returns the input configurations.
func (e *StackedEnsemble) Inputs() []pipeline.Configuration {
	out := make([]pipeline.Configuration, len(e.inputs))
	for i, c := range e.inputs {
		out[i] = c.Clone()
	}
	return out
}

func (e *StackedEnsemble) Fit(X *data.Frame, y []float64) error {
	if err := checkFit(e.name, X, y); err != nil {
		return err
	}
	if len(e.inputs) == 0 {
		return errors.InvalidInput(ParamInputPipelines, "an ensemble needs at least one input pipeline")
	}
	if e.classifier {
		e.classes = sortedClasses(y)
	}
	splits, err := e.splits(X.NumRows(), y)
	if err != nil {
		return err
	}

	n, width := X.NumRows(), e.width()
	meta := make([][]float64, n)
	for i := range meta {
		meta[i] = make([]float64, width*len(e.inputs))
	}
	e.fitted = make([]*pipeline.Pipeline, len(e.inputs))

	g := e.group()
	for i := range e.inputs {
		g.Go(func() error {
			for _, s := range splits {
				p, err := pipeline.New(e.registry, e.inputs[i])
				if err != nil {
					return err
				}
				if err := p.Fit(X.Take(s.Train), take(y, s.Train)); err != nil {
					return err
				}
				pred, err := p.Predict(X.Take(s.Validation))
				if err != nil {
					return err
				}
				for k, row := range s.Validation {
					e.fillMeta(meta[row][i*width:(i+1)*width], pred, k)
				}
			}
			p, err := pipeline.New(e.registry, e.inputs[i])
			if err != nil {
				return err
			}
			if err := p.Fit(X, y); err != nil {
				return err
			}
			e.fitted[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	final, err := e.newFinal()
	if err != nil {
		return err
	}
	frame, err := data.NewFrame(e.metaColumns(), meta)
	if err != nil {
		return err
	}
	if err := final.Fit(frame, y); err != nil {
		return err
	}
	e.final = final
	return nil
}

func (e *StackedEnsemble) Predict(X *data.Frame) ([]float64, error) {
	pred, err := e.PredictProba(X)
	return pred.Values, err
}

func (e *StackedEnsemble) PredictProba(X *data.Frame) (data.Prediction, error) {
	if e.final == nil {
		return data.Prediction{}, errors.Pipeline(e.name, fmt.Errorf("not fitted"))
	}
	n, width := X.NumRows(), e.width()
	meta := make([][]float64, n)
	for i := range meta {
		meta[i] = make([]float64, width*len(e.fitted))
	}
	g := e.group()
	for i, p := range e.fitted {
		g.Go(func() error {
			pred, err := p.Predict(X)
			if err != nil {
				return err
			}
			for row := 0; row < n; row++ {
				e.fillMeta(meta[row][i*width:(i+1)*width], pred, row)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return data.Prediction{}, err
	}
	frame, err := data.NewFrame(e.metaColumns(), meta)
	if err != nil {
		return data.Prediction{}, err
	}
	if pp, ok := e.final.(component.PredictsProba); ok {
		return pp.PredictProba(frame)
	}
	values, err := e.final.Predict(frame)
	return data.Prediction{Values: values}, err
}

func (e *StackedEnsemble) group() *errgroup.Group {
	g := new(errgroup.Group)
	if e.jobs > 0 {
		g.SetLimit(e.jobs)
	}
	return g
}

func (e *StackedEnsemble) splits(n int, y []float64) ([]split.Split, error) {
	if e.classifier {
		s, err := (&split.StratifiedKFold{Folds: e.folds, Seed: e.seed}).Split(n, y)
		if err == nil {
			return s, nil
		}
	}
	s, err := (&split.KFold{Folds: e.folds, Shuffle: true, Seed: e.seed}).Split(n, y)
	if err != nil {
		return nil, errors.Dataf("%s: %v", e.name, err)
	}
	return s, nil
}

// width is the number of meta features per input pipeline.
func (e *StackedEnsemble) width() int {
	if e.classifier {
		return len(e.classes)
	}
	return 1
}

func (e *StackedEnsemble) fillMeta(dst []float64, pred data.Prediction, row int) {
	if !e.classifier {
		dst[0] = pred.Values[row]
		return
	}
	if !pred.HasProba() {
		index := classIndex(e.classes)
		for k := range dst {
			dst[k] = 0
		}
		if k, ok := index[pred.Values[row]]; ok {
			dst[k] = 1
		}
		return
	}
	aligned := data.Prediction{Proba: pred.Proba[row : row+1], Classes: pred.Classes}.AlignProba(e.classes)
	copy(dst, aligned[0])
}

func (e *StackedEnsemble) metaColumns() []string {
	var cols []string
	for i := range e.inputs {
		if !e.classifier {
			cols = append(cols, fmt.Sprintf("input_%d", i))
			continue
		}
		for _, c := range e.classes {
			cols = append(cols, fmt.Sprintf("input_%d_class_%v", i, c))
		}
	}
	return cols
}

func (e *StackedEnsemble) newFinal() (component.Estimator, error) {
	name := LinearRegressorName
	if e.classifier {
		name = LogisticRegressionName
	}
	c, err := e.registry.Build(name, nil)
	if err != nil {
		return nil, err
	}
	est, ok := c.(component.Estimator)
	if !ok {
		return nil, errors.Configurationf("%s is not an estimator", name)
	}
	return est, nil
}

func take(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
