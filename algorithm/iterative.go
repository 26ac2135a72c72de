package algorithm

import (
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/components"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/problem"
	"github.com/kbukum/automl/tuner"
)

// DefaultPipelinesPerBatch is the size of a tuning batch.
const DefaultPipelinesPerBatch = 5

// Config configures an Iterative algorithm.
type Config struct {
	Problem  problem.Config
	Registry *component.Registry
	// Allowed lists the candidate configurations in batch-1 order.
	Allowed []pipeline.Configuration
	// PipelinesPerBatch is the number of configurations of a tuning batch.
	PipelinesPerBatch int
	// Ensembling adds a stacked-ensemble batch after every full tuning cycle.
	Ensembling bool
	Seed       int64
	// Tuner selects the tuner kind, see tuner.New.
	Tuner string
	// PipelineParams maps node name -> parameter -> value. The values are
	// merged into every configuration holding the node and are never tuned.
	PipelineParams map[string]map[string]any
	// CustomHyperparameters maps node name -> parameter -> range and
	// replaces the registered ranges.
	CustomHyperparameters map[string]map[string]component.Range
	Logger                *logger.Logger
}

// candidate is one allowed configuration with its tuner.
type candidate struct {
	config pipeline.Configuration
	space  tuner.Space
	tuner  tuner.Tuner
}

// Iterative is the batch state machine of a search:
//
//   - batch 0 is the baseline configuration,
//   - batch 1 holds the default configuration of every allowed pipeline,
//   - later batches tune one pipeline each, cycling best-first by batch-1
//     score over the pipelines that did not error,
//   - with ensembling, a stacked ensemble of the best configuration per
//     family follows every full cycle.
type Iterative struct {
	cfg        Config
	log        *logger.Logger
	candidates []*candidate
	byName     map[string]*candidate

	batch    int
	produced int

	firstBatch map[string]Observation
	order      []*candidate
	cursor     int
	ensemble   bool
	best       map[component.Family]BestPipelineInfo
}

// NewIterative validates cfg and prepares one tuner per allowed pipeline.
func NewIterative(cfg Config) (*Iterative, error) {
	if cfg.Registry == nil {
		return nil, errors.MissingField("registry")
	}
	if len(cfg.Allowed) == 0 {
		return nil, errors.Configuration("No allowed pipelines to search")
	}
	if cfg.PipelinesPerBatch <= 0 {
		cfg.PipelinesPerBatch = DefaultPipelinesPerBatch
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Get("algorithm")
	}
	for node, params := range cfg.PipelineParams {
		for name, v := range params {
			if _, isRange := v.(component.Range); isRange {
				return nil, errors.Configurationf("Pipeline parameters should not contain hyperparameter ranges: %s.%s", node, name)
			}
		}
	}

	it := &Iterative{
		cfg:        cfg,
		log:        cfg.Logger.WithComponent("algorithm"),
		byName:     make(map[string]*candidate),
		firstBatch: make(map[string]Observation),
		best:       make(map[component.Family]BestPipelineInfo),
	}
	for i, c := range cfg.Allowed {
		if _, dup := it.byName[c.Name]; dup {
			return nil, errors.Configurationf("allowed pipeline %q is listed twice", c.Name)
		}
		cand, err := it.prepare(c, cfg.Seed+int64(i))
		if err != nil {
			return nil, err
		}
		it.candidates = append(it.candidates, cand)
		it.byName[c.Name] = cand
	}
	return it, nil
}

// prepare pins the pipeline parameters, writes every tunable parameter
// explicitly and builds the candidate's search space.
func (it *Iterative) prepare(c pipeline.Configuration, seed int64) (*candidate, error) {
	c = c.Clone()
	space := make(tuner.Space)
	for _, n := range c.Graph.Nodes {
		def, ok := it.cfg.Registry.Get(n.Component)
		if !ok {
			return nil, errors.Configurationf("pipeline %s: component %q is not registered", c.Name, n.Component)
		}
		pinned := it.cfg.PipelineParams[n.Name]
		if len(pinned) > 0 {
			c = c.WithParameters(n.Name, pinned)
		}

		ranges := make(map[string]component.Range, len(def.Ranges))
		for name, r := range def.Ranges {
			ranges[name] = r
		}
		for name, r := range it.cfg.CustomHyperparameters[n.Name] {
			if _, ok := def.Defaults[name]; !ok {
				return nil, errors.Configurationf("%s does not accept parameter %q", def.Name, name)
			}
			ranges[name] = r
		}

		current := component.Merge(def.Defaults, c.Parameters[n.Name])
		explicit := make(map[string]any)
		var outside []string
		for name, r := range ranges {
			v := current[name]
			if !r.Contains(v) {
				outside = append(outside, fmt.Sprintf("%s.%s=%v not in %s", n.Name, name, v, r))
				continue
			}
			if _, isPinned := pinned[name]; isPinned {
				continue
			}
			explicit[name] = v
			if space[n.Name] == nil {
				space[n.Name] = make(map[string]component.Range)
			}
			space[n.Name][name] = r
		}
		if len(outside) > 0 {
			sort.Strings(outside)
			return nil, errors.Configurationf("Default parameters for components in pipeline %s not in the hyperparameter ranges: %v", c.Name, outside)
		}
		if len(explicit) > 0 {
			c = c.WithParameters(n.Name, explicit)
		}
	}

	t, err := tuner.New(it.cfg.Tuner, space, seed)
	if err != nil {
		return nil, err
	}
	return &candidate{config: c, space: space, tuner: t}, nil
}

func (it *Iterative) BatchNumber() int    { return it.batch }
func (it *Iterative) PipelineNumber() int { return it.produced }

// NumPipelinesPerBatch returns the size of batch n.
func (it *Iterative) NumPipelinesPerBatch(n int) int {
	switch {
	case n == 0:
		return 1
	case n == 1:
		return len(it.candidates)
	}
	return it.cfg.PipelinesPerBatch
}

// BestPipelineInfo returns the best configuration seen per family.
func (it *Iterative) BestPipelineInfo() map[component.Family]BestPipelineInfo {
	out := make(map[component.Family]BestPipelineInfo, len(it.best))
	for f, info := range it.best {
		info.Configuration = info.Configuration.Clone()
		out[f] = info
	}
	return out
}

func (it *Iterative) NextBatch() ([]pipeline.Configuration, error) {
	var (
		batch []pipeline.Configuration
		err   error
	)
	switch it.batch {
	case 0:
		batch, err = it.baselineBatch()
	case 1:
		batch = it.defaultBatch()
	default:
		batch, err = it.tuningBatch()
	}
	if err != nil {
		return nil, err
	}
	it.batch++
	it.produced += len(batch)
	it.log.Debug("Batch generated", logger.Fields(logger.FieldBatch, it.batch-1, "size", len(batch)))
	return batch, nil
}

func (it *Iterative) baselineBatch() ([]pipeline.Configuration, error) {
	c, err := pipeline.MakeBaseline(it.cfg.Registry, it.cfg.Problem, it.cfg.Seed)
	if err != nil {
		return nil, err
	}
	return []pipeline.Configuration{c}, nil
}

func (it *Iterative) defaultBatch() []pipeline.Configuration {
	out := make([]pipeline.Configuration, len(it.candidates))
	for i, c := range it.candidates {
		out[i] = c.config.Clone()
	}
	return out
}

func (it *Iterative) tuningBatch() ([]pipeline.Configuration, error) {
	if len(it.firstBatch) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "No results were reported from the first batch")
	}
	if it.order == nil {
		it.order = it.rankFirstBatch()
	}
	if len(it.order) == 0 {
		return nil, nil
	}

	if it.ensemble {
		it.ensemble = false
		c, ok, err := it.ensembleConfiguration()
		if err != nil {
			return nil, err
		}
		if ok {
			return []pipeline.Configuration{c}, nil
		}
	}

	for tried := 0; tried < len(it.order); tried++ {
		cand := it.order[it.cursor%len(it.order)]
		it.cursor++
		if it.cursor%len(it.order) == 0 {
			it.ensemble = it.cfg.Ensembling
		}
		batch, err := it.propose(cand)
		if err != nil {
			return nil, err
		}
		if len(batch) > 0 {
			return batch, nil
		}
		it.log.Debug("Tuner exhausted", logger.Fields(logger.FieldPipeline, cand.config.Name))
	}
	return nil, nil
}

// rankFirstBatch orders the pipelines that succeeded in batch 1 best-first.
func (it *Iterative) rankFirstBatch() []*candidate {
	order := make([]*candidate, 0, len(it.candidates))
	for _, c := range it.candidates {
		if obs, ok := it.firstBatch[c.config.Name]; ok && obs.Succeeded {
			order = append(order, c)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return it.firstBatch[order[i].config.Name].Score > it.firstBatch[order[j].config.Name].Score
	})
	return order
}

func (it *Iterative) propose(cand *candidate) ([]pipeline.Configuration, error) {
	var out []pipeline.Configuration
	for len(out) < it.cfg.PipelinesPerBatch {
		params, err := cand.tuner.Propose()
		if stderrors.Is(err, tuner.ErrExhausted) {
			break
		}
		if err != nil {
			return nil, err
		}
		c := cand.config
		for node, values := range params {
			c = c.WithParameters(node, values)
		}
		out = append(out, c)
	}
	return out, nil
}

// ensembleConfiguration stacks the best configuration of every viable
// family. It reports false when fewer than two families qualify.
func (it *Iterative) ensembleConfiguration() (pipeline.Configuration, bool, error) {
	if it.cfg.Problem.Type.IsTimeSeries() {
		return pipeline.Configuration{}, false, nil
	}
	var inputs []pipeline.Configuration
	seen := make(map[component.Family]bool)
	for _, cand := range it.order {
		f := cand.config.Family
		info, ok := it.best[f]
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		inputs = append(inputs, info.Configuration.Clone())
	}
	if len(inputs) < 2 {
		return pipeline.Configuration{}, false, nil
	}

	name, label := pipeline.StackedEnsembleReg, "Regression"
	if it.cfg.Problem.Type.IsClassification() {
		name, label = pipeline.StackedEnsembleClass, "Classification"
	}
	if _, ok := it.cfg.Registry.Get(name); !ok {
		return pipeline.Configuration{}, false, nil
	}
	params, err := components.EnsembleParameters(inputs)
	if err != nil {
		return pipeline.Configuration{}, false, err
	}
	c := pipeline.Configuration{
		Name:        "Stacked Ensemble " + label + " Pipeline",
		Family:      component.FamilyEnsemble,
		ProblemType: it.cfg.Problem.Type,
		Graph:       pipeline.Linear(name),
	}
	c = pipeline.WithProblemParameters(it.cfg.Registry, c, it.cfg.Problem, it.cfg.Seed)
	return c.WithParameters(name, params), true, nil
}

// AddResult records an observation. Baseline and ensemble results do not
// feed any tuner.
func (it *Iterative) AddResult(obs Observation) error {
	f := obs.Configuration.Family
	if f == component.FamilyBaseline || f == component.FamilyEnsemble {
		return nil
	}
	cand, ok := it.byName[obs.Configuration.Name]
	if !ok {
		return errors.Configurationf("pipeline %q was not proposed by this algorithm", obs.Configuration.Name)
	}
	if obs.Batch == 1 {
		it.firstBatch[cand.config.Name] = obs
	}
	if !obs.Succeeded {
		return nil
	}

	params := make(tuner.Parameters, len(cand.space))
	for node, ranges := range cand.space {
		params[node] = make(map[string]any, len(ranges))
		for name := range ranges {
			params[node][name] = obs.Configuration.Parameters[node][name]
		}
	}
	if err := cand.tuner.Add(params, obs.Score); err != nil {
		return errors.Configurationf("Default parameters for components in pipeline %s not in the hyperparameter ranges: %v", cand.config.Name, err)
	}

	if current, ok := it.best[f]; !ok || obs.Score > current.Score {
		it.best[f] = BestPipelineInfo{ID: obs.ID, Score: obs.Score, Configuration: obs.Configuration.Clone()}
	}
	return nil
}
