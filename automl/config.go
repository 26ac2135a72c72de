package automl

import (
	"time"

	"github.com/kbukum/automl/algorithm"
	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/config"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/problem"
	"github.com/kbukum/automl/util"
	"github.com/kbukum/automl/validation"
)

// DefaultMaxBatches applies when no stopping criterion is set.
const DefaultMaxBatches = 1

// Config configures a search.
type Config struct {
	Problem problem.Config
	// Objective names the primary objective. Empty selects the default of
	// the problem type.
	Objective string
	// AdditionalObjectives are scored on every fold. Empty selects the core
	// objectives of the problem type.
	AdditionalObjectives []string

	// MaxBatches counts batches after the baseline batch.
	MaxBatches int
	// MaxIterations counts evaluated configurations, the baseline included.
	MaxIterations int
	MaxTime       time.Duration

	PipelinesPerBatch  int
	Ensembling         bool
	Folds              int
	Seed               int64
	OptimizeThresholds bool
	ThresholdSteps     int
	Tuner              string

	// AllowedFamilies restricts the default pipelines to these families.
	AllowedFamilies []component.Family
	// AllowedGraphs replaces the default pipelines with declared graphs.
	AllowedGraphs []pipeline.Definition
	// AllowedPipelines replaces the default pipelines with ready
	// configurations. It wins over AllowedGraphs.
	AllowedPipelines      []pipeline.Configuration
	PipelineParams        map[string]map[string]any
	CustomHyperparameters map[string]map[string]component.Range

	// RetainAllFitted keeps the fitted pipeline of every result instead of
	// only the current best.
	RetainAllFitted bool

	// Engine is used unless WithEngine supplies a factory.
	Engine config.EngineConfig
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.MaxBatches == 0 && c.MaxIterations == 0 && c.MaxTime == 0 {
		c.MaxBatches = DefaultMaxBatches
	}
	if c.PipelinesPerBatch == 0 {
		c.PipelinesPerBatch = algorithm.DefaultPipelinesPerBatch
	}
	if c.Folds == 0 {
		c.Folds = 3
	}
	if c.ThresholdSteps == 0 {
		c.ThresholdSteps = 100
	}
	if c.Tuner == "" {
		c.Tuner = "gp"
	}
	c.Engine.ApplyDefaults()
}

// Validate checks the settings that do not depend on the data.
func (c *Config) Validate() error {
	if err := c.Problem.Validate(); err != nil {
		return err
	}
	v := validation.New()
	v.Min("max_batches", c.MaxBatches, 0).
		Min("max_iterations", c.MaxIterations, 0).
		Min("pipelines_per_batch", c.PipelinesPerBatch, 1).
		Min("folds", c.Folds, 2).
		Min("threshold_steps", c.ThresholdSteps, 2).
		OneOf("tuner", c.Tuner, []string{"gp", "random", "grid"}).
		Custom(c.MaxTime >= 0, "max_time", "must be non-negative")
	return v.Err()
}

// ConfigFrom builds a search configuration from a loaded file
// configuration, reading the allowed graphs file when one is set.
func ConfigFrom(cfg *config.Config) (Config, error) {
	t, err := problem.Parse(cfg.Problem.Type)
	if err != nil {
		return Config{}, err
	}
	maxTime, err := cfg.Search.MaxDuration()
	if err != nil {
		return Config{}, err
	}

	out := Config{
		Problem: problem.Config{
			Type:            t,
			Gap:             cfg.Problem.Gap,
			MaxDelay:        cfg.Problem.MaxDelay,
			ForecastHorizon: cfg.Problem.ForecastHorizon,
			TimeIndex:       cfg.Problem.TimeIndex,
		},
		Objective:            cfg.Search.Objective,
		AdditionalObjectives: util.Unique(cfg.Search.AdditionalObjectives),
		MaxBatches:           cfg.Search.MaxBatches,
		MaxIterations:        cfg.Search.MaxIterations,
		MaxTime:              maxTime,
		PipelinesPerBatch:    cfg.Search.PipelinesPerBatch,
		Ensembling:           cfg.Search.Ensembling,
		Folds:                cfg.Search.Folds,
		Seed:                 cfg.Search.RandomSeed,
		OptimizeThresholds:   cfg.Search.OptimizeThresholds,
		ThresholdSteps:       cfg.Search.ThresholdSteps,
		Tuner:                cfg.Search.Tuner,
		RetainAllFitted:      cfg.Search.RetainAllFitted,
		Engine:               cfg.Engine,
	}
	for _, f := range util.Unique(cfg.Search.AllowedFamilies) {
		out.AllowedFamilies = append(out.AllowedFamilies, component.Family(f))
	}
	if cfg.Search.AllowedGraphsFile != "" {
		defs, err := pipeline.LoadGraphs(cfg.Search.AllowedGraphsFile)
		if err != nil {
			return Config{}, err
		}
		out.AllowedGraphs = defs
	}
	return out, nil
}
