package config

import (
	"time"

	"github.com/kbukum/automl/redis"
	"github.com/kbukum/automl/validation"
)

// Engine kinds.
const (
	EngineSequential  = "sequential"
	EngineThreads     = "threads"
	EngineProcesses   = "processes"
	EngineDistributed = "distributed"
)

// Ledger store kinds.
const (
	StoreNone  = "none"
	StoreLocal = "local"
	StoreS3    = "s3"
	StoreRedis = "redis"
	StoreSQL   = "sql"
)

// Config is the complete configuration of a search process or worker.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Problem       ProblemConfig       `yaml:"problem" mapstructure:"problem"`
	Search        SearchConfig        `yaml:"search" mapstructure:"search"`
	Engine        EngineConfig        `yaml:"engine" mapstructure:"engine"`
	Ledger        LedgerConfig        `yaml:"ledger" mapstructure:"ledger"`
	Redis         redis.Config        `yaml:"redis" mapstructure:"redis"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// ProblemConfig describes the supervised problem in file form.
// Pointer fields distinguish "unset" from zero for the time-series settings.
type ProblemConfig struct {
	Type            string `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=binary multiclass regression time_series_binary time_series_multiclass time_series_regression"`
	Gap             *int   `yaml:"gap" mapstructure:"gap" validate:"omitempty,gte=0"`
	MaxDelay        *int   `yaml:"max_delay" mapstructure:"max_delay" validate:"omitempty,gte=0"`
	ForecastHorizon *int   `yaml:"forecast_horizon" mapstructure:"forecast_horizon" validate:"omitempty,gte=1"`
	TimeIndex       string `yaml:"time_index" mapstructure:"time_index"`
}

// SearchConfig holds stopping criteria and algorithm settings.
type SearchConfig struct {
	Objective            string   `yaml:"objective" mapstructure:"objective"`
	AdditionalObjectives []string `yaml:"additional_objectives" mapstructure:"additional_objectives"`
	MaxBatches           int      `yaml:"max_batches" mapstructure:"max_batches" validate:"gte=0"`
	MaxIterations        int      `yaml:"max_iterations" mapstructure:"max_iterations" validate:"gte=0"`
	MaxTime              string   `yaml:"max_time" mapstructure:"max_time"`
	PipelinesPerBatch    int      `yaml:"pipelines_per_batch" mapstructure:"pipelines_per_batch" validate:"gte=1"`
	Ensembling           bool     `yaml:"ensembling" mapstructure:"ensembling"`
	Folds                int      `yaml:"folds" mapstructure:"folds" validate:"gte=2"`
	RandomSeed           int64    `yaml:"random_seed" mapstructure:"random_seed"`
	OptimizeThresholds   bool     `yaml:"optimize_thresholds" mapstructure:"optimize_thresholds"`
	ThresholdSteps       int      `yaml:"threshold_steps" mapstructure:"threshold_steps" validate:"gte=2"`
	AllowedFamilies      []string `yaml:"allowed_families" mapstructure:"allowed_families"`
	AllowedGraphsFile    string   `yaml:"allowed_graphs_file" mapstructure:"allowed_graphs_file"`
	Tuner                string   `yaml:"tuner" mapstructure:"tuner" validate:"oneof=gp random grid"`
	RetainAllFitted      bool     `yaml:"retain_all_fitted" mapstructure:"retain_all_fitted"`
}

// EngineConfig selects the execution substrate.
type EngineConfig struct {
	Kind         string `yaml:"kind" mapstructure:"kind" validate:"oneof=sequential threads processes distributed"`
	Workers      int    `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
	TaskTimeout  string `yaml:"task_timeout" mapstructure:"task_timeout"`
	WorkerBinary string `yaml:"worker_binary" mapstructure:"worker_binary"`
	Queue        string `yaml:"queue" mapstructure:"queue"`
}

// LedgerConfig selects where ledger snapshots are persisted.
type LedgerConfig struct {
	Store    string `yaml:"store" mapstructure:"store" validate:"oneof=none local s3 redis sql"`
	Path     string `yaml:"path" mapstructure:"path" validate:"required_if=Store local"`
	Bucket   string `yaml:"bucket" mapstructure:"bucket" validate:"required_if=Store s3"`
	Region   string `yaml:"region" mapstructure:"region"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
	DSN      string `yaml:"dsn" mapstructure:"dsn" validate:"required_if=Store sql"`
	TTL      string `yaml:"ttl" mapstructure:"ttl"`
	// EncryptionKey seals snapshots of the local and s3 stores.
	EncryptionKey string `yaml:"encryption_key" mapstructure:"encryption_key"`
	Encryption    string `yaml:"encryption" mapstructure:"encryption" validate:"omitempty,oneof=aes-256-gcm chacha20-poly1305"`
}

// ObservabilityConfig configures OpenTelemetry export.
type ObservabilityConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure    bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio" mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Search.ApplyDefaults()
	c.Engine.ApplyDefaults()
	if c.Ledger.Store == "" {
		c.Ledger.Store = StoreNone
	}
	if c.Ledger.Prefix == "" {
		c.Ledger.Prefix = "automl"
	}
	if c.Engine.Kind == EngineDistributed || c.Ledger.Store == StoreRedis {
		c.Redis.Enabled = true
	}
	c.Redis.ApplyDefaults()
	if c.Observability.SampleRatio == 0 {
		c.Observability.SampleRatio = 1
	}
}

// Validate runs struct tag validation and cross-field checks.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	v := validation.New()
	if _, err := ParseMaxTime(c.Search.MaxTime); err != nil {
		v.AddError("search.max_time", err.Error())
	}
	if _, err := c.Engine.Timeout(); err != nil {
		v.AddError("engine.task_timeout", err.Error())
	}
	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			v.AddError("redis", err.Error())
		}
	}
	return v.Err()
}

// ApplyDefaults fills zero values of the search settings.
func (c *SearchConfig) ApplyDefaults() {
	if c.PipelinesPerBatch == 0 {
		c.PipelinesPerBatch = 5
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
}

// MaxDuration parses MaxTime.
func (c *SearchConfig) MaxDuration() (time.Duration, error) {
	return ParseMaxTime(c.MaxTime)
}

// ApplyDefaults fills zero values of the engine settings.
func (c *EngineConfig) ApplyDefaults() {
	if c.Kind == "" {
		c.Kind = EngineSequential
	}
	if c.WorkerBinary == "" {
		c.WorkerBinary = "automl-worker"
	}
	if c.Queue == "" {
		c.Queue = "automl:tasks"
	}
}

// Timeout parses TaskTimeout; empty means no per-task timeout.
func (c *EngineConfig) Timeout() (time.Duration, error) {
	if c.TaskTimeout == "" {
		return 0, nil
	}
	return ParseMaxTime(c.TaskTimeout)
}
