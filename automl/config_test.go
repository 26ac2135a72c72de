package automl_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kbukum/automl/automl"
	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/components"
	"github.com/kbukum/automl/config"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
	"github.com/kbukum/automl/testutil"
)

// --- Config tests ---

func TestConfig_Defaults(t *testing.T) {
	cfg := automl.Config{Problem: regression}
	cfg.ApplyDefaults()
	if cfg.MaxBatches != automl.DefaultMaxBatches {
		t.Errorf("expected max batches %d without other criteria, got %d", automl.DefaultMaxBatches, cfg.MaxBatches)
	}
	if cfg.PipelinesPerBatch != 5 || cfg.Folds != 3 || cfg.Tuner != "gp" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Engine.Kind != config.EngineSequential {
		t.Errorf("expected sequential engine, got %s", cfg.Engine.Kind)
	}

	timed := automl.Config{Problem: regression, MaxTime: time.Minute}
	timed.ApplyDefaults()
	if timed.MaxBatches != 0 {
		t.Errorf("max time alone should not add a batch limit, got %d", timed.MaxBatches)
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := map[string]automl.Config{
		"negative batches": {Problem: regression, MaxBatches: -1},
		"one fold":         {Problem: regression, Folds: 1},
		"unknown tuner":    {Problem: regression, Tuner: "bayes"},
		"negative time":    {Problem: regression, MaxTime: -time.Second},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			cfg.ApplyDefaults()
			assertCode(t, cfg.Validate(), errors.ErrCodeConfiguration)
		})
	}
}

func TestConfigFrom(t *testing.T) {
	fc := &config.Config{
		Problem: config.ProblemConfig{Type: "regression"},
		Search: config.SearchConfig{
			Objective:       "R2",
			MaxBatches:      4,
			MaxTime:         "2 mins",
			RandomSeed:      7,
			AllowedFamilies: []string{"linear_model"},
		},
	}
	fc.ApplyDefaults()
	cfg, err := automl.ConfigFrom(fc)
	if err != nil {
		t.Fatalf("ConfigFrom: %v", err)
	}
	if cfg.Problem.Type != problem.Regression || cfg.Objective != "R2" {
		t.Errorf("unexpected problem %+v objective %s", cfg.Problem, cfg.Objective)
	}
	if cfg.MaxTime != 2*time.Minute || cfg.MaxBatches != 4 || cfg.Seed != 7 {
		t.Errorf("unexpected criteria %+v", cfg)
	}
	if len(cfg.AllowedFamilies) != 1 || cfg.AllowedFamilies[0] != component.FamilyLinearModel {
		t.Errorf("unexpected families %v", cfg.AllowedFamilies)
	}
}

func TestConfigFrom_InvalidMaxTime(t *testing.T) {
	fc := &config.Config{Problem: config.ProblemConfig{Type: "regression"}, Search: config.SearchConfig{MaxTime: "3 fortnights"}}
	_, err := automl.ConfigFrom(fc)
	assertCode(t, err, errors.ErrCodeConfiguration)
}

func TestConfigFrom_GraphsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphs.yaml")
	doc := `
pipelines:
  - name: plain linear
    family: linear_model
    nodes:
      - component: ` + components.LinearRegressorName + `
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write graphs: %v", err)
	}
	fc := &config.Config{
		Problem: config.ProblemConfig{Type: "regression"},
		Search:  config.SearchConfig{Objective: "MAE", MaxBatches: 1, AllowedGraphsFile: path},
	}
	fc.ApplyDefaults()
	cfg, err := automl.ConfigFrom(fc)
	if err != nil {
		t.Fatalf("ConfigFrom: %v", err)
	}
	if len(cfg.AllowedGraphs) != 1 {
		t.Fatalf("expected one graph, got %d", len(cfg.AllowedGraphs))
	}

	s := start(t, testutil.Regression(60, 0.1, 3), cfg)
	run(t, s)
	names := map[string]bool{}
	for _, r := range s.Results() {
		names[r.Configuration.Name] = true
	}
	if !names["plain linear"] {
		t.Errorf("graph from file was not searched, got %v", names)
	}
}
