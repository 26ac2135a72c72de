package algorithm

import (
	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/pipeline"
)

// Observation is the read-only view of one evaluated configuration the
// orchestrator reports back. Score is normalized so greater is better.
type Observation struct {
	ID            int
	Batch         int
	Configuration pipeline.Configuration
	Score         float64
	Succeeded     bool
}

// Algorithm decides which configurations each batch evaluates.
type Algorithm interface {
	// NextBatch returns the configurations of the next batch. An empty
	// batch means the algorithm has nothing left to propose.
	NextBatch() ([]pipeline.Configuration, error)
	// AddResult reports the outcome of a configuration this algorithm
	// proposed.
	AddResult(obs Observation) error
	// BatchNumber is the number of batches produced so far.
	BatchNumber() int
	// PipelineNumber is the number of configurations produced so far.
	PipelineNumber() int
}

// BestPipelineInfo is the best configuration seen for one family.
type BestPipelineInfo struct {
	ID            int
	Score         float64
	Configuration pipeline.Configuration
}

// Parameters returns a copy of the best configuration's parameters.
func (b BestPipelineInfo) Parameters() map[string]map[string]any {
	return b.Configuration.Clone().Parameters
}

// excluded are the families never searched directly.
var excluded = []component.Family{component.FamilyBaseline, component.FamilyEnsemble, component.FamilyNone}
