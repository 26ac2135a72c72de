package automl

import (
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/pipeline"
)

// ConfigurationView describes a configuration about to be evaluated.
type ConfigurationView struct {
	ID            int
	Batch         int
	Fingerprint   string
	Configuration pipeline.Configuration
}

// Callbacks observe a search. They run synchronously on the goroutine
// calling Step and receive copies, so they cannot change the search.
// Nil callbacks are skipped.
type Callbacks struct {
	// BeforeEvaluation runs before a configuration is submitted.
	BeforeEvaluation func(ConfigurationView)
	// AfterResult runs after a result was appended to the ledger.
	AfterResult func(evaluation.Result)
	// OnError runs when a fatal error ends the search.
	OnError func(error)
}

func (c Callbacks) beforeEvaluation(id, batch int, cfg pipeline.Configuration) {
	if c.BeforeEvaluation == nil {
		return
	}
	c.BeforeEvaluation(ConfigurationView{
		ID:            id,
		Batch:         batch,
		Fingerprint:   cfg.Fingerprint(),
		Configuration: cfg.Clone(),
	})
}

func (c Callbacks) afterResult(r *evaluation.Result) {
	if c.AfterResult == nil {
		return
	}
	c.AfterResult(*r.WithoutFitted())
}

func (c Callbacks) onError(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}
