package evaluation

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"io"

	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/objective"
	"github.com/kbukum/automl/pipeline"
	"github.com/kbukum/automl/problem"
	"github.com/kbukum/automl/split"
)

// DefaultThresholdSteps is the number of candidate thresholds tried when a
// task does not set one.
const DefaultThresholdSteps = 100

// Task is one unit of work: cross-validate a configuration. Objectives are
// referenced by name so tasks can cross process boundaries as JSON.
type Task struct {
	ID                   int                    `json:"id"`
	Batch                int                    `json:"batch"`
	Configuration        pipeline.Configuration `json:"configuration"`
	Objective            string                 `json:"objective"`
	AdditionalObjectives []string               `json:"additional_objectives,omitempty"`
	OptimizeThreshold    bool                   `json:"optimize_threshold,omitempty"`
	ThresholdSteps       int                    `json:"threshold_steps,omitempty"`
	// FoldLimit restricts evaluation to the first FoldLimit splits. Zero means all.
	FoldLimit int `json:"fold_limit,omitempty"`
	// ReturnFitted asks for the fitted pipeline of the last scored fold.
	// Only in-process engines honour it.
	ReturnFitted bool `json:"-"`
}

// Objectives resolves the primary and additional objectives by name.
func (t *Task) Objectives() (objective.Objective, []objective.Objective, error) {
	primary, err := objective.Get(t.Objective)
	if err != nil {
		return nil, nil, err
	}
	additional := make([]objective.Objective, 0, len(t.AdditionalObjectives))
	for _, name := range t.AdditionalObjectives {
		o, err := objective.Get(name)
		if err != nil {
			return nil, nil, err
		}
		additional = append(additional, o)
	}
	return primary, additional, nil
}

func (t *Task) thresholdSteps() int {
	if t.ThresholdSteps > 0 {
		return t.ThresholdSteps
	}
	return DefaultThresholdSteps
}

// Workload is everything a task is evaluated against. It is read-only once
// a search starts; remote engines ship it to workers once.
type Workload struct {
	Dataset *data.Dataset  `json:"dataset"`
	Problem problem.Config `json:"problem"`
	Splits  []split.Split  `json:"splits"`
}

// NewWorkload computes the splits of ds once.
func NewWorkload(ds *data.Dataset, cfg problem.Config, splitter split.Splitter) (*Workload, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	splits, err := splitter.Split(ds.NumRows(), ds.Y)
	if err != nil {
		return nil, err
	}
	if len(splits) == 0 {
		return nil, errors.Configurationf("%s produced no splits", splitter.Name())
	}
	return &Workload{Dataset: ds, Problem: cfg, Splits: splits}, nil
}

// Encode writes the workload to w with gob.
func (w *Workload) Encode(out io.Writer) error {
	if err := gob.NewEncoder(out).Encode(w); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// DecodeWorkload reads a workload written by Encode.
func DecodeWorkload(r io.Reader) (*Workload, error) {
	var w Workload
	if err := gob.NewDecoder(r).Decode(&w); err != nil {
		return nil, errors.Dataf("decoding workload: %v", err)
	}
	if err := w.Dataset.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Bytes returns the gob encoding of the workload.
func (w *Workload) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fingerprint is a SHA-256 digest of the encoded workload.
func (w *Workload) Fingerprint() (string, error) {
	raw, err := w.Bytes()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
