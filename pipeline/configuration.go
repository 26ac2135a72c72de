package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/problem"
)

// Configuration identifies a candidate: a component graph and a parameter
// assignment per node. It is immutable once submitted; use the With methods
// to derive new configurations.
type Configuration struct {
	Name        string                    `json:"name"`
	Family      component.Family          `json:"family"`
	ProblemType problem.Type              `json:"problem_type"`
	Graph       Graph                     `json:"graph"`
	Parameters  map[string]map[string]any `json:"parameters"`
}

// Estimator returns the component name of the final node.
func (c Configuration) Estimator() string {
	sink, err := c.Graph.Sink()
	if err != nil {
		return ""
	}
	n, _ := c.Graph.Node(sink)
	return n.Component
}

// EstimatorNode returns the name of the final node.
func (c Configuration) EstimatorNode() string {
	sink, _ := c.Graph.Sink()
	return sink
}

// Fingerprint is a SHA-256 over the canonical JSON of graph and parameters.
// encoding/json sorts map keys and prints 3 and 3.0 alike, so equal
// assignments collide regardless of how the numbers were produced.
func (c Configuration) Fingerprint() string {
	raw, err := json.Marshal(struct {
		Graph      Graph                     `json:"graph"`
		Parameters map[string]map[string]any `json:"parameters"`
	}{c.Graph, nonEmpty(c.Parameters)})
	if err != nil {
		raw = []byte(c.Name)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	out := c
	out.Graph = c.Graph.Clone()
	out.Parameters = copyParameters(c.Parameters)
	return out
}

// WithParameters returns a copy with params merged into the node's assignment.
func (c Configuration) WithParameters(node string, params map[string]any) Configuration {
	out := c.Clone()
	if out.Parameters == nil {
		out.Parameters = make(map[string]map[string]any)
	}
	out.Parameters[node] = component.Merge(out.Parameters[node], params)
	return out
}

// NodeParameters returns a copy of one node's assignment.
func (c Configuration) NodeParameters(node string) map[string]any {
	return component.CopyParams(c.Parameters[node])
}

func copyParameters(in map[string]map[string]any) map[string]map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]map[string]any, len(in))
	for node, params := range in {
		out[node] = component.CopyParams(params)
	}
	return out
}

// nonEmpty drops nodes without parameters so {} and missing hash alike.
func nonEmpty(in map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(in))
	for node, params := range in {
		if len(params) > 0 {
			out[node] = params
		}
	}
	return out
}
