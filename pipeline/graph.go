package pipeline

import (
	"fmt"

	"github.com/kbukum/automl/errors"
)

// Node is one step of a component graph.
type Node struct {
	// Name is unique within the graph and keys the node's parameters.
	Name string `json:"name" yaml:"name"`
	// Component is the registry lookup key.
	Component string `json:"component" yaml:"component"`
	// DependsOn lists the nodes whose outputs feed this node, in column order.
	// A node with no dependencies reads the raw input features.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Graph is a DAG of nodes with exactly one sink: the estimator.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// Linear builds a chain graph where every component feeds the next. Node
// names equal component names.
func Linear(components ...string) Graph {
	nodes := make([]Node, len(components))
	for i, c := range components {
		nodes[i] = Node{Name: c, Component: c}
		if i > 0 {
			nodes[i].DependsOn = []string{components[i-1]}
		}
	}
	return Graph{Nodes: nodes}
}

// Node returns the node with the given name.
func (g Graph) Node(name string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// Names returns node names in declaration order.
func (g Graph) Names() []string {
	out := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.Name
	}
	return out
}

// BuildLevels uses Kahn's algorithm to group nodes by dependency level.
// Nodes keep declaration order within a level. Returns an error on unknown
// dependencies or cycles.
func BuildLevels(g Graph) ([][]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	dependents := make(map[string][]string)
	order := make(map[string]int, len(g.Nodes))

	for i, n := range g.Nodes {
		if _, dup := inDegree[n.Name]; dup {
			return nil, errors.Configurationf("graph: duplicate node %q", n.Name)
		}
		inDegree[n.Name] = 0
		order[n.Name] = i
	}

	for _, n := range g.Nodes {
		for _, dep := range n.DependsOn {
			if _, ok := inDegree[dep]; !ok {
				return nil, errors.Configurationf("graph: node %q depends on unknown node %q", n.Name, dep)
			}
			inDegree[n.Name]++
			dependents[dep] = append(dependents[dep], n.Name)
		}
	}

	var queue []string
	for _, n := range g.Nodes {
		if inDegree[n.Name] == 0 {
			queue = append(queue, n.Name)
		}
	}

	var levels [][]string
	visited := 0

	for len(queue) > 0 {
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, name := range queue {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sortByOrder(next, order)
		queue = next
	}

	if visited != len(g.Nodes) {
		return nil, errors.Configurationf("graph: cycle detected, processed %d of %d nodes", visited, len(g.Nodes))
	}

	return levels, nil
}

// Order returns a topological order of node names.
func (g Graph) Order() ([]string, error) {
	levels, err := BuildLevels(g)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, level := range levels {
		out = append(out, level...)
	}
	return out, nil
}

// Sink returns the single node nothing depends on.
func (g Graph) Sink() (string, error) {
	used := make(map[string]bool)
	for _, n := range g.Nodes {
		for _, dep := range n.DependsOn {
			used[dep] = true
		}
	}
	var sinks []string
	for _, n := range g.Nodes {
		if !used[n.Name] {
			sinks = append(sinks, n.Name)
		}
	}
	if len(sinks) != 1 {
		return "", errors.Configurationf("graph: expected exactly one final node, found %d %v", len(sinks), sinks)
	}
	return sinks[0], nil
}

// Validate checks the graph is a non-empty acyclic graph with one sink.
func (g Graph) Validate() error {
	if len(g.Nodes) == 0 {
		return errors.Configuration("graph: no nodes")
	}
	for _, n := range g.Nodes {
		if n.Name == "" || n.Component == "" {
			return errors.Configuration("graph: nodes need a name and a component")
		}
	}
	if _, err := BuildLevels(g); err != nil {
		return err
	}
	_, err := g.Sink()
	return err
}

// Clone returns a deep copy.
func (g Graph) Clone() Graph {
	nodes := make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = Node{Name: n.Name, Component: n.Component, DependsOn: append([]string(nil), n.DependsOn...)}
	}
	return Graph{Nodes: nodes}
}

func (g Graph) String() string {
	return fmt.Sprintf("%v", g.Names())
}

func sortByOrder(names []string, order map[string]int) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && order[names[j]] < order[names[j-1]]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}
