package pipeline

import (
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

// Definition is a YAML-declared pipeline graph. Includes name other
// definitions whose nodes are prepended, so shared preprocessing can be
// declared once.
type Definition struct {
	Name       string                    `yaml:"name"`
	Family     component.Family          `yaml:"family"`
	Includes   []string                  `yaml:"includes,omitempty"`
	Nodes      []Node                    `yaml:"nodes"`
	Parameters map[string]map[string]any `yaml:"parameters,omitempty"`
}

// Configuration turns a resolved definition into a search configuration.
func (d Definition) Configuration(t problem.Type) Configuration {
	nodes := make([]Node, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.Name == "" {
			n.Name = n.Component
		}
		nodes[i] = n
	}
	cfg := Configuration{
		Name:        d.Name,
		Family:      d.Family,
		ProblemType: t,
		Graph:       Graph{Nodes: nodes},
		Parameters:  copyParameters(d.Parameters),
	}
	return cfg.Clone()
}

// Loader loads pipeline definitions by name.
type Loader interface {
	Load(name string) (*Definition, error)
}

// FileLoader loads definitions from YAML files on disk.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader that searches the given directories.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

// Load searches for {name}.yaml and {name}.yml in each directory and its
// direct subdirectories.
func (l *FileLoader) Load(name string) (*Definition, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			if d, err := loadDefinitionFile(path); err == nil {
				return d, nil
			}

			matches, _ := filepath.Glob(filepath.Join(dir, "*", name+ext))
			for _, match := range matches {
				if d, err := loadDefinitionFile(match); err == nil {
					return d, nil
				}
			}
		}
	}
	return nil, errors.Configurationf("pipeline definition %q not found in %v", name, l.dirs)
}

func loadDefinitionFile(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Definition
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, errors.Configurationf("parsing %s: %v", path, err)
	}
	return &d, nil
}

// LoadGraphs reads a file holding a list of definitions under "pipelines"
// and resolves their includes against the file's directory.
func LoadGraphs(path string) ([]Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Configurationf("reading %s: %v", path, err)
	}
	var file struct {
		Pipelines []Definition `yaml:"pipelines"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Configurationf("parsing %s: %v", path, err)
	}
	if len(file.Pipelines) == 0 {
		return nil, errors.Configurationf("%s declares no pipelines", path)
	}

	loader := NewFileLoader(filepath.Dir(path))
	out := make([]Definition, 0, len(file.Pipelines))
	for i := range file.Pipelines {
		d, err := Resolve(&file.Pipelines[i], loader)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// Resolve flattens includes recursively. Included nodes come first; on a
// name clash the first node wins. Parameters of the including definition
// override included ones.
func Resolve(d *Definition, loader Loader) (*Definition, error) {
	stack := make(map[string]bool)
	resolved := make(map[string]bool)
	return resolve(d, loader, stack, resolved)
}

func resolve(d *Definition, loader Loader, stack, resolved map[string]bool) (*Definition, error) {
	if stack[d.Name] {
		return nil, errors.Configurationf("circular include detected for pipeline %q", d.Name)
	}
	stack[d.Name] = true
	defer delete(stack, d.Name)

	out := &Definition{
		Name:       d.Name,
		Family:     d.Family,
		Parameters: make(map[string]map[string]any),
	}
	seen := make(map[string]bool)
	add := func(n Node) {
		if n.Name == "" {
			n.Name = n.Component
		}
		if seen[n.Name] {
			return
		}
		seen[n.Name] = true
		out.Nodes = append(out.Nodes, n)
	}

	for _, includeName := range d.Includes {
		if resolved[includeName] {
			continue
		}
		sub, err := loader.Load(includeName)
		if err != nil {
			return nil, errors.Configurationf("loading include %q: %v", includeName, err)
		}
		subResolved, err := resolve(sub, loader, stack, resolved)
		if err != nil {
			return nil, err
		}
		for _, n := range subResolved.Nodes {
			add(n)
		}
		for node, params := range subResolved.Parameters {
			out.Parameters[node] = component.Merge(out.Parameters[node], params)
		}
	}

	for _, n := range d.Nodes {
		add(n)
	}
	for node, params := range d.Parameters {
		out.Parameters[node] = component.Merge(out.Parameters[node], params)
	}

	resolved[d.Name] = true
	return out, nil
}
