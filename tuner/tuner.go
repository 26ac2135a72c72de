package tuner

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"sort"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/errors"
)

// Names of the tuners New accepts.
const (
	KindGaussianProcess = "gp"
	KindRandom          = "random"
	KindGrid            = "grid"
)

// ErrExhausted is returned by Propose once every point of a finite space has
// been seen.
var ErrExhausted = stderrors.New("tuner search space is exhausted")

// Parameters maps node name -> parameter name -> value.
type Parameters = map[string]map[string]any

// Space maps node name -> parameter name -> range.
type Space map[string]map[string]component.Range

// Tuner proposes parameter assignments for one pipeline from the scores of
// earlier ones. Scores are normalized so greater is better.
type Tuner interface {
	// Add records the score of an evaluated assignment. Values outside the
	// space are rejected.
	Add(params Parameters, score float64) error
	// Propose returns an assignment not seen before, or ErrExhausted.
	Propose() (Parameters, error)
	// Exhausted reports whether a finite space has been fully explored.
	Exhausted() bool
}

// New creates a tuner of the given kind. An empty kind selects the Gaussian
// process tuner.
func New(kind string, space Space, seed int64) (Tuner, error) {
	switch kind {
	case "", KindGaussianProcess:
		return NewGaussianProcess(space, seed), nil
	case KindRandom:
		return NewRandom(space, seed), nil
	case KindGrid:
		return NewGrid(space, DefaultGridPoints), nil
	}
	return nil, errors.Configurationf("unknown tuner %q", kind)
}

// dimension is one tunable parameter.
type dimension struct {
	node  string
	param string
	rng   component.Range
}

// flatten orders the space by node then parameter name.
func flatten(space Space) []dimension {
	var dims []dimension
	for node, params := range space {
		for param, rng := range params {
			dims = append(dims, dimension{node: node, param: param, rng: rng})
		}
	}
	sort.Slice(dims, func(i, j int) bool {
		if dims[i].node != dims[j].node {
			return dims[i].node < dims[j].node
		}
		return dims[i].param < dims[j].param
	})
	return dims
}

// size returns the number of distinct points of the space, or -1 when a
// dimension is continuous or the count overflows.
func size(dims []dimension) int {
	total := 1
	for _, d := range dims {
		var n int
		switch r := d.rng.(type) {
		case component.Integer:
			n = r.Max - r.Min + 1
		case component.Categorical:
			n = len(r.Values)
		default:
			return -1
		}
		if n <= 0 {
			return 0
		}
		if total > math.MaxInt32/n {
			return -1
		}
		total *= n
	}
	return total
}

// space tracks the dimensions of a tuner and the assignments it has seen.
type space struct {
	dims []dimension
	size int
	seen map[string]bool
}

func newSpace(s Space) space {
	dims := flatten(s)
	return space{dims: dims, size: size(dims), seen: make(map[string]bool)}
}

// encode maps an assignment to the unit cube, rejecting values outside the
// space.
func (s *space) encode(params Parameters) ([]float64, error) {
	x := make([]float64, len(s.dims))
	var outside []string
	for i, d := range s.dims {
		v, ok := params[d.node][d.param]
		if !ok || !d.rng.Contains(v) {
			outside = append(outside, fmt.Sprintf("%s.%s=%v not in %s", d.node, d.param, v, d.rng))
			continue
		}
		x[i] = d.rng.Encode(v)
	}
	if len(outside) > 0 {
		return nil, errors.InvalidInput("parameters", fmt.Sprintf("parameters outside the hyperparameter ranges: %v", outside))
	}
	return x, nil
}

func (s *space) decode(x []float64) Parameters {
	out := make(Parameters)
	for i, d := range s.dims {
		if out[d.node] == nil {
			out[d.node] = make(map[string]any)
		}
		out[d.node][d.param] = d.rng.Decode(x[i])
	}
	return out
}

// key identifies an assignment; encoding/json sorts map keys.
func (s *space) key(params Parameters) string {
	values := make([]any, len(s.dims))
	for i, d := range s.dims {
		values[i] = params[d.node][d.param]
	}
	raw, _ := json.Marshal(values)
	return string(raw)
}

func (s *space) mark(params Parameters) bool {
	k := s.key(params)
	if s.seen[k] {
		return false
	}
	s.seen[k] = true
	return true
}

// maxEnumerate bounds the finite spaces walked to find an unseen point.
const maxEnumerate = 4096

// unseen returns the first assignment of a small finite space that has not
// been seen, in grid order.
func (s *space) unseen() (Parameters, bool) {
	if s.size < 0 || s.size > maxEnumerate {
		return nil, false
	}
	values := make([][]any, len(s.dims))
	for i, d := range s.dims {
		values[i] = d.rng.Grid(0)
	}
	cursor := make([]int, len(s.dims))
	for {
		p := make(Parameters)
		for i, d := range s.dims {
			if p[d.node] == nil {
				p[d.node] = make(map[string]any)
			}
			p[d.node][d.param] = values[i][cursor[i]]
		}
		if !s.seen[s.key(p)] {
			return p, true
		}
		i := len(cursor) - 1
		for ; i >= 0; i-- {
			cursor[i]++
			if cursor[i] < len(values[i]) {
				break
			}
			cursor[i] = 0
		}
		if i < 0 {
			return nil, false
		}
	}
}

func (s *space) exhausted() bool {
	return s.size >= 0 && len(s.seen) >= s.size
}
