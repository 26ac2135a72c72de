package tuner

// DefaultGridPoints is the number of values taken from each continuous range.
const DefaultGridPoints = 10

// Grid walks the cartesian product of every range's grid in order, skipping
// assignments already added.
type Grid struct {
	space
	values [][]any
	cursor []int
	done   bool
}

// NewGrid creates a grid tuner taking up to points values per dimension.
func NewGrid(s Space, points int) *Grid {
	if points <= 0 {
		points = DefaultGridPoints
	}
	g := &Grid{space: newSpace(s)}
	g.values = make([][]any, len(g.dims))
	for i, d := range g.dims {
		g.values[i] = d.rng.Grid(points)
		if len(g.values[i]) == 0 {
			g.done = true
		}
	}
	g.cursor = make([]int, len(g.dims))
	return g
}

func (g *Grid) Add(params Parameters, _ float64) error {
	if _, err := g.encode(params); err != nil {
		return err
	}
	g.mark(params)
	return nil
}

func (g *Grid) Propose() (Parameters, error) {
	for !g.done {
		p := g.current()
		g.advance()
		if g.mark(p) {
			return p, nil
		}
	}
	return nil, ErrExhausted
}

// Exhausted reports whether the grid has been walked to the end.
func (g *Grid) Exhausted() bool { return g.done || g.exhausted() }

func (g *Grid) current() Parameters {
	out := make(Parameters)
	for i, d := range g.dims {
		if out[d.node] == nil {
			out[d.node] = make(map[string]any)
		}
		out[d.node][d.param] = g.values[i][g.cursor[i]]
	}
	return out
}

// advance moves the cursor like an odometer, last dimension fastest.
func (g *Grid) advance() {
	for i := len(g.cursor) - 1; i >= 0; i-- {
		g.cursor[i]++
		if g.cursor[i] < len(g.values[i]) {
			return
		}
		g.cursor[i] = 0
	}
	g.done = true
}
