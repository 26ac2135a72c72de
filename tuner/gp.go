package tuner

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GP tuning defaults.
const (
	DefaultInitialPoints = 5
	DefaultCandidates    = 500
	DefaultLengthScale   = 0.25
	DefaultNoise         = 1e-4
	DefaultXi            = 0.01
)

// GaussianProcess is a sequential model-based tuner. It fits a Gaussian
// process with an RBF kernel to the scores seen so far and proposes the
// random candidate with the highest expected improvement. Until
// InitialPoints scores are known it samples at random.
type GaussianProcess struct {
	space
	rng *rand.Rand

	InitialPoints int
	Candidates    int
	LengthScale   float64
	Noise         float64
	Xi            float64

	xs [][]float64
	ys []float64
}

// NewGaussianProcess creates a seeded GP tuner with the default settings.
func NewGaussianProcess(s Space, seed int64) *GaussianProcess {
	return &GaussianProcess{
		space:         newSpace(s),
		rng:           rand.New(rand.NewSource(seed)),
		InitialPoints: DefaultInitialPoints,
		Candidates:    DefaultCandidates,
		LengthScale:   DefaultLengthScale,
		Noise:         DefaultNoise,
		Xi:            DefaultXi,
	}
}

func (g *GaussianProcess) Add(params Parameters, score float64) error {
	x, err := g.encode(params)
	if err != nil {
		return err
	}
	g.mark(params)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil
	}
	g.xs = append(g.xs, x)
	g.ys = append(g.ys, score)
	return nil
}

func (g *GaussianProcess) Exhausted() bool { return g.exhausted() }

func (g *GaussianProcess) Propose() (Parameters, error) {
	if g.exhausted() {
		return nil, ErrExhausted
	}
	if len(g.dims) > 0 && len(g.ys) > 0 && len(g.ys) >= g.InitialPoints {
		if p, ok := g.acquire(); ok {
			return p, nil
		}
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		p := g.decode(g.randomPoint())
		if g.mark(p) {
			return p, nil
		}
	}
	if p, ok := g.unseen(); ok {
		g.mark(p)
		return p, nil
	}
	return nil, ErrExhausted
}

func (g *GaussianProcess) randomPoint() []float64 {
	x := make([]float64, len(g.dims))
	for i := range x {
		x[i] = g.rng.Float64()
	}
	return x
}

// acquire maximizes expected improvement over random candidates. It reports
// false when the surrogate cannot be fitted or every candidate was seen.
func (g *GaussianProcess) acquire() (Parameters, bool) {
	model, ok := g.fit()
	if !ok {
		return nil, false
	}
	best := floats.Max(model.y)

	var (
		proposal Parameters
		bestEI   = math.Inf(-1)
	)
	for c := 0; c < g.Candidates; c++ {
		x := g.randomPoint()
		p := g.decode(x)
		if g.seen[g.key(p)] {
			continue
		}
		mu, sigma := model.predict(x)
		if ei := expectedImprovement(mu, sigma, best, g.Xi); ei > bestEI {
			bestEI, proposal = ei, p
		}
	}
	if proposal == nil || !g.mark(proposal) {
		return nil, false
	}
	return proposal, true
}

// surrogate is a fitted Gaussian process over standardized scores.
type surrogate struct {
	xs          [][]float64
	y           []float64
	alpha       *mat.VecDense
	chol        mat.Cholesky
	lengthScale float64
}

func (g *GaussianProcess) fit() (*surrogate, bool) {
	n := len(g.xs)
	mean, std := stat.MeanStdDev(g.ys, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	y := make([]float64, n)
	for i, v := range g.ys {
		y[i] = (v - mean) / std
	}

	s := &surrogate{xs: g.xs, y: y, lengthScale: g.LengthScale}
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := s.kernel(g.xs[i], g.xs[j])
			if i == j {
				v += g.Noise
			}
			k.SetSym(i, j, v)
		}
	}
	if ok := s.chol.Factorize(k); !ok {
		return nil, false
	}
	s.alpha = mat.NewVecDense(n, nil)
	if err := s.chol.SolveVecTo(s.alpha, mat.NewVecDense(n, y)); err != nil {
		return nil, false
	}
	return s, true
}

func (s *surrogate) kernel(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-d * d / (2 * s.lengthScale * s.lengthScale))
}

// predict returns the posterior mean and standard deviation at x.
func (s *surrogate) predict(x []float64) (float64, float64) {
	n := len(s.xs)
	ks := mat.NewVecDense(n, nil)
	for i, xi := range s.xs {
		ks.SetVec(i, s.kernel(x, xi))
	}
	mu := mat.Dot(ks, s.alpha)

	v := mat.NewVecDense(n, nil)
	if err := s.chol.SolveVecTo(v, ks); err != nil {
		return mu, 0
	}
	variance := 1 - mat.Dot(ks, v)
	if variance <= 0 {
		return mu, 0
	}
	return mu, math.Sqrt(variance)
}

// expectedImprovement of a normal posterior over best, for maximization.
func expectedImprovement(mu, sigma, best, xi float64) float64 {
	improvement := mu - best - xi
	if sigma == 0 {
		return math.Max(improvement, 0)
	}
	z := improvement / sigma
	return improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
}
