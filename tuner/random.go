package tuner

import (
	"math/rand"
)

// maxAttempts bounds the draws spent looking for an unseen assignment.
const maxAttempts = 10

// Random samples every dimension independently and never proposes the same
// assignment twice.
type Random struct {
	space
	rng *rand.Rand
}

// NewRandom creates a seeded random tuner.
func NewRandom(s Space, seed int64) *Random {
	return &Random{space: newSpace(s), rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Add(params Parameters, _ float64) error {
	if _, err := r.encode(params); err != nil {
		return err
	}
	r.mark(params)
	return nil
}

func (r *Random) Propose() (Parameters, error) {
	for attempt := 0; attempt < maxAttempts && !r.exhausted(); attempt++ {
		p := r.sample()
		if r.mark(p) {
			return p, nil
		}
	}
	if p, ok := r.unseen(); ok {
		r.mark(p)
		return p, nil
	}
	return nil, ErrExhausted
}

func (r *Random) Exhausted() bool { return r.exhausted() }

func (r *Random) sample() Parameters {
	out := make(Parameters)
	for _, d := range r.dims {
		if out[d.node] == nil {
			out[d.node] = make(map[string]any)
		}
		out[d.node][d.param] = d.rng.Sample(r.rng)
	}
	return out
}
