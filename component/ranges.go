package component

import (
	"fmt"
	"math"
	"math/rand"
)

// Range is the search space of one hyperparameter. Tuners work on the unit
// interval: Encode maps a value into [0, 1] and Decode maps back.
type Range interface {
	Contains(v any) bool
	Sample(rng *rand.Rand) any
	Encode(v any) float64
	Decode(u float64) any
	// Grid returns up to n evenly spread values.
	Grid(n int) []any
	String() string
}

// Integer is an inclusive integer range.
type Integer struct {
	Min, Max int
}

func (r Integer) Contains(v any) bool {
	f, ok := toFloat(v)
	return ok && f == math.Trunc(f) && f >= float64(r.Min) && f <= float64(r.Max)
}

func (r Integer) Sample(rng *rand.Rand) any {
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

func (r Integer) Encode(v any) float64 {
	f, _ := toFloat(v)
	if r.Max == r.Min {
		return 0
	}
	return clampUnit((f - float64(r.Min)) / float64(r.Max-r.Min))
}

func (r Integer) Decode(u float64) any {
	return r.Min + int(math.Round(clampUnit(u)*float64(r.Max-r.Min)))
}

func (r Integer) Grid(n int) []any {
	span := r.Max - r.Min + 1
	if n <= 0 || n > span {
		n = span
	}
	out := make([]any, 0, n)
	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		u := 0.0
		if n > 1 {
			u = float64(i) / float64(n-1)
		}
		v := r.Decode(u).(int)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func (r Integer) String() string { return fmt.Sprintf("Integer(%d, %d)", r.Min, r.Max) }

// Real is an inclusive float range, optionally sampled on a log scale.
type Real struct {
	Min, Max float64
	Log      bool
}

func (r Real) Contains(v any) bool {
	f, ok := toFloat(v)
	return ok && f >= r.Min && f <= r.Max
}

func (r Real) Sample(rng *rand.Rand) any {
	return r.Decode(rng.Float64())
}

func (r Real) Encode(v any) float64 {
	f, _ := toFloat(v)
	if r.Max == r.Min {
		return 0
	}
	if r.Log {
		return clampUnit((math.Log(f) - math.Log(r.Min)) / (math.Log(r.Max) - math.Log(r.Min)))
	}
	return clampUnit((f - r.Min) / (r.Max - r.Min))
}

func (r Real) Decode(u float64) any {
	u = clampUnit(u)
	if r.Log {
		return math.Exp(math.Log(r.Min) + u*(math.Log(r.Max)-math.Log(r.Min)))
	}
	return r.Min + u*(r.Max-r.Min)
}

func (r Real) Grid(n int) []any {
	if n <= 1 {
		return []any{r.Decode(0)}
	}
	out := make([]any, n)
	for i := range out {
		out[i] = r.Decode(float64(i) / float64(n-1))
	}
	return out
}

func (r Real) String() string {
	if r.Log {
		return fmt.Sprintf("Real(%g, %g, log)", r.Min, r.Max)
	}
	return fmt.Sprintf("Real(%g, %g)", r.Min, r.Max)
}

// Categorical is a finite set of values.
type Categorical struct {
	Values []any
}

func (r Categorical) Contains(v any) bool {
	return r.index(v) >= 0
}

func (r Categorical) Sample(rng *rand.Rand) any {
	return r.Values[rng.Intn(len(r.Values))]
}

// Encode places category i at the centre of the i-th of len(Values) equal bins.
func (r Categorical) Encode(v any) float64 {
	i := r.index(v)
	if i < 0 || len(r.Values) == 0 {
		return 0
	}
	return (float64(i) + 0.5) / float64(len(r.Values))
}

func (r Categorical) Decode(u float64) any {
	i := int(clampUnit(u) * float64(len(r.Values)))
	if i >= len(r.Values) {
		i = len(r.Values) - 1
	}
	return r.Values[i]
}

func (r Categorical) Grid(n int) []any {
	if n <= 0 || n > len(r.Values) {
		n = len(r.Values)
	}
	return append([]any(nil), r.Values[:n]...)
}

func (r Categorical) String() string { return fmt.Sprintf("Categorical(%v)", r.Values) }

func (r Categorical) index(v any) int {
	for i, c := range r.Values {
		if Equal(c, v) {
			return i
		}
	}
	return -1
}

func clampUnit(u float64) float64 {
	switch {
	case math.IsNaN(u) || u < 0:
		return 0
	case u > 1:
		return 1
	}
	return u
}
