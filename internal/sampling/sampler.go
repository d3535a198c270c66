// Package sampling provides the discrete random draws used by the occurrence
// simulators and the seeded streams they draw from.
package sampling

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Source yields uniform values in [0, 1). *rand.Rand from math/rand and
// math/rand/v2 both satisfy it.
type Source interface {
	Float64() float64
}

// Bernoulli returns true with probability p.
func Bernoulli(src Source, p float64) bool {
	return src.Float64() < p
}

// Binomial counts successes in n independent Bernoulli(p) trials. Each trial
// consumes one draw; n <= 0 consumes none.
func Binomial(src Source, n int, p float64) int {
	k := 0
	for i := 0; i < n; i++ {
		if src.Float64() < p {
			k++
		}
	}
	return k
}

// Categorical samples an index with probability proportional to its weight.
// The zero value has no outcomes and must not be sampled.
type Categorical struct {
	cum []float64
}

// ErrNoOutcomes is returned when every weight is zero.
var ErrNoOutcomes = errors.New("categorical: all weights are zero")

// NewCategorical builds a sampler from non-negative weights.
func NewCategorical(weights []float64) (Categorical, error) {
	cum := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return Categorical{}, fmt.Errorf("categorical: weight %d is %v", i, w)
		}
		total += w
		cum[i] = total
	}
	if total == 0 {
		return Categorical{}, ErrNoOutcomes
	}
	return Categorical{cum: cum}, nil
}

// NewCategoricalCounts builds a sampler weighted by integer counts.
func NewCategoricalCounts(counts []int) (Categorical, error) {
	weights := make([]float64, len(counts))
	for i, n := range counts {
		weights[i] = float64(n)
	}
	return NewCategorical(weights)
}

// Len returns the number of outcomes, including zero-weight ones.
func (c Categorical) Len() int {
	return len(c.cum)
}

// Total returns the sum of the weights.
func (c Categorical) Total() float64 {
	if len(c.cum) == 0 {
		return 0
	}
	return c.cum[len(c.cum)-1]
}

// Sample draws one uniform value and returns the first index whose cumulative
// weight exceeds it. Zero-weight outcomes are never returned.
func (c Categorical) Sample(src Source) int {
	u := src.Float64() * c.Total()
	i := sort.Search(len(c.cum), func(i int) bool { return c.cum[i] > u })
	if i == len(c.cum) {
		// u rounded up to the total; fall back to the last outcome with weight.
		i = len(c.cum) - 1
		for i > 0 && c.cum[i] == c.cum[i-1] {
			i--
		}
	}
	return i
}
