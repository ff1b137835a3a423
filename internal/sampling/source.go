// Package sampling provides the seedable random source shared by the generators.
//
// All draws go through gonum's distuv/sampleuv so that a Source seeded with the
// same value always reproduces the same series.
package sampling

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
)

// ErrSampleSize is returned when more distinct indices are requested than exist.
var ErrSampleSize = errors.ValidationError("sample size exceeds population").Build()

// Source is a deterministic random stream. It is not safe for concurrent use;
// give each goroutine its own Source via Derive.
type Source struct {
	seed uint64
	src  rand.Source
	rng  *rand.Rand
}

// NewSource creates a Source. A zero seed is replaced by one taken from the clock.
func NewSource(seed uint64) *Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewPCG(seed, mix(seed))
	return &Source{seed: seed, src: src, rng: rand.New(src)}
}

// Seed returns the effective seed.
func (s *Source) Seed() uint64 { return s.seed }

// Derive returns an independent child Source. The same parent seed and index
// always give the same child.
func (s *Source) Derive(i int) *Source {
	return NewSource(mix(s.seed + uint64(i) + 1))
}

// Normal draws n values from N(mu, sigma).
func (s *Source) Normal(n int, mu, sigma float64) []float64 {
	d := distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

// NormalOne draws a single value from N(mu, sigma).
func (s *Source) NormalOne(mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}.Rand()
}

// Uniform draws from the interval spanned by lo and hi. lo may exceed hi.
func (s *Source) Uniform(lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: s.src}.Rand()
}

// Float64 returns a value in [0, 1).
func (s *Source) Float64() float64 { return s.rng.Float64() }

// IntN returns a value in [0, n). n must be positive.
func (s *Source) IntN(n int) int { return s.rng.IntN(n) }

// IntRange returns a value in [lo, hi], both inclusive.
func (s *Source) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.IntN(hi-lo+1)
}

// Choose returns k distinct indices drawn from [0, n).
func (s *Source) Choose(n, k int) ([]int, error) {
	if k < 0 || k > n {
		return nil, ErrSampleSize.WithContext("population", n).WithContext("k", k)
	}
	idx := make([]int, k)
	if k == 0 {
		return idx, nil
	}
	sampleuv.WithoutReplacement(idx, n, s.src)
	return idx, nil
}

// mix is the splitmix64 finalizer, used to spread nearby seeds apart.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
