// Package stats summarizes generated series.
package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics of a series.
type Summary struct {
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// Summarize computes a Summary. Empty input yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{
		Count: len(values),
		Mean:  stat.Mean(values, nil),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

// Range returns Max-Min.
func (s Summary) Range() float64 { return s.Max - s.Min }

// Mean returns the arithmetic mean, or 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// CountOutside counts values strictly below lo or above hi.
func CountOutside(values []float64, lo, hi float64) int {
	n := 0
	for _, v := range values {
		if v < lo || v > hi {
			n++
		}
	}
	return n
}

// Diff returns the indices where a and b differ. Slices of unequal length are
// compared over the shorter one.
func Diff(a, b []float64) []int {
	var idx []int
	for i := range min(len(a), len(b)) {
		if a[i] != b[i] {
			idx = append(idx, i)
		}
	}
	return idx
}
