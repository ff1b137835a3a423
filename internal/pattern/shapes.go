// Package pattern composes series out of noisy base data with short shaped
// segments (bells, funnels, cylinders) laid over it at random positions.
package pattern

import (
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/foundation/normalization"
	"git.home.luguber.info/inful/synthdata/internal/sampling"
)

// ShapeKind names a built-in shape.
type ShapeKind string

const (
	ShapeBell     ShapeKind = "bell"
	ShapeFunnel   ShapeKind = "funnel"
	ShapeCylinder ShapeKind = "cylinder"
)

// AllShapes lists the built-in shapes.
var AllShapes = []ShapeKind{ShapeBell, ShapeFunnel, ShapeCylinder}

// Shape builds a pattern of the given length on top of N(0, sigma) noise.
type Shape func(src *sampling.Source, length int, amplitude, sigma float64) []float64

// Bell rises linearly from 0 towards amplitude.
func Bell(src *sampling.Source, length int, amplitude, sigma float64) []float64 {
	out := src.Normal(length, 0, sigma)
	for i := range out {
		out[i] += amplitude * float64(i) / float64(length)
	}
	return out
}

// Funnel falls linearly from amplitude towards 0.
func Funnel(src *sampling.Source, length int, amplitude, sigma float64) []float64 {
	out := src.Normal(length, 0, sigma)
	for i := range out {
		out[i] += amplitude * float64(length-1-i) / float64(length)
	}
	return out
}

// Cylinder is a flat plateau at amplitude.
func Cylinder(src *sampling.Source, length int, amplitude, sigma float64) []float64 {
	out := src.Normal(length, 0, sigma)
	for i := range out {
		out[i] += amplitude
	}
	return out
}

var shapes = map[ShapeKind]Shape{
	ShapeBell:     Bell,
	ShapeFunnel:   Funnel,
	ShapeCylinder: Cylinder,
}

var shapeNormalizer = normalization.NewNormalizer("shape", map[string]ShapeKind{
	"bell":     ShapeBell,
	"funnel":   ShapeFunnel,
	"cylinder": ShapeCylinder,
}, "")

// ParseShape resolves a shape name case-insensitively.
func ParseShape(name string) (ShapeKind, error) {
	k, err := shapeNormalizer.Parse(name)
	if err != nil || k == "" {
		return "", errors.ValidationError("unknown shape").
			WithContext("shape", name).
			WithContext("valid", shapeNormalizer.ValidKeys()).
			Build()
	}
	return k, nil
}

// ParseShapes resolves a list of names, dropping duplicates.
func ParseShapes(names []string) ([]ShapeKind, error) {
	out := make([]ShapeKind, 0, len(names))
	seen := make(map[ShapeKind]bool, len(names))
	for _, n := range names {
		k, err := ParseShape(n)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out, nil
}

// Lookup returns the generator function for k.
func Lookup(k ShapeKind) (Shape, bool) {
	s, ok := shapes[k]
	return s, ok
}
