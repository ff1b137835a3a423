package pattern

import (
	"math"

	"git.home.luguber.info/inful/synthdata/internal/foundation"
	"git.home.luguber.info/inful/synthdata/internal/sampling"
)

// Options configures Generate. "Variance" fields are standard deviations.
type Options struct {
	Length                int         `json:"length" yaml:"length"`
	AvgPatternLength      int         `json:"avg_pattern_length" yaml:"avg_pattern_length"`
	AvgAmplitude          float64     `json:"avg_amplitude" yaml:"avg_amplitude"`
	DefaultVariance       float64     `json:"default_variance" yaml:"default_variance"`
	VariancePatternLength float64     `json:"variance_pattern_length" yaml:"variance_pattern_length"`
	VarianceAmplitude     float64     `json:"variance_amplitude" yaml:"variance_amplitude"`
	Shapes                []ShapeKind `json:"shapes" yaml:"shapes"`
	IncludeNegatives      bool        `json:"include_negatives" yaml:"include_negatives"`
}

// DefaultOptions returns the stock configuration: 100 points, patterns of
// about five points, every shape, negatives allowed.
func DefaultOptions() Options {
	return Options{
		Length:                100,
		AvgPatternLength:      5,
		AvgAmplitude:          1,
		DefaultVariance:       1,
		VariancePatternLength: 10,
		VarianceAmplitude:     2,
		Shapes:                AllShapes,
		IncludeNegatives:      true,
	}
}

// Validate reports every invalid field.
func (o Options) Validate() error {
	v := foundation.NewValidation("pattern")
	v.Check(o.Length > 0, "length", o.Length, "must be positive")
	v.Check(o.AvgPatternLength >= 0, "avg_pattern_length", o.AvgPatternLength, "must not be negative")
	v.Check(o.DefaultVariance >= 0, "default_variance", o.DefaultVariance, "must not be negative")
	v.Check(o.VariancePatternLength >= 0, "variance_pattern_length", o.VariancePatternLength, "must not be negative")
	v.Check(o.VarianceAmplitude >= 0, "variance_amplitude", o.VarianceAmplitude, "must not be negative")
	v.Check(len(o.Shapes) > 0, "shapes", nil, "at least one shape is required")
	for _, s := range o.Shapes {
		_, ok := Lookup(s)
		v.Check(ok, "shapes", s, "unknown shape %q", s)
	}
	return v.Err()
}

// Segment describes one placed pattern.
type Segment struct {
	Shape     ShapeKind `json:"shape" yaml:"shape"`
	Start     int       `json:"start" yaml:"start"`
	Length    int       `json:"length" yaml:"length"`
	Amplitude float64   `json:"amplitude" yaml:"amplitude"`
	Negated   bool      `json:"negated" yaml:"negated"`
}

// End is the exclusive end index.
func (s Segment) End() int { return s.Start + s.Length }

// Generate builds a series of opts.Length points. Patterns never overlap and
// never run past the end; the last drawn pattern that would is dropped.
func Generate(opts Options, src *sampling.Source) ([]float64, []Segment, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	data := src.Normal(opts.Length, 0, opts.DefaultVariance)

	nextLength := func() int {
		return max(1, int(math.Ceil(src.NormalOne(float64(opts.AvgPatternLength), opts.VariancePatternLength))))
	}

	var segments []Segment
	start := src.IntRange(0, opts.AvgPatternLength)
	length := nextLength()
	for start+length < opts.Length {
		kind := opts.Shapes[src.IntN(len(opts.Shapes))]
		shape, _ := Lookup(kind)
		amp := src.NormalOne(opts.AvgAmplitude, opts.VarianceAmplitude)

		p := shape(src, length, amp, opts.DefaultVariance)
		negated := opts.IncludeNegatives && src.Float64() > 0.5
		if negated {
			for i := range p {
				p[i] = -p[i]
			}
		}
		copy(data[start:start+length], p)
		segments = append(segments, Segment{Shape: kind, Start: start, Length: length, Amplitude: amp, Negated: negated})

		start += length + src.IntRange(0, opts.AvgPatternLength)
		length = nextLength()
	}
	return data, segments, nil
}
