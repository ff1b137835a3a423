package timeseries

import (
	"slices"

	"git.home.luguber.info/inful/synthdata/internal/stats"
)

// AnomalyOptions controls point anomalies.
type AnomalyOptions struct {
	// Fraction of points to replace, in (0, 1).
	Fraction float64 `json:"fraction" yaml:"fraction"`
	// Scale multiplies the value range of the normal data.
	Scale float64 `json:"scale" yaml:"scale"`
	// OneSided keeps anomalies above the normal minimum.
	OneSided bool `json:"one_sided" yaml:"one_sided"`
}

// ChunkOptions controls grouped anomalies.
type ChunkOptions struct {
	Chunks   int     `json:"chunks" yaml:"chunks"`
	Fraction float64 `json:"fraction" yaml:"fraction"`
	Scale    float64 `json:"scale" yaml:"scale"`
	OneSided bool    `json:"one_sided" yaml:"one_sided"`
}

func checkAnomaly(fraction, scale float64) error {
	if fraction <= 0 || fraction >= 1 {
		return ErrInvalidFraction.WithContext("fraction", fraction)
	}
	if scale <= 0 {
		return ErrInvalidScale.WithContext("scale", scale)
	}
	return nil
}

// anomalyValue draws one anomalous value centred on base.
func (g *Generator) anomalyValue(base, lo, r, scale float64, oneSided bool) float64 {
	if oneSided {
		return base + g.src.Uniform(lo, scale*r)
	}
	return base + g.src.Uniform(-scale*r, scale*r)
}

// Anomalize replaces int(Size*Fraction) randomly chosen points of the normal
// stage and stores the result as the anomaly stage.
func (g *Generator) Anomalize(opts AnomalyOptions) (Frame, error) {
	normal, ok := g.data[StageNormal]
	if !ok {
		return Frame{}, ErrNotInitialized.WithContext("stage", string(StageNormal))
	}
	if err := checkAnomaly(opts.Fraction, opts.Scale); err != nil {
		return Frame{}, err
	}

	out := slices.Clone(normal)
	lo, _, r := span(out)
	k := int(float64(len(out)) * opts.Fraction)
	idx, err := g.src.Choose(len(out), k)
	if err != nil {
		return Frame{}, err
	}
	for _, i := range idx {
		out[i] = g.anomalyValue(g.loc, lo, r, opts.Scale, opts.OneSided)
	}
	slices.Sort(idx)
	g.setAnomaly(out, idx)
	return g.Frame(StageAnomaly)
}

// ChunkAnomalize splits the series into opts.Chunks equal segments and puts a
// contiguous run of anomalies around the middle of each one. The trailing
// Size%Chunks points are never touched.
func (g *Generator) ChunkAnomalize(opts ChunkOptions) (Frame, error) {
	normal, ok := g.data[StageNormal]
	if !ok {
		return Frame{}, ErrNotInitialized.WithContext("stage", string(StageNormal))
	}
	if err := checkAnomaly(opts.Fraction, opts.Scale); err != nil {
		return Frame{}, err
	}
	size := len(normal)
	if opts.Chunks <= 0 || opts.Chunks > size {
		return Frame{}, ErrInvalidChunks.WithContext("chunks", opts.Chunks).WithContext("size", size)
	}

	out := slices.Clone(normal)
	mean := stats.Mean(normal)
	lo, _, r := span(normal)

	k := int(float64(size) * opts.Fraction)
	per, rem := k/opts.Chunks, k%opts.Chunks
	seg := size / opts.Chunks

	idx := make([]int, 0, k)
	for c := range opts.Chunks {
		count := per
		if c < rem {
			count++
		}
		count = min(count, seg)
		if count == 0 {
			continue
		}
		first := c * seg
		start := first + seg/2 - count/2
		start = max(first, min(start, first+seg-count))
		for i := start; i < start+count; i++ {
			out[i] = g.anomalyValue(mean, lo, r, opts.Scale, opts.OneSided)
			idx = append(idx, i)
		}
	}
	g.setAnomaly(out, idx)
	return g.Frame(StageAnomaly)
}

func (g *Generator) setAnomaly(values []float64, idx []int) {
	g.data[StageAnomaly] = values
	g.anomalyIdx = idx
	delete(g.data, StageDrifted)
	g.driftIdx = -1
}
