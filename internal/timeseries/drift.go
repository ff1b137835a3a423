package timeseries

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"

	"git.home.luguber.info/inful/synthdata/internal/stats"
)

// DriftOptions controls the change applied after the change point.
type DriftOptions struct {
	// PctMean shifts the tail by this percentage of its mean.
	PctMean float64 `json:"pct_mean" yaml:"pct_mean"`
	// PctSpread scales the mean shift by (1+PctSpread/100). With WidenTail
	// it instead widens (or narrows, when negative) the tail around its mean.
	PctSpread float64 `json:"pct_spread" yaml:"pct_spread"`
	WidenTail bool    `json:"widen_tail,omitempty" yaml:"widen_tail,omitempty"`
	// At is the change point; nil means the timeline midpoint.
	At *time.Time `json:"at,omitempty" yaml:"at,omitempty"`
}

// Drift shifts every value from the change point onwards. It starts from the
// anomaly stage when present, otherwise from the normal stage.
//
// For the tail with mean m each value v becomes
//
//	v + m*(PctMean/100)*(1+PctSpread/100)
//
// or, with WidenTail,
//
//	m + (v-m)*(1+PctSpread/100) + m*PctMean/100
func (g *Generator) Drift(opts DriftOptions) (Frame, error) {
	input, ok := g.data[StageAnomaly]
	if !ok {
		input, ok = g.data[StageNormal]
	}
	if !ok {
		return Frame{}, ErrNotInitialized.WithContext("stage", string(StageNormal))
	}

	at := g.tl.Midpoint()
	if opts.At != nil {
		at = *opts.At
		if at.Before(g.tl.Start) || at.After(g.tl.End) {
			return Frame{}, ErrInvalidChangePoint.
				WithContext("at", at.Format(TimeLayout)).
				WithContext("start", g.tl.Start.Format(TimeLayout)).
				WithContext("end", g.tl.End.Format(TimeLayout))
		}
	}
	idx := min(g.tl.IndexAt(at), len(input))

	out := slices.Clone(input)
	tail := out[idx:]
	if len(tail) > 0 {
		m := stats.Mean(tail)
		spread := 1 + opts.PctSpread/100
		shift := m * opts.PctMean / 100
		if opts.WidenTail {
			for i, v := range tail {
				tail[i] = m + (v-m)*spread + shift
			}
		} else {
			floats.AddConst(shift*spread, tail)
		}
	}

	g.data[StageDrifted] = out
	g.driftIdx = idx
	g.driftAt = at
	return g.Frame(StageDrifted)
}
