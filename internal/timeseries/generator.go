package timeseries

import (
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"git.home.luguber.info/inful/synthdata/internal/sampling"
	"git.home.luguber.info/inful/synthdata/internal/stats"
)

// Params are the parameters a Generator has been run with so far.
type Params struct {
	Start          time.Time      `json:"start" yaml:"start"`
	End            time.Time      `json:"end" yaml:"end"`
	ProcessMinutes float64        `json:"process_minutes" yaml:"process_minutes"`
	Size           int            `json:"size" yaml:"size"`
	Loc            float64        `json:"loc" yaml:"loc"`
	Scale          float64        `json:"scale" yaml:"scale"`
	Seed           uint64         `json:"seed" yaml:"seed"`
	Anomalies      int            `json:"anomalies" yaml:"anomalies"`
	DriftAt        *time.Time     `json:"drift_at,omitempty" yaml:"drift_at,omitempty"`
	Normal         *stats.Summary `json:"normal,omitempty" yaml:"normal,omitempty"`
}

// Generator produces the normal, anomaly and drifted stages of one series.
// It is not safe for concurrent use.
type Generator struct {
	tl    Timeline
	src   *sampling.Source
	times []time.Time

	loc   float64
	scale float64

	data       map[Stage][]float64
	anomalyIdx []int
	driftIdx   int
	driftAt    time.Time
}

// NewGenerator validates tl and returns a Generator drawing from src.
func NewGenerator(tl Timeline, src *sampling.Source) (*Generator, error) {
	if err := tl.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = sampling.NewSource(0)
	}
	return &Generator{
		tl:       tl,
		src:      src,
		times:    tl.Times(),
		data:     make(map[Stage][]float64, len(Stages)),
		driftIdx: -1,
	}, nil
}

// Timeline returns the generator's timeline.
func (g *Generator) Timeline() Timeline { return g.tl }

// Size is the number of points in every stage.
func (g *Generator) Size() int { return len(g.times) }

// NormalProcess draws Size() values from N(loc, scale). Running it again
// replaces the normal stage and discards later stages.
func (g *Generator) NormalProcess(loc, scale float64) (Frame, error) {
	if scale < 0 {
		return Frame{}, ErrInvalidSigma.WithContext("scale", scale)
	}
	g.loc, g.scale = loc, scale
	g.data = map[Stage][]float64{StageNormal: g.src.Normal(g.Size(), loc, scale)}
	g.anomalyIdx = nil
	g.driftIdx = -1
	g.driftAt = time.Time{}
	return g.Frame(StageNormal)
}

// Has reports whether stage has been generated.
func (g *Generator) Has(stage Stage) bool {
	_, ok := g.data[stage]
	return ok
}

// Frame returns a copy of the stored stage.
func (g *Generator) Frame(stage Stage) (Frame, error) {
	v, ok := g.data[stage]
	if !ok {
		return Frame{}, ErrNotInitialized.WithContext("stage", string(stage))
	}
	return newFrame(stage, g.times, v), nil
}

// Values returns the raw values of stage, or nil when it has not run.
func (g *Generator) Values(stage Stage) []float64 {
	return g.data[stage]
}

// Times returns the shared time column.
func (g *Generator) Times() []time.Time { return g.times }

// AnomalyIndices returns the positions touched by the last anomaly stage.
func (g *Generator) AnomalyIndices() []int { return g.anomalyIdx }

// DriftIndex returns the first drifted index, or -1 before Drift ran.
func (g *Generator) DriftIndex() int { return g.driftIdx }

// Params returns the parameters used so far.
func (g *Generator) Params() Params {
	p := Params{
		Start:          g.tl.Start,
		End:            g.tl.End,
		ProcessMinutes: g.tl.ProcessMinutes(),
		Size:           g.Size(),
		Loc:            g.loc,
		Scale:          g.scale,
		Seed:           g.src.Seed(),
		Anomalies:      len(g.anomalyIdx),
	}
	if g.driftIdx >= 0 {
		at := g.driftAt
		p.DriftAt = &at
	}
	if v, ok := g.data[StageNormal]; ok {
		s := stats.Summarize(v)
		p.Normal = &s
	}
	return p
}

func (g *Generator) String() string {
	var b strings.Builder
	b.WriteString("Parameters\n")
	b.WriteString(strings.Repeat("=", 30) + "\n")
	fmt.Fprintf(&b, "Start time: %s\n", g.tl.Start.Format(TimeLayout))
	fmt.Fprintf(&b, "End time: %s\n", g.tl.End.Format(TimeLayout))
	fmt.Fprintf(&b, "Process time (minutes): %g\n", g.tl.ProcessMinutes())
	if g.Has(StageNormal) {
		fmt.Fprintf(&b, "Normal process: loc=%g scale=%g\n", g.loc, g.scale)
	}
	if g.Has(StageAnomaly) {
		fmt.Fprintf(&b, "Anomalies: %d\n", len(g.anomalyIdx))
	}
	if g.driftIdx >= 0 {
		fmt.Fprintf(&b, "Drift from: %s\n", g.driftAt.Format(TimeLayout))
	}
	return b.String()
}

// span returns min, max and max-min of v. v must not be empty.
func span(v []float64) (lo, hi, r float64) {
	lo, hi = floats.Min(v), floats.Max(v)
	return lo, hi, hi - lo
}
