package recipe

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"gonum.org/v1/plot"

	"git.home.luguber.info/inful/synthdata/internal/chart"
	"git.home.luguber.info/inful/synthdata/internal/dataset"
	"git.home.luguber.info/inful/synthdata/internal/export"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/logfields"
	"git.home.luguber.info/inful/synthdata/internal/observability"
	"git.home.luguber.info/inful/synthdata/internal/pattern"
	"git.home.luguber.info/inful/synthdata/internal/sampling"
	"git.home.luguber.info/inful/synthdata/internal/stats"
	"git.home.luguber.info/inful/synthdata/internal/timeseries"
)

// DefaultWorkers bounds dataset fan-out when a recipe does not set it.
const DefaultWorkers = 4

// StageTiming records how long one stage took.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
	Points   int           `json:"points"`
}

// Result is the output of one executed recipe.
type Result struct {
	Recipe     Recipe              `json:"recipe"`
	Seed       uint64              `json:"seed"`
	Frames     []timeseries.Frame  `json:"frames,omitempty"`
	Params     *timeseries.Params  `json:"params,omitempty"`
	Series     []float64           `json:"series,omitempty"`
	Segments   []pattern.Segment   `json:"segments,omitempty"`
	Collection *dataset.Collection `json:"collection,omitempty"`
	Summary    stats.Summary       `json:"summary"`
	Anomalies  int                 `json:"anomalies"`
	Stages     []StageTiming       `json:"stages"`
	Duration   time.Duration       `json:"duration"`
}

// Points counts generated values: rows of the last frame, the pattern
// length, or every value of a collection.
func (r *Result) Points() int {
	switch {
	case len(r.Frames) > 0:
		return r.Frames[len(r.Frames)-1].Len()
	case r.Collection != nil:
		return r.Collection.Points()
	default:
		return len(r.Series)
	}
}

// Primary returns the frame a series run is reported by: the last stage.
func (r *Result) Primary() (timeseries.Frame, bool) {
	if len(r.Frames) == 0 {
		return timeseries.Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

// Encode serializes the primary table. Series runs write every stage side
// by side.
func (r *Result) Encode(format export.Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch {
	case len(r.Frames) > 0:
		err = export.WriteFrames(&buf, r.Frames, format)
	case r.Collection != nil:
		err = export.WriteCollection(&buf, r.Collection, format)
	default:
		err = export.WriteSeries(&buf, "value", r.Series, format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Plot renders the primary output. Datasets have no single series to plot.
func (r *Result) Plot(format string) ([]byte, error) {
	var p *plot.Plot
	var err error
	switch {
	case len(r.Frames) > 0:
		f, _ := r.Primary()
		p, err = chart.Frame(f, r.Recipe.Name)
	case r.Collection != nil:
		return nil, errors.ValidationError("dataset recipes cannot be plotted").
			WithContext("recipe", r.Recipe.Name).
			Build()
	default:
		p, err = chart.Series(r.Series, r.Recipe.Name)
	}
	if err != nil {
		return nil, err
	}
	return chart.Render(p, format)
}

const stageContextKey = "stage"

// StageOf returns the stage a failed Execute stopped in, or "".
func StageOf(err error) string {
	if ce, ok := errors.AsClassified(err); ok {
		if s, ok := ce.Context().GetString(stageContextKey); ok {
			return s
		}
	}
	return ""
}

type executor struct {
	ctx    context.Context
	logger *slog.Logger
	res    *Result
}

func (e *executor) stage(name string, fn func() (int, error)) error {
	if err := e.ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	n, err := fn()
	d := time.Since(start)
	if err != nil {
		e.logger.Debug("Stage failed", logfields.Stage(name), logfields.Error(err))
		if ce, ok := errors.AsClassified(err); ok {
			return ce.WithContext(stageContextKey, name)
		}
		return err
	}
	e.res.Stages = append(e.res.Stages, StageTiming{Stage: name, Duration: d, Points: n})
	e.logger.Debug("Stage completed",
		logfields.Stage(name),
		logfields.Points(n),
		logfields.DurationMS(float64(d.Microseconds())/1000))
	return nil
}

// Execute runs r. A nil src means "seed from the recipe"; a recipe without
// a seed is seeded from the clock and the seed used is reported in the Result.
func Execute(ctx context.Context, r Recipe, src *sampling.Source) (*Result, error) {
	r.Normalize()
	// Point limits are enforced where recipes enter the system.
	if err := r.ValidateWithin(0); err != nil {
		return nil, err
	}
	if src == nil {
		src = sampling.NewSource(r.Seed)
	}

	started := time.Now()
	res := &Result{Recipe: r, Seed: src.Seed()}
	e := &executor{
		ctx:    ctx,
		logger: observability.Logger(observability.WithRecipe(ctx, r.Name)).With(logfields.Kind(string(r.Kind)), logfields.Seed(src.Seed())),
		res:    res,
	}

	var err error
	switch r.Kind {
	case KindSeries:
		err = e.series(r.seriesBody(), src)
	case KindPattern:
		err = e.pattern(*r.Pattern, src)
	case KindDataset:
		err = e.dataset(*r.Dataset, src)
	}
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(started)
	e.logger.Info("Recipe executed",
		logfields.Points(res.Points()),
		logfields.Anomalies(res.Anomalies),
		logfields.DurationMS(float64(res.Duration.Microseconds())/1000))
	return res, nil
}

func (e *executor) series(s SeriesRecipe, src *sampling.Source) error {
	tl, err := s.Timeline()
	if err != nil {
		return err
	}
	g, err := timeseries.NewGenerator(tl, src)
	if err != nil {
		return err
	}

	keep := func(f timeseries.Frame) int {
		e.res.Frames = append(e.res.Frames, f)
		return f.Len()
	}

	if err := e.stage(string(timeseries.StageNormal), func() (int, error) {
		f, err := g.NormalProcess(s.Loc, s.NormalScale())
		if err != nil {
			return 0, err
		}
		return keep(f), nil
	}); err != nil {
		return err
	}

	if a := s.Anomaly; a != nil {
		if err := e.stage(string(timeseries.StageAnomaly), func() (int, error) {
			var f timeseries.Frame
			var err error
			if a.Mode == ModeChunk {
				f, err = g.ChunkAnomalize(timeseries.ChunkOptions{Chunks: a.Chunks, Fraction: a.Fraction, Scale: a.Scale, OneSided: a.OneSided})
			} else {
				f, err = g.Anomalize(timeseries.AnomalyOptions{Fraction: a.Fraction, Scale: a.Scale, OneSided: a.OneSided})
			}
			if err != nil {
				return 0, err
			}
			return keep(f), nil
		}); err != nil {
			return err
		}
	}

	if d := s.Drift; d != nil {
		opts := timeseries.DriftOptions{PctMean: d.PctMean, PctSpread: d.PctSpread, WidenTail: d.WidenTail}
		if d.At != "" {
			at, err := timeseries.ParseTime(d.At)
			if err != nil {
				return err
			}
			opts.At = &at
		}
		if err := e.stage(string(timeseries.StageDrifted), func() (int, error) {
			f, err := g.Drift(opts)
			if err != nil {
				return 0, err
			}
			return keep(f), nil
		}); err != nil {
			return err
		}
	}

	p := g.Params()
	e.res.Params = &p
	e.res.Anomalies = len(g.AnomalyIndices())
	if f, ok := e.res.Primary(); ok {
		e.res.Summary = stats.Summarize(f.Values)
	}
	return nil
}

func (e *executor) pattern(p PatternRecipe, src *sampling.Source) error {
	opts, err := p.Options()
	if err != nil {
		return err
	}
	return e.stage("pattern", func() (int, error) {
		values, segs, err := pattern.Generate(opts, src)
		if err != nil {
			return 0, err
		}
		e.res.Series = values
		e.res.Segments = segs
		e.res.Summary = stats.Summarize(values)
		return len(values), nil
	})
}

func (e *executor) dataset(d DatasetRecipe, src *sampling.Source) error {
	workers := d.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return e.stage("dataset", func() (int, error) {
		c, err := dataset.GenerateParallel(e.ctx, d.Options(), src, workers)
		if err != nil {
			return 0, err
		}
		e.res.Collection = c
		_, anomalous := c.Counts()
		e.res.Anomalies = anomalous
		all := make([]float64, 0, c.Points())
		for _, s := range c.Samples {
			all = append(all, s.Values...)
		}
		e.res.Summary = stats.Summarize(all)
		return c.Points(), nil
	})
}
