// Package chart renders generated series as scatter plots with gonum/plot.
package chart

import (
	"bytes"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/timeseries"
)

// Default canvas size.
const (
	Width  = 12 * vg.Inch
	Height = 4 * vg.Inch
)

var supported = map[string]bool{"png": true, "svg": true, "pdf": true, "jpg": true, "jpeg": true}

// Frame plots a stage against time. A frame without rows is treated as a
// stage that was never generated.
func Frame(f timeseries.Frame, title string) (*plot.Plot, error) {
	if f.Len() == 0 {
		return nil, timeseries.ErrNotInitialized.WithContext("stage", string(f.Stage))
	}
	pts := make(plotter.XYs, f.Len())
	for i, v := range f.Values {
		pts[i].X = float64(f.Time[i].Unix())
		pts[i].Y = v
	}
	p, err := scatter(pts, title)
	if err != nil {
		return nil, err
	}
	p.X.Label.Text = "time"
	p.Y.Label.Text = f.Column
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	return p, nil
}

// FromGenerator plots one stage of g, surfacing ErrNotInitialized when the
// stage has not run.
func FromGenerator(g *timeseries.Generator, stage timeseries.Stage, title string) (*plot.Plot, error) {
	f, err := g.Frame(stage)
	if err != nil {
		return nil, err
	}
	return Frame(f, title)
}

// Series plots values against their index.
func Series(values []float64, title string) (*plot.Plot, error) {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	p, err := scatter(pts, title)
	if err != nil {
		return nil, err
	}
	p.X.Label.Text = "index"
	return p, nil
}

func scatter(pts plotter.XYs, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryExport, "failed to build scatter plot").Build()
	}
	s.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(plotter.NewGrid(), s)
	return p, nil
}

// FormatFromPath returns the image format implied by the file extension.
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !supported[ext] {
		return "", errors.ValidationError("unsupported plot format").
			WithContext("path", path).
			Build()
	}
	return ext, nil
}

// Save writes p to path at the default size.
func Save(p *plot.Plot, path string) error {
	if _, err := FormatFromPath(path); err != nil {
		return err
	}
	if err := p.Save(Width, Height, path); err != nil {
		return errors.WrapError(err, errors.CategoryExport, "failed to save plot").
			WithContext("path", path).
			Build()
	}
	return nil
}

// Render encodes p in format (png, svg, pdf, jpg) and returns the bytes.
func Render(p *plot.Plot, format string) ([]byte, error) {
	format = strings.ToLower(format)
	if !supported[format] {
		return nil, errors.ValidationError("unsupported plot format").WithContext("format", format).Build()
	}
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryExport, "failed to render plot").Build()
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, errors.WrapError(err, errors.CategoryExport, "failed to render plot").Build()
	}
	return buf.Bytes(), nil
}

// ContentType returns the MIME type of a rendered plot.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "svg":
		return "image/svg+xml"
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}
