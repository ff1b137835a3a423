package commands

import (
	"context"
	"io"
	"strings"

	"git.home.luguber.info/inful/synthdata/internal/chart"
	"git.home.luguber.info/inful/synthdata/internal/export"
	"git.home.luguber.info/inful/synthdata/internal/recipe"
)

// OutputFlags are shared by the generator commands.
type OutputFlags struct {
	Output string `short:"o" help:"Output file, - for stdout" default:"-"`
	Format string `short:"f" help:"Table format: csv, json or ndjson (default from the file extension, else csv)"`
	Plot   string `help:"Also write a scatter plot to this path (.png, .svg or .pdf)"`
	Seed   uint64 `short:"s" help:"Random seed; 0 seeds from the clock"`
}

// format resolves the table format: flag, then output extension, then recipe.
func (o OutputFlags) format(r recipe.Recipe) (export.Format, error) {
	switch {
	case o.Format != "":
		return export.ParseFormat(o.Format)
	case o.Output != "-" && formatFromExt(o.Output) != "":
		return formatFromExt(o.Output), nil
	default:
		return export.NormalizeFormat(r.Format), nil
	}
}

func formatFromExt(path string) export.Format {
	for _, name := range export.Formats() {
		f := export.NormalizeFormat(name)
		if strings.HasSuffix(path, export.FileExtension(f)) {
			return f
		}
	}
	return ""
}

// generate runs r and writes its table and optional plot.
func generate(ctx context.Context, stdout io.Writer, r recipe.Recipe, o OutputFlags) (*recipe.Result, error) {
	format, err := o.format(r)
	if err != nil {
		return nil, err
	}
	var plotFormat string
	if o.Plot != "" {
		if plotFormat, err = chart.FormatFromPath(o.Plot); err != nil {
			return nil, err
		}
	}

	res, err := recipe.Execute(ctx, r, nil)
	if err != nil {
		return nil, err
	}
	table, err := res.Encode(format)
	if err != nil {
		return nil, err
	}
	if err := writeFile(stdout, o.Output, table); err != nil {
		return nil, err
	}
	if plotFormat != "" {
		img, err := res.Plot(plotFormat)
		if err != nil {
			return nil, err
		}
		if err := writeFile(stdout, o.Plot, img); err != nil {
			return nil, err
		}
	}
	if o.Output != "-" {
		printer().Fprintf(stdout, "%s: %d points, %d anomalies, seed %d -> %s\n",
			res.Recipe.Name, res.Points(), res.Anomalies, res.Seed, o.Output)
	}
	return res, nil
}
