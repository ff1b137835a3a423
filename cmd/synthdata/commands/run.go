package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/synthdata/internal/config"
	"git.home.luguber.info/inful/synthdata/internal/export"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/logfields"
	"git.home.luguber.info/inful/synthdata/internal/recipe"
)

// RunCmd implements the 'run' command: it executes named recipes from the
// config (all of them when none are named) and writes each one to
// output.directory.
type RunCmd struct {
	Recipes  []string `arg:"" optional:"" help:"Recipe names; all configured recipes when omitted"`
	File     []string `short:"r" name:"recipe-file" help:"Additional recipe files (YAML or JSON)" type:"existingfile"`
	Output   string   `short:"o" help:"Override output.directory"`
	Parallel int      `short:"p" help:"Recipes run concurrently" default:"4"`
}

// RunReport is one row of the run summary.
type RunReport struct {
	Recipe    string
	Kind      recipe.Kind
	Points    int
	Anomalies int
	Seed      uint64
	Table     string
	Plot      string
	Duration  time.Duration
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	selected, err := r.selectRecipes(cfg)
	if err != nil {
		return err
	}
	dir := cfg.Output.Directory
	if r.Output != "" {
		dir = r.Output
	}

	reports, err := RunRecipes(context.Background(), selected, dir, cfg.Output, r.Parallel)
	printReports(root.stdout(), reports)
	return err
}

func (r *RunCmd) selectRecipes(cfg *config.Config) ([]recipe.Recipe, error) {
	var out []recipe.Recipe
	if len(r.Recipes) == 0 && len(r.File) == 0 {
		out = append(out, cfg.Recipes...)
	}
	for _, name := range r.Recipes {
		rec, ok := cfg.RecipeByName(name)
		if !ok {
			return nil, errors.NotFoundError("recipe not found").WithContext("recipe", name).Build()
		}
		out = append(out, rec)
	}
	for _, path := range r.File {
		rec, err := recipe.LoadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, errors.ValidationError("no recipes to run").Build()
	}
	return out, nil
}

// RunRecipes executes recipes with bounded concurrency and writes
// <dir>/<name><ext> for each, plus a plot when the recipe or out asks for
// one. Every recipe runs even when another fails; the first error is
// returned with the reports of the runs that succeeded.
func RunRecipes(ctx context.Context, recipes []recipe.Recipe, dir string, out config.OutputConfig, parallel int) ([]RunReport, error) {
	if parallel <= 0 {
		parallel = 1
	}
	var (
		mu       sync.Mutex
		reports  []RunReport
		firstErr error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, rec := range recipes {
		g.Go(func() error {
			rep, err := runOne(ctx, rec, dir, out)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Error("Recipe failed", logfields.Recipe(rec.Name), logfields.Stage(recipe.StageOf(err)), logfields.Error(err))
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			reports = append(reports, rep)
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(reports, func(i, j int) bool { return reports[i].Recipe < reports[j].Recipe })
	return reports, firstErr
}

func runOne(ctx context.Context, rec recipe.Recipe, dir string, out config.OutputConfig) (RunReport, error) {
	res, err := recipe.Execute(ctx, rec, nil)
	if err != nil {
		return RunReport{}, err
	}
	rec = res.Recipe
	format := export.NormalizeFormat(firstSet(rec.Format, out.Format))
	table, err := res.Encode(format)
	if err != nil {
		return RunReport{}, err
	}
	rep := RunReport{
		Recipe:    rec.Name,
		Kind:      rec.Kind,
		Points:    res.Points(),
		Anomalies: res.Anomalies,
		Seed:      res.Seed,
		Table:     filepath.Join(dir, rec.Name+export.FileExtension(format)),
		Duration:  res.Duration,
	}
	if err := writeFile(io.Discard, rep.Table, table); err != nil {
		return RunReport{}, err
	}
	if plotFormat := firstSet(rec.Plot, out.Plot); plotFormat != "" && res.Collection == nil {
		img, err := res.Plot(plotFormat)
		if err != nil {
			return RunReport{}, err
		}
		rep.Plot = filepath.Join(dir, rec.Name+"."+plotFormat)
		if err := writeFile(io.Discard, rep.Plot, img); err != nil {
			return RunReport{}, err
		}
	}
	return rep, nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printReports(w io.Writer, reports []RunReport) {
	if len(reports) == 0 {
		return
	}
	p := printer()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RECIPE\tKIND\tPOINTS\tANOMALIES\tSEED\tDURATION\tOUTPUT")
	for _, r := range reports {
		_, _ = p.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.Recipe, r.Kind, r.Points, r.Anomalies, strconv.FormatUint(r.Seed, 10), r.Duration.Round(time.Millisecond), r.Table)
	}
	_ = tw.Flush()
}
