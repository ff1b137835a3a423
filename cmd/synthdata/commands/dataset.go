package commands

import (
	"context"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/recipe"
)

// DatasetCmd implements the 'dataset' command.
type DatasetCmd struct {
	Name          string  `help:"Name reported in logs" default:"dataset"`
	N             int     `short:"n" help:"Number of series" default:"10"`
	ProbAnomalous float64 `name:"prob-anomalous" help:"Probability that a series is anomalous, in [0, 1)" default:"0.1"`
	Size          int     `help:"Points per series" default:"1000"`
	Fraction      float64 `help:"Fraction of anomalous points in an anomalous series" default:"0.02"`
	AnomalyScale  float64 `name:"anomaly-scale" help:"How far anomalies reach beyond the data range" default:"2"`
	Loc           float64 `help:"Mean of the normal data" default:"0"`
	Scale         float64 `help:"Standard deviation of the normal data" default:"1"`
	Workers       int     `help:"Series generated concurrently" default:"4"`

	OutputFlags `embed:""`
}

// Recipe builds the recipe the flags describe.
func (d *DatasetCmd) Recipe() recipe.Recipe {
	prob, frac, scale := d.ProbAnomalous, d.Fraction, d.AnomalyScale
	return recipe.Recipe{
		Name: d.Name,
		Kind: recipe.KindDataset,
		Seed: d.Seed,
		Dataset: &recipe.DatasetRecipe{
			N:             d.N,
			ProbAnomalous: &prob,
			Size:          d.Size,
			AnomalyFrac:   &frac,
			AnomalyScale:  &scale,
			Loc:           d.Loc,
			Scale:         d.Scale,
			Workers:       d.Workers,
		},
	}
}

func (d *DatasetCmd) Run(_ *Global, root *CLI) error {
	if d.Plot != "" {
		return errors.ValidationError("datasets cannot be plotted").WithContext("plot", d.Plot).Build()
	}
	_, err := generate(context.Background(), root.stdout(), d.Recipe(), d.OutputFlags)
	return err
}
