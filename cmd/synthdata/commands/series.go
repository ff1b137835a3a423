package commands

import (
	"context"

	"git.home.luguber.info/inful/synthdata/internal/recipe"
)

// SeriesCmd implements the 'series' command.
type SeriesCmd struct {
	Name           string  `help:"Name reported in logs and plot titles" default:"series"`
	Start          string  `help:"Timeline start (YYYY-MM-DD hh:mm:ss or RFC3339)" default:"${series_start}"`
	End            string  `help:"Timeline end" default:"${series_end}"`
	ProcessMinutes float64 `name:"process-minutes" help:"Minutes between samples" default:"10"`
	Loc            float64 `help:"Mean of the normal process" default:"0"`
	Scale          float64 `help:"Standard deviation of the normal process" default:"1"`

	Anomalies    float64 `short:"a" help:"Fraction of points replaced by anomalies; 0 disables the stage"`
	AnomalyScale float64 `name:"anomaly-scale" help:"How far anomalies reach, as a multiple of the data range" default:"1.5"`
	AnomalyMode  string  `name:"anomaly-mode" help:"point or chunk" enum:"point,chunk" default:"point"`
	Chunks       int     `help:"Number of anomaly chunks in chunk mode" default:"3"`
	OneSided     bool    `name:"one-sided" help:"Only inject anomalies above the data"`
	DriftMean    float64 `name:"drift-mean" help:"Shift the tail mean by this percentage"`
	DriftSpread  float64 `name:"drift-spread" help:"Scale the mean shift by this percentage"`
	DriftWiden   bool    `name:"drift-widen" help:"Apply --drift-spread to the tail spread instead of the shift"`
	DriftAt      string  `name:"drift-at" help:"Change point; defaults to the middle of the timeline"`

	OutputFlags `embed:""`
}

// Recipe builds the recipe the flags describe.
func (s *SeriesCmd) Recipe() recipe.Recipe {
	body := &recipe.SeriesRecipe{
		Start:          s.Start,
		End:            s.End,
		ProcessMinutes: s.ProcessMinutes,
		Loc:            s.Loc,
		Scale:          s.Scale,
	}
	if s.Anomalies > 0 {
		body.Anomaly = &recipe.AnomalyRecipe{
			Mode:     recipe.AnomalyMode(s.AnomalyMode),
			Fraction: s.Anomalies,
			Scale:    s.AnomalyScale,
			OneSided: s.OneSided,
			Chunks:   s.Chunks,
		}
	}
	if s.DriftMean != 0 || s.DriftSpread != 0 || s.DriftAt != "" {
		body.Drift = &recipe.DriftRecipe{PctMean: s.DriftMean, PctSpread: s.DriftSpread, WidenTail: s.DriftWiden, At: s.DriftAt}
	}
	return recipe.Recipe{Name: s.Name, Kind: recipe.KindSeries, Seed: s.Seed, Series: body}
}

func (s *SeriesCmd) Run(_ *Global, root *CLI) error {
	_, err := generate(context.Background(), root.stdout(), s.Recipe(), s.OutputFlags)
	return err
}
