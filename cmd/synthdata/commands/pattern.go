package commands

import (
	"context"

	"git.home.luguber.info/inful/synthdata/internal/recipe"
)

// PatternCmd implements the 'pattern' command. Flag defaults match the
// generator defaults listed by 'synthdata catalog'.
type PatternCmd struct {
	Name                  string   `help:"Name reported in logs and plot titles" default:"pattern"`
	Length                int      `short:"n" help:"Series length" default:"100"`
	AvgPatternLength      int      `name:"avg-pattern-length" help:"Mean shape length and maximum gap between shapes" default:"5"`
	AvgAmplitude          float64  `name:"avg-amplitude" help:"Mean shape amplitude" default:"1"`
	DefaultVariance       float64  `name:"default-variance" help:"Standard deviation of the background noise" default:"1"`
	VariancePatternLength float64  `name:"variance-pattern-length" help:"Standard deviation of shape lengths" default:"10"`
	VarianceAmplitude     float64  `name:"variance-amplitude" help:"Standard deviation of shape amplitudes" default:"2"`
	Shapes                []string `help:"Shapes to draw from (bell, funnel, cylinder)"`
	NoNegatives           bool     `name:"no-negatives" help:"Never flip shapes below zero"`

	OutputFlags `embed:""`
}

// Recipe builds the recipe the flags describe.
func (p *PatternCmd) Recipe() recipe.Recipe {
	body := &recipe.PatternRecipe{
		Length:                p.Length,
		AvgPatternLength:      &p.AvgPatternLength,
		AvgAmplitude:          &p.AvgAmplitude,
		DefaultVariance:       &p.DefaultVariance,
		VariancePatternLength: &p.VariancePatternLength,
		VarianceAmplitude:     &p.VarianceAmplitude,
		Shapes:                p.Shapes,
	}
	if p.NoNegatives {
		include := false
		body.IncludeNegatives = &include
	}
	return recipe.Recipe{Name: p.Name, Kind: recipe.KindPattern, Seed: p.Seed, Pattern: body}
}

func (p *PatternCmd) Run(_ *Global, root *CLI) error {
	_, err := generate(context.Background(), root.stdout(), p.Recipe(), p.OutputFlags)
	return err
}
