package commands

import (
	"git.home.luguber.info/inful/synthdata/internal/catalog"
)

// CatalogCmd implements the 'catalog' command.
type CatalogCmd struct {
	HTML   bool   `help:"Render HTML instead of markdown"`
	Output string `short:"o" help:"Output file, - for stdout" default:"-"`
}

func (c *CatalogCmd) Run(_ *Global, root *CLI) error {
	render := catalog.Markdown
	if c.HTML {
		render = catalog.Page
	}
	doc, err := render()
	if err != nil {
		return err
	}
	return writeFile(root.stdout(), c.Output, doc)
}
