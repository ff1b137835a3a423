package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/synthdata/cmd/synthdata/commands"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{}
	parser := kong.Parse(cli,
		kong.Name("synthdata"),
		kong.Description("Generate synthetic time series for anomaly-detection and drift experiments."),
		kong.UsageOnError(),
		commands.Vars(version.String()),
		kong.Bind(global),
	)
	err := parser.Run(cli)
	errors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
}
