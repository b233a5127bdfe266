package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/catalogbuilder/cmd/catalogbuilder/commands"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("catalogbuilder"),
		kong.Description("Incrementally build a hierarchical XML catalog from Markdown metadata."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, cli)
	if err == nil {
		return
	}
	if errors.Is(err, commands.ErrStrictFailures) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ferrors.ExitStrictFailures)
	}
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
