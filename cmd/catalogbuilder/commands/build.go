package commands

import (
	"fmt"

	"git.home.luguber.info/inful/catalogbuilder/internal/output"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Full   bool `help:"Discard incremental state and rebuild the whole catalog"`
	Strict bool `help:"Exit with status 3 when any record failed"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	runner, err := newRunner(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	rep, err := runner.Run(ctx, b.Full)
	if rep != nil {
		printf(g, "%s", output.ReportSummary(rep))
	}
	if err != nil {
		return err
	}
	if b.Strict && rep.HasFailures() {
		return fmt.Errorf("%w: %d failed", ErrStrictFailures, len(rep.Failures))
	}
	return nil
}
