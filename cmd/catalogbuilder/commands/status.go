package commands

import (
	"git.home.luguber.info/inful/catalogbuilder/internal/output"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct{}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	runner, err := newRunner(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	plan, failures, err := runner.Plan(ctx)
	if err != nil {
		return err
	}
	printf(g, "%s", output.PlanSummary(plan, failures))
	return nil
}
