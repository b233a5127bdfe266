package commands

import (
	"git.home.luguber.info/inful/catalogbuilder/internal/pipeline"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := pipeline.Clean(cfg, storage.NewOSFileSystem(), g.logger()); err != nil {
		return err
	}
	printf(g, "Removed %s and its build state\n", cfg.Output.Directory)
	return nil
}
