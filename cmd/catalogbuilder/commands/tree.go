package commands

import (
	"git.home.luguber.info/inful/catalogbuilder/internal/output"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

// TreeCmd implements the 'tree' command.
type TreeCmd struct{}

func (t *TreeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	rendered, err := output.CatalogTree(storage.NewOSFileSystem(), cfg.Output.Directory)
	if err != nil {
		return err
	}
	printf(g, "%s", rendered)
	return nil
}
