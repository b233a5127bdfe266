package commands

import (
	"path/filepath"

	"git.home.luguber.info/inful/catalogbuilder/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory for the generated config file" type:"path"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	cfgPath := root.Config
	if i.Output != "" {
		cfgPath = filepath.Join(i.Output, config.DefaultFilename)
	}
	if err := config.Init(cfgPath, i.Force); err != nil {
		return err
	}
	printf(g, "Wrote example configuration to %s\n", cfgPath)
	return nil
}
