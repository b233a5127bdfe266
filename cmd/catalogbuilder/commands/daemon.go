package commands

import (
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/catalogbuilder/internal/daemon"
)

// DaemonCmd implements the 'daemon' command. SIGHUP requests an immediate
// build.
type DaemonCmd struct {
	NoWatch bool `name:"no-watch" help:"Disable source watching; rely on the schedule only"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	runner, err := newRunner(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	cfg := runner.Config()
	dmn, err := daemon.New(daemon.Options{
		Runner:     runner,
		SourceDir:  cfg.Sources.Directory,
		Extensions: cfg.Sources.Extensions,
		Exclude:    []string{cfg.Output.Directory},
		Watch:      cfg.Daemon.WatchEnabled() && !d.NoWatch,
		Debounce:   cfg.Daemon.Debounce,
		Interval:   cfg.Daemon.Interval,
		Logger:     g.logger(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				dmn.Trigger(daemon.TriggerManual)
			}
		}
	}()

	return dmn.Run(ctx)
}
