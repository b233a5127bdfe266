// Package commands implements the catalogbuilder CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/catalogbuilder/internal/config"
	"git.home.luguber.info/inful/catalogbuilder/internal/pipeline"
)

// LogLevelEnv overrides the log level chosen by --verbose.
const LogLevelEnv = "CATALOGBUILDER_LOG_LEVEL"

// ErrStrictFailures is returned by build --strict when records failed.
var ErrStrictFailures = errors.New("build completed with record failures")

// Global is shared state handed to every command.
type Global struct {
	Logger *slog.Logger
	// Out receives user-facing output.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"catalogbuilder.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" help:"Run one incremental catalog build"`
	Status StatusCmd `cmd:"" help:"Show what the next build would change"`
	Tree   TreeCmd   `cmd:"" help:"Print the generated catalog tree"`
	Clean  CleanCmd  `cmd:"" help:"Remove the generated catalog and the build state"`
	Init   InitCmd   `cmd:"" help:"Write an example configuration file"`
	Daemon DaemonCmd `cmd:"" help:"Rebuild continuously on source changes and on a schedule"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel honours LogLevelEnv first, then --verbose.
func parseLogLevel(verbose bool) slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func loadConfig(root *CLI) (*config.Config, error) {
	return config.Load(root.Config)
}

func newRunner(g *Global, root *CLI) (*pipeline.Runner, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, pipeline.WithLogger(g.logger()))
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printf(g *Global, format string, args ...any) {
	_, _ = fmt.Fprintf(g.out(), format, args...)
}
