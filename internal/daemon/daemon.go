// Package daemon keeps a catalog up to date: it rebuilds when sources change
// and on a fixed interval, never running two builds at once.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/catalogbuilder/internal/build/report"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/logfields"
)

// Trigger reasons.
const (
	TriggerStartup  = "startup"
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// maxDelayFactor bounds how long a steady stream of changes can postpone a
// build, as a multiple of the debounce window.
const maxDelayFactor = 10

// Runner performs one build.
type Runner interface {
	Run(ctx context.Context, full bool) (*report.Report, error)
}

// Options configures a Daemon.
type Options struct {
	Runner Runner
	// SourceDir is watched when Watch is set.
	SourceDir  string
	Extensions []string
	Exclude    []string
	Watch      bool
	Debounce   time.Duration
	// Interval schedules periodic builds; zero disables them.
	Interval time.Duration
	Logger   *slog.Logger
}

// Daemon serializes builds requested by the watcher, the scheduler and
// Trigger. Requests arriving during a build collapse into one follow-up.
type Daemon struct {
	opts     Options
	logger   *slog.Logger
	triggers chan string
	builds   atomic.Int64
}

// New validates opts and returns a Daemon.
func New(opts Options) (*Daemon, error) {
	if opts.Runner == nil {
		return nil, ferrors.ValidationError("daemon requires a runner").Build()
	}
	if opts.Watch && opts.SourceDir == "" {
		return nil, ferrors.ValidationError("watching requires a source directory").Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.Interval < 0 {
		return nil, ferrors.ValidationError("daemon interval must not be negative").Build()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Daemon{
		opts:     opts,
		logger:   opts.Logger,
		triggers: make(chan string, 1),
	}, nil
}

// Trigger requests a build. It never blocks.
func (d *Daemon) Trigger(reason string) {
	select {
	case d.triggers <- reason:
	default:
		d.logger.Debug("Build already pending", logfields.Trigger(reason))
	}
}

// Builds returns how many builds have run.
func (d *Daemon) Builds() int { return int(d.builds.Load()) }

// Run builds once, then keeps building on triggers until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.opts.Watch && d.opts.Interval == 0 {
		d.logger.Warn("Daemon has neither watching nor a schedule; only manual triggers start builds")
	}

	if d.opts.Watch {
		w, err := NewWatcher(WatcherOptions{
			Root:       d.opts.SourceDir,
			Extensions: d.opts.Extensions,
			Exclude:    d.opts.Exclude,
			Logger:     d.logger,
		})
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()

		deb := NewDebouncer(d.opts.Debounce, maxDelayFactor*d.opts.Debounce, func(reason string, count int) {
			d.logger.Debug("Debounced source changes", logfields.Count(count))
			d.Trigger(reason)
		})
		go deb.Run(ctx)
		go w.Run(ctx, deb.Trigger)
		d.logger.Info("Watching sources", logfields.Dir(d.opts.SourceDir), slog.Duration("debounce", d.opts.Debounce))
	}

	if d.opts.Interval > 0 {
		s, err := NewScheduler(d.logger)
		if err != nil {
			return err
		}
		if _, err := s.SchedulePeriodic("catalog-rebuild", d.opts.Interval, func() { d.Trigger(TriggerSchedule) }); err != nil {
			return err
		}
		s.Start()
		defer func() {
			if err := s.Stop(); err != nil {
				d.logger.Warn("Failed to stop scheduler", logfields.Error(err))
			}
		}()
	}

	d.build(ctx, TriggerStartup)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Daemon stopped", logfields.Count(d.Builds()))
			return nil
		case reason := <-d.triggers:
			d.build(ctx, reason)
		}
	}
}

// build runs one build. Failures are logged; the daemon keeps running.
func (d *Daemon) build(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	d.builds.Add(1)
	start := time.Now()
	d.logger.Info("Starting build", logfields.Trigger(reason))
	rep, err := d.opts.Runner.Run(ctx, false)
	switch {
	case errors.Is(err, context.Canceled):
		d.logger.Info("Build canceled", logfields.Trigger(reason))
	case err != nil:
		d.logger.Error("Build failed", logfields.Trigger(reason), logfields.Error(err))
	case rep != nil:
		d.logger.Info("Build finished",
			logfields.Trigger(reason),
			logfields.BuildID(rep.BuildID),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())),
			slog.Bool("changed", rep.Changed()),
			slog.Int("failures", len(rep.Failures)))
	}
}
