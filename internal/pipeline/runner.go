// Package pipeline runs complete catalog builds: it scans the source
// directory, extracts records, hands them to the build engine and reports
// the result through metrics and events.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/catalogbuilder/internal/build"
	"git.home.luguber.info/inful/catalogbuilder/internal/build/report"
	"git.home.luguber.info/inful/catalogbuilder/internal/change"
	"git.home.luguber.info/inful/catalogbuilder/internal/config"
	"git.home.luguber.info/inful/catalogbuilder/internal/events"
	"git.home.luguber.info/inful/catalogbuilder/internal/extract"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/logfields"
	"git.home.luguber.info/inful/catalogbuilder/internal/metrics"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
	"git.home.luguber.info/inful/catalogbuilder/internal/source"
	"git.home.luguber.info/inful/catalogbuilder/internal/state"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithFileSystem replaces the host filesystem, for tests.
func WithFileSystem(fsys storage.FileSystem) Option {
	return func(r *Runner) { r.fs = fsys }
}

// WithStore replaces the configured state backend.
func WithStore(st state.Store) Option {
	return func(r *Runner) { r.store = st }
}

// WithPublisher replaces the configured event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithRecorder replaces the configured metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// Runner executes builds for one configuration. Run and Plan are
// serialized; a Runner is safe for use by the daemon's triggers.
type Runner struct {
	cfg       *config.Config
	fs        storage.FileSystem
	store     state.Store
	publisher events.Publisher
	recorder  metrics.Recorder
	textfile  *metrics.PrometheusRecorder
	logger    *slog.Logger

	scanner   *source.Scanner
	extractor extract.Extractor
	builder   *build.Builder

	mu sync.Mutex
}

// New wires a Runner from cfg.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, ferrors.ValidationError("configuration is required").Build()
	}
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.fs == nil {
		r.fs = storage.NewOSFileSystem()
	}

	spec, err := cfg.HierarchySpec()
	if err != nil {
		return nil, err
	}
	if r.store == nil {
		if r.store, err = OpenStore(cfg, r.fs); err != nil {
			return nil, err
		}
	}
	if r.publisher == nil {
		if r.publisher, err = newPublisher(cfg, r.logger); err != nil {
			_ = r.store.Close()
			return nil, err
		}
	}
	if r.recorder == nil {
		r.recorder = metrics.NoopRecorder{}
		if cfg.Metrics.Textfile != "" {
			r.textfile = metrics.NewPrometheusRecorder(nil)
			r.recorder = r.textfile
		}
	}

	r.scanner = source.NewScanner(source.Options{
		FS:         r.fs,
		Root:       cfg.Sources.Directory,
		Extensions: cfg.Sources.Extensions,
		Prefix:     cfg.Sources.Prefix,
		Exclude:    []string{cfg.Output.Directory},
		Ignore:     cfg.Sources.Ignore,
		Logger:     r.logger,
	})
	r.extractor = extract.NewMarkdown(extract.Options{
		FS:              r.fs,
		Mapping:         cfg.Mapping,
		Fingerprint:     cfg.Sources.Fingerprint,
		SummaryFallback: cfg.Sources.SummaryFallback,
	})
	r.builder, err = build.NewBuilder(build.Context{
		Spec:            spec,
		FS:              r.fs,
		Store:           r.store,
		CatalogRoot:     cfg.Output.Directory,
		SourceRoot:      cfg.Sources.Directory,
		ConfigHash:      cfg.Fingerprint(),
		Namespaces:      cfg.Namespaces(),
		RootIdentifier:  cfg.Catalog.RootIdentifier,
		RootTitle:       cfg.Catalog.RootTitle,
		RootDescription: cfg.Catalog.RootDescription,
		Logger:          r.logger,
		Recorder:        r.recorder,
	})
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// OpenStore opens the state backend selected by cfg.
func OpenStore(cfg *config.Config, fsys storage.FileSystem) (state.Store, error) {
	statePath := cfg.Output.StateFile
	if cfg.Output.StateBackend != config.StateBackendSQLite {
		return state.NewJSONStore(fsys, statePath), nil
	}
	if err := os.MkdirAll(filepath.Dir(statePath), 0o750); err != nil {
		return nil, ferrors.FileSystemError("failed to create state directory").WithCause(err).
			Fatal().WithContext("path", statePath).Build()
	}
	st, err := state.NewSQLiteStore(statePath)
	if err != nil {
		return nil, ferrors.StateError("failed to open state database").WithCause(err).
			WithContext("path", statePath).Build()
	}
	return st, nil
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.Events.NATSURL == "" {
		return events.NoopPublisher{}, nil
	}
	return events.NewNATSPublisher(events.NATSOptions{
		URL:       cfg.Events.NATSURL,
		Subject:   cfg.Events.Subject,
		JetStream: cfg.Events.JetStream,
		KVBucket:  cfg.Events.KVBucket,
		Timeout:   cfg.Events.Timeout,
		Logger:    logger,
	})
}

// Config returns the configuration the runner was built from.
func (r *Runner) Config() *config.Config { return r.cfg }

// Run performs one build. full forces a global rebuild. The report is nil
// only when the build could not start.
func (r *Runner) Run(ctx context.Context, full bool) (*report.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, failures, err := r.collect(ctx)
	if err != nil {
		r.recorder.IncBuildOutcome(buildOutcome(err))
		r.finish(ctx, nil, err)
		return nil, err
	}
	rep, err := r.builder.Build(ctx, build.Input{Records: records, Failures: failures, Full: full})
	r.finish(ctx, rep, err)
	return rep, err
}

// Plan classifies the current sources against the persisted state without
// touching the catalog.
func (r *Runner) Plan(ctx context.Context) (*change.Plan, []report.Failure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, failures, err := r.collect(ctx)
	if err != nil {
		return nil, nil, err
	}
	plan, err := r.builder.Plan(ctx, build.Input{Records: records, Failures: failures})
	if err != nil {
		return nil, nil, err
	}
	return plan, failures, nil
}

// collect scans the source directory and extracts every document. Documents
// that fail to extract become failures; they never abort the run.
func (r *Runner) collect(ctx context.Context) ([]*record.Record, []report.Failure, error) {
	start := time.Now()
	docs, err := r.scanner.Scan(ctx)
	r.recorder.ObserveStageDuration(metrics.StageScan, time.Since(start))
	if err != nil {
		return nil, nil, err
	}

	start = time.Now()
	records := make([]*record.Record, 0, len(docs))
	var failures []report.Failure
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rec, err := r.extractor.Extract(ctx, doc)
		if err != nil {
			if _, ok := ferrors.AsClassified(err); !ok {
				err = ferrors.ExtractionError("failed to extract record").WithCause(err).
					WithContext("path", doc.Path).Build()
			}
			r.logger.Warn("Failed to extract record", logfields.Record(doc.Path), logfields.Error(err))
			failures = append(failures, report.Failure{
				Path:    doc.Path,
				Outcome: report.OutcomeExtractionFailed,
				Reason:  err.Error(),
			})
			continue
		}
		records = append(records, rec)
	}
	r.recorder.ObserveStageDuration(metrics.StageExtract, time.Since(start))
	r.logger.Debug("Extracted records",
		logfields.Count(len(records)),
		slog.Int("failures", len(failures)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return records, failures, nil
}

// finish exports metrics and publishes the build event. Neither can fail
// the build.
func (r *Runner) finish(ctx context.Context, rep *report.Report, buildErr error) {
	if r.textfile != nil {
		if err := r.writeTextfile(); err != nil {
			r.logger.Warn("Failed to write metrics textfile", logfields.Path(r.cfg.Metrics.Textfile), logfields.Error(err))
		}
	}

	ev := events.NewBuildCompleted(r.cfg.Catalog.RootIdentifier, rep, buildErr)
	if err := r.publisher.PublishBuildCompleted(context.WithoutCancel(ctx), ev); err != nil {
		r.logger.Warn("Failed to publish build event", logfields.BuildID(ev.BuildID), logfields.Error(err))
	}
}

func (r *Runner) writeTextfile() error {
	if err := os.MkdirAll(filepath.Dir(r.cfg.Metrics.Textfile), 0o750); err != nil {
		return err
	}
	return r.textfile.WriteToTextfile(r.cfg.Metrics.Textfile)
}

func buildOutcome(err error) metrics.BuildOutcomeLabel {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return metrics.BuildOutcomeCanceled
	}
	return metrics.BuildOutcomeFailed
}

// Close releases the state store and the event connection.
func (r *Runner) Close() error {
	var firstErr error
	if r.publisher != nil {
		if err := r.publisher.Close(); err != nil {
			firstErr = err
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
