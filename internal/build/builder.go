package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/catalogbuilder/internal/build/report"
	"git.home.luguber.info/inful/catalogbuilder/internal/catalog"
	"git.home.luguber.info/inful/catalogbuilder/internal/change"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
	"git.home.luguber.info/inful/catalogbuilder/internal/logfields"
	"git.home.luguber.info/inful/catalogbuilder/internal/metrics"
	"git.home.luguber.info/inful/catalogbuilder/internal/reconcile"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
	"git.home.luguber.info/inful/catalogbuilder/internal/state"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
	"git.home.luguber.info/inful/catalogbuilder/internal/util/sets"
)

// Context carries everything one build needs.
type Context struct {
	Spec  *hierarchy.Spec
	FS    storage.FileSystem
	Store state.Store

	CatalogRoot string
	SourceRoot  string
	// ConfigHash fingerprints the configuration; a change rebuilds everything.
	ConfigHash string
	Namespaces catalog.Namespaces

	RootIdentifier  string
	RootTitle       string
	RootDescription string

	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Input is the record set of one build.
type Input struct {
	Records []*record.Record
	// Failures are records whose extraction failed. Their previous state is
	// carried forward and they are reported, but not treated as removed.
	Failures []report.Failure
	// Full forces a global rebuild.
	Full bool
}

// Builder runs builds for one catalog. Builds must not run concurrently
// against the same catalog.
type Builder struct {
	bc         Context
	classifier *change.Classifier
	newID      func() string
}

// NewBuilder validates bc and returns a Builder.
func NewBuilder(bc Context) (*Builder, error) {
	switch {
	case bc.Spec == nil:
		return nil, ferrors.ValidationError("hierarchy spec is required").Build()
	case bc.FS == nil:
		return nil, ferrors.ValidationError("filesystem is required").Build()
	case bc.Store == nil:
		return nil, ferrors.ValidationError("state store is required").Build()
	case bc.CatalogRoot == "":
		return nil, ferrors.ValidationError("catalog root is required").Build()
	}
	if bc.Logger == nil {
		bc.Logger = slog.Default()
	}
	if bc.Recorder == nil {
		bc.Recorder = metrics.NoopRecorder{}
	}
	if bc.Namespaces == (catalog.Namespaces{}) {
		bc.Namespaces = catalog.DefaultNamespaces()
	}
	return &Builder{
		bc:         bc,
		classifier: change.NewClassifier(bc.Spec),
		newID:      uuid.NewString,
	}, nil
}

// Plan classifies in against the persisted state without touching the catalog.
func (b *Builder) Plan(ctx context.Context, in Input) (*change.Plan, error) {
	prev, err := b.loadState(ctx, b.bc.Logger)
	if err != nil {
		return nil, err
	}
	return b.classifier.Classify(b.request(prev, in)), nil
}

// Build runs one pass. The report is returned even when err is non-nil.
func (b *Builder) Build(ctx context.Context, in Input) (*report.Report, error) {
	start := time.Now()
	rep := report.New(b.newID())
	logger := b.bc.Logger.With(logfields.BuildID(rep.BuildID))
	rec := b.bc.Recorder

	rep.Failures = append(rep.Failures, in.Failures...)
	err := b.run(ctx, in, rep, logger)
	rep.Duration = time.Since(start)

	rec.ObserveBuildDuration(rep.Duration)
	for _, f := range rep.Failures {
		rec.IncRecordFailure(f.Outcome.String())
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		rec.IncBuildOutcome(metrics.BuildOutcomeCanceled)
		logger.Warn("Catalog build canceled", logfields.Error(err))
	case err != nil:
		rec.IncBuildOutcome(metrics.BuildOutcomeFailed)
		logger.Error("Catalog build failed", logfields.Error(err))
	case rep.HasFailures():
		rec.IncBuildOutcome(metrics.BuildOutcomePartial)
		logger.Warn("Catalog build completed with failures", slog.Any("report", rep))
	default:
		rec.IncBuildOutcome(metrics.BuildOutcomeSuccess)
		logger.Info("Catalog build completed", slog.Any("report", rep))
	}
	return rep, err
}

func (b *Builder) run(ctx context.Context, in Input, rep *report.Report, logger *slog.Logger) error {
	rec := b.bc.Recorder

	prev, err := b.loadState(ctx, logger)
	if err != nil {
		return err
	}

	stageStart := time.Now()
	req := b.request(prev, in)
	plan := b.classifier.Classify(req)
	rec.ObserveStageDuration(metrics.StageClassify, time.Since(stageStart))
	b.count(plan, rep)
	logger.Info("Classified records",
		slog.Bool("global", plan.Global),
		slog.Int("added", rep.Added),
		slog.Int("content_modified", rep.ContentModified),
		slog.Int("hierarchy_modified", rep.HierarchyModified),
		slog.Int("removed", rep.Removed),
		slog.Int("unchanged", rep.Unchanged),
		logfields.Level(rep.MinChangedLevel))

	next := state.New()
	next.ConfigHash = b.bc.ConfigHash
	for p := range req.Retained {
		e, ok := prev.Files[p]
		if !ok {
			continue
		}
		if plan.Global {
			next.Files[p] = &state.Entry{Hierarchy: e.Hierarchy}
			continue
		}
		next.Files[p] = e.Clone()
	}

	stageStart = time.Now()
	r := reconcile.New(reconcile.Options{
		FS:              b.bc.FS,
		CatalogRoot:     b.bc.CatalogRoot,
		SourceRoot:      b.bc.SourceRoot,
		Spec:            b.bc.Spec,
		Namespaces:      b.bc.Namespaces,
		RootIdentifier:  b.bc.RootIdentifier,
		RootTitle:       b.bc.RootTitle,
		RootDescription: b.bc.RootDescription,
		Logger:          logger,
	})
	err = r.Apply(ctx, plan, next, rep)
	rec.ObserveStageDuration(metrics.StageReconcile, time.Since(stageStart))
	b.countOps(rep)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return ferrors.BuildError("failed to reconcile catalog").WithCause(err).Build()
	}

	if next.Equal(prev) {
		logger.Debug("Build state unchanged", logfields.Path(b.bc.Store.Location()))
		return nil
	}
	stageStart = time.Now()
	if err := b.bc.Store.Save(ctx, next); err != nil {
		return err
	}
	rec.ObserveStageDuration(metrics.StageSave, time.Since(stageStart))
	rep.StateSaved = true
	logger.Debug("Saved build state", logfields.Path(b.bc.Store.Location()), logfields.Count(len(next.Files)))
	return nil
}

// loadState reads the previous state. A corrupt state is discarded, which
// forces a global rebuild through the config hash mismatch.
func (b *Builder) loadState(ctx context.Context, logger *slog.Logger) (*state.BuildState, error) {
	prev, err := b.bc.Store.Load(ctx)
	if errors.Is(err, state.ErrCorrupt) {
		logger.Warn("Discarding unreadable build state", logfields.Path(b.bc.Store.Location()), logfields.Error(err))
		return state.New(), nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if _, ok := ferrors.AsClassified(err); ok {
			return nil, err
		}
		return nil, ferrors.StateError("failed to load build state").WithCause(err).
			WithContext("path", b.bc.Store.Location()).Build()
	}
	return prev, nil
}

func (b *Builder) request(prev *state.BuildState, in Input) change.Request {
	retained := sets.New[string]()
	for _, f := range in.Failures {
		retained.Add(f.Path)
	}
	return change.Request{
		Previous:   prev,
		ConfigHash: b.bc.ConfigHash,
		Records:    in.Records,
		Retained:   retained,
		Force:      in.Full,
	}
}

func (b *Builder) count(plan *change.Plan, rep *report.Report) {
	rep.Global = plan.Global
	rep.Added = plan.Count(change.Added)
	rep.ContentModified = plan.Count(change.ContentModified)
	rep.HierarchyModified = plan.Count(change.HierarchyModified)
	rep.Unchanged = plan.Count(change.Unchanged)
	rep.Removed = len(plan.Removed)
	if level, ok := plan.MinChangedLevel(); ok {
		rep.MinChangedLevel = level
	}

	rec := b.bc.Recorder
	for _, k := range []change.Kind{change.Added, change.ContentModified, change.HierarchyModified, change.Unchanged} {
		rec.AddChanges(k.String(), plan.Count(k))
	}
	rec.AddChanges(change.Removed.String(), rep.Removed)
}

func (b *Builder) countOps(rep *report.Report) {
	rec := b.bc.Recorder
	rec.AddArtifactOps(metrics.OpResourceWritten, rep.ResourcesWritten)
	rec.AddArtifactOps(metrics.OpResourceDeleted, rep.ResourcesDeleted)
	rec.AddArtifactOps(metrics.OpIndexWritten, rep.IndexesWritten)
	rec.AddArtifactOps(metrics.OpIndexUnchanged, rep.IndexesUnchanged)
	rec.AddArtifactOps(metrics.OpDirRemoved, rep.DirsRemoved)
	rec.AddArtifactOps(metrics.OpOrphanRemoved, rep.Orphans)
}
