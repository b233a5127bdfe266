package build

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/catalogbuilder/internal/build/report"
	"git.home.luguber.info/inful/catalogbuilder/internal/catalog"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
	"git.home.luguber.info/inful/catalogbuilder/internal/metrics"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
	"git.home.luguber.info/inful/catalogbuilder/internal/state"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

const (
	catalogRoot = "/out/catalog"
	statePath   = "/out/.catalogbuilder/state.json"
)

type env struct {
	t    *testing.T
	fs   *storage.MemFileSystem
	spec *hierarchy.Spec
	hash string
	rec  metrics.Recorder
}

func twoLevels(t *testing.T) *hierarchy.Spec {
	t.Helper()
	spec, err := hierarchy.NewSpec([]hierarchy.Level{
		{Key: "ex:corpus", Slug: "corpus", Title: "Corpus"},
		{Key: "dc:creator", Slug: "author", Title: "Author"},
	}, "en")
	require.NoError(t, err)
	return spec
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return &env{t: t, fs: storage.NewMemFileSystem(), spec: twoLevels(t), hash: "h1"}
}

func (e *env) builder() *Builder {
	e.t.Helper()
	b, err := NewBuilder(Context{
		Spec:           e.spec,
		FS:             e.fs,
		Store:          state.NewJSONStore(e.fs, statePath),
		CatalogRoot:    catalogRoot,
		SourceRoot:     "/src",
		ConfigHash:     e.hash,
		RootIdentifier: "catalog",
		RootTitle:      "Catalog",
		Recorder:       e.rec,
	})
	require.NoError(e.t, err)
	return b
}

func (e *env) build(in Input) *report.Report {
	e.t.Helper()
	rep, err := e.builder().Build(context.Background(), in)
	require.NoError(e.t, err)
	return rep
}

func (e *env) buildRecords(records ...*record.Record) *report.Report {
	e.t.Helper()
	return e.build(Input{Records: records})
}

func (e *env) exists(rel string) bool {
	return storage.Exists(e.fs, filepath.Join(catalogRoot, rel))
}

func (e *env) read(name string) []byte {
	e.t.Helper()
	data, err := e.fs.ReadFile(name)
	require.NoError(e.t, err)
	return data
}

func (e *env) members(rel string) []string {
	e.t.Helper()
	c, err := catalog.DecodeCollection(e.read(filepath.Join(catalogRoot, rel)))
	require.NoError(e.t, err)
	var out []string
	for _, m := range c.Members.Items {
		out = append(out, m.FilePath)
	}
	return out
}

func (e *env) state() *state.BuildState {
	e.t.Helper()
	st, err := state.NewJSONStore(e.fs, statePath).Load(context.Background())
	require.NoError(e.t, err)
	return st
}

func doc(path, title string, mtime float64, fields ...string) *record.Record {
	r := &record.Record{
		Identifier:  path,
		Path:        path,
		Fingerprint: record.Fingerprint{ModTime: mtime},
		Fields:      map[string]record.Value{"title": record.Plain(title)},
	}
	for i := 0; i+1 < len(fields); i += 2 {
		r.Fields[fields[i]] = record.Plain(fields[i+1])
	}
	return r
}

func scenario() []*record.Record {
	return []*record.Record{
		doc("a.md", "A", 1, "corpus", "X", "creator", "Y"),
		doc("b.md", "B", 1, "corpus", "X", "creator", "Y"),
		doc("c.md", "C", 1, "corpus", "X", "creator", "Z"),
	}
}

func TestBuildScenarioTreeAndRemoval(t *testing.T) {
	e := newEnv(t)
	rep := e.buildRecords(scenario()...)

	assert.True(t, rep.Global)
	assert.Equal(t, 3, rep.Added)
	assert.True(t, rep.StateSaved)
	assert.Equal(t, []string{"corpus/x/index.xml"}, e.members(catalog.IndexFile))
	assert.Equal(t, []string{"author/y/index.xml", "author/z/index.xml"}, e.members("corpus/x/index.xml"))
	assert.Equal(t, []string{"a.xml", "b.xml"}, e.members("corpus/x/author/y/index.xml"))
	assert.Equal(t, []string{"c.xml"}, e.members("corpus/x/author/z/index.xml"))

	records := scenario()
	rep = e.buildRecords(records[0], records[2])

	assert.False(t, rep.Global)
	assert.Equal(t, 1, rep.Removed)
	assert.False(t, e.exists("corpus/x/author/y/b.xml"))
	assert.Equal(t, []string{"a.xml"}, e.members("corpus/x/author/y/index.xml"))
	assert.Equal(t, []string{"c.xml"}, e.members("corpus/x/author/z/index.xml"))
	assert.Equal(t, []string{"author/y/index.xml", "author/z/index.xml"}, e.members("corpus/x/index.xml"))

	st := e.state()
	assert.NotContains(t, st.Files, "b.md")
	assert.Equal(t, "corpus/x/author/y/a.xml", st.Files["a.md"].OutputPath)
}

func TestBuildIsIdempotent(t *testing.T) {
	e := newEnv(t)
	e.buildRecords(scenario()...)
	stateBefore := e.read(statePath)
	e.fs.ResetCalls()

	rep := e.buildRecords(scenario()...)

	assert.Zero(t, e.fs.Calls().Mutations())
	assert.False(t, rep.StateSaved)
	assert.Equal(t, 3, rep.Unchanged)
	assert.Equal(t, -1, rep.MinChangedLevel)
	assert.Equal(t, stateBefore, e.read(statePath))
}

func TestBuildLeafRenameStability(t *testing.T) {
	e := newEnv(t)
	e.buildRecords(scenario()...)
	rootIndex := e.read(filepath.Join(catalogRoot, catalog.IndexFile))

	records := scenario()
	records[0] = doc("a.md", "A", 1, "corpus", "X", "creator", "W")
	rep := e.buildRecords(records...)

	assert.Equal(t, 1, rep.HierarchyModified)
	assert.Equal(t, 1, rep.MinChangedLevel)
	assert.False(t, e.exists("corpus/x/author/y/a.xml"))
	assert.True(t, e.exists("corpus/x/author/w/a.xml"))
	assert.Equal(t, []string{"b.xml"}, e.members("corpus/x/author/y/index.xml"))
	assert.Equal(t,
		[]string{"author/w/index.xml", "author/y/index.xml", "author/z/index.xml"},
		e.members("corpus/x/index.xml"))
	assert.Equal(t, rootIndex, e.read(filepath.Join(catalogRoot, catalog.IndexFile)))
	assert.Equal(t, "corpus/x/author/w/a.xml", e.state().Files["a.md"].OutputPath)
}

func TestBuildHierarchyMoveCascade(t *testing.T) {
	spec, err := hierarchy.NewSpec([]hierarchy.Level{
		{Key: "ex:corpus", Slug: "corpus"},
		{Key: "dc:creator", Slug: "author"},
		{Key: "ex:genre", Slug: "genre"},
	}, "en")
	require.NoError(t, err)
	e := newEnv(t)
	e.spec = spec

	e.buildRecords(
		doc("a.md", "A", 1, "corpus", "X", "creator", "Y", "genre", "Novel"),
		doc("b.md", "B", 1, "corpus", "X", "creator", "Y", "genre", "Poem"),
		doc("c.md", "C", 1, "corpus", "X", "creator", "Z", "genre", "Novel"),
	)
	require.True(t, e.exists("corpus/x/author/y/genre/novel/a.xml"))

	rep := e.buildRecords(
		doc("a.md", "A", 1, "corpus", "X", "creator", "Z", "genre", "Novel"),
		doc("b.md", "B", 1, "corpus", "X", "creator", "Y", "genre", "Poem"),
		doc("c.md", "C", 1, "corpus", "X", "creator", "Z", "genre", "Novel"),
	)

	assert.Equal(t, 1, rep.MinChangedLevel)
	assert.False(t, e.exists("corpus/x/author/y/genre/novel"))
	assert.True(t, e.exists("corpus/x/author/y/genre/poem/b.xml"))
	assert.Equal(t, []string{"genre/poem/index.xml"}, e.members("corpus/x/author/y/index.xml"))
	assert.Equal(t, []string{"a.xml", "c.xml"}, e.members("corpus/x/author/z/genre/novel/index.xml"))
	assert.Equal(t, 1, rep.DirsRemoved)

	// Moving b as well leaves nothing under author y.
	rep = e.buildRecords(
		doc("a.md", "A", 1, "corpus", "X", "creator", "Z", "genre", "Novel"),
		doc("b.md", "B", 1, "corpus", "X", "creator", "Z", "genre", "Poem"),
		doc("c.md", "C", 1, "corpus", "X", "creator", "Z", "genre", "Novel"),
	)
	assert.False(t, e.exists("corpus/x/author/y"))
	assert.True(t, e.exists("corpus/x/author/z/genre/poem/b.xml"))
	assert.Equal(t, []string{"author/z/index.xml"}, e.members("corpus/x/index.xml"))
	assert.Equal(t, []string{"corpus/x/index.xml"}, e.members(catalog.IndexFile))
}

func TestBuildRemovesOrphans(t *testing.T) {
	e := newEnv(t)
	e.buildRecords(scenario()...)
	stray := filepath.Join(catalogRoot, "corpus/x/author/y/stray.xml")
	require.NoError(t, e.fs.WriteFile(stray, []byte("<resource/>")))

	records := scenario()
	records[1] = doc("b.md", "B", 2, "corpus", "X", "creator", "Y")
	rep := e.buildRecords(records...)

	assert.Equal(t, 1, rep.Orphans)
	assert.False(t, storage.Exists(e.fs, stray))
	assert.Equal(t, []string{"a.xml", "b.xml"}, e.members("corpus/x/author/y/index.xml"))
}

func TestBuildConfigChangeRebuildsEverything(t *testing.T) {
	e := newEnv(t)
	e.buildRecords(scenario()...)
	require.NoError(t, e.fs.WriteFile(filepath.Join(catalogRoot, "notes.txt"), []byte("x")))

	e.hash = "h2"
	rep := e.buildRecords(scenario()...)

	assert.True(t, rep.Global)
	assert.Equal(t, 3, rep.Added)
	assert.Equal(t, 3, rep.ResourcesWritten)
	assert.Equal(t, 0, rep.MinChangedLevel)
	assert.False(t, e.exists("notes.txt"))
	assert.Equal(t, []string{"a.xml", "b.xml"}, e.members("corpus/x/author/y/index.xml"))
	assert.Equal(t, "h2", e.state().ConfigHash)
}

func TestBuildFullFlagForcesGlobalRebuild(t *testing.T) {
	e := newEnv(t)
	e.buildRecords(scenario()...)

	rep := e.build(Input{Records: scenario(), Full: true})

	assert.True(t, rep.Global)
	assert.Equal(t, 3, rep.ResourcesWritten)
	assert.False(t, rep.StateSaved)
}

func TestBuildExtractionFailureRetainsPreviousEntry(t *testing.T) {
	e := newEnv(t)
	e.buildRecords(scenario()...)

	records := scenario()
	rep := e.build(Input{
		Records:  []*record.Record{records[0], records[2]},
		Failures: []report.Failure{{Path: "b.md", Outcome: report.OutcomeExtractionFailed, Reason: "bad yaml"}},
	})

	assert.Equal(t, 0, rep.Removed)
	assert.True(t, rep.HasFailures())
	assert.True(t, e.exists("corpus/x/author/y/b.xml"))
	assert.Equal(t, "corpus/x/author/y/b.xml", e.state().Files["b.md"].OutputPath)
	assert.False(t, rep.StateSaved)
}

func TestBuildCorruptStateTriggersRebuild(t *testing.T) {
	e := newEnv(t)
	e.buildRecords(scenario()...)
	require.NoError(t, e.fs.WriteFile(statePath, []byte("{not json")))

	rep := e.buildRecords(scenario()...)

	assert.True(t, rep.Global)
	assert.True(t, rep.StateSaved)
	assert.Len(t, e.state().Files, 3)
}

func TestBuildSkippedRecordsStayOutOfCatalog(t *testing.T) {
	spec, err := hierarchy.NewSpec([]hierarchy.Level{
		{Key: "ex:corpus", Slug: "corpus", IfMissing: hierarchy.Skip},
		{Key: "dc:creator", Slug: "author"},
	}, "en")
	require.NoError(t, err)
	e := newEnv(t)
	e.spec = spec

	rep := e.buildRecords(
		doc("a.md", "A", 1, "corpus", "X", "creator", "Y"),
		doc("n.md", "N", 1, "creator", "Y"),
	)

	assert.Equal(t, 1, rep.Skipped)
	assert.Empty(t, e.state().Files["n.md"].OutputPath)
	assert.Equal(t, []string{"corpus/x/index.xml"}, e.members(catalog.IndexFile))
}

func TestBuildLocalizedFieldsUseRepresentativeLanguage(t *testing.T) {
	e := newEnv(t)
	r := doc("a.md", "A", 1, "creator", "Y")
	r.Fields["corpus"] = record.Localized(map[string]string{"en": "Novels", "fr": "Romans"})

	e.buildRecords(r)

	assert.True(t, e.exists("corpus/novels/author/y/a.xml"))
	assert.Equal(t, hierarchy.Fingerprint{"ex:corpus": "novels", "dc:creator": "y"}, e.state().Files["a.md"].Hierarchy)
}

type countingRecorder struct {
	metrics.NoopRecorder
	outcomes map[metrics.BuildOutcomeLabel]int
	changes  map[string]int
	ops      map[string]int
	builds   int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		outcomes: map[metrics.BuildOutcomeLabel]int{},
		changes:  map[string]int{},
		ops:      map[string]int{},
	}
}

func (c *countingRecorder) ObserveBuildDuration(time.Duration)         { c.builds++ }
func (c *countingRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) { c.outcomes[o]++ }
func (c *countingRecorder) AddChanges(kind string, n int)               { c.changes[kind] += n }
func (c *countingRecorder) AddArtifactOps(op string, n int)             { c.ops[op] += n }

func TestBuildRecordsMetrics(t *testing.T) {
	e := newEnv(t)
	rec := newCountingRecorder()
	e.rec = rec

	e.buildRecords(scenario()...)
	e.build(Input{
		Records:  scenario()[:2],
		Failures: []report.Failure{{Path: "c.md", Outcome: report.OutcomeExtractionFailed}},
	})

	assert.Equal(t, 2, rec.builds)
	assert.Equal(t, 1, rec.outcomes[metrics.BuildOutcomeSuccess])
	assert.Equal(t, 1, rec.outcomes[metrics.BuildOutcomePartial])
	assert.Equal(t, 3, rec.changes["added"])
	assert.Equal(t, 2, rec.changes["unchanged"])
	assert.Equal(t, 3, rec.ops[metrics.OpResourceWritten])
}

func TestBuildCanceledContext(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := e.builder().Build(ctx, Input{Records: scenario()})

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, rep)
	assert.False(t, rep.StateSaved)
}

func TestPlanDoesNotTouchCatalog(t *testing.T) {
	e := newEnv(t)
	e.buildRecords(scenario()...)
	e.fs.ResetCalls()

	records := scenario()
	records[0] = doc("a.md", "A", 1, "corpus", "X", "creator", "W")
	plan, err := e.builder().Plan(context.Background(), Input{Records: records[:2]})

	require.NoError(t, err)
	assert.Zero(t, e.fs.Calls().Mutations())
	assert.Len(t, plan.Removed, 1)
	level, ok := plan.MinChangedLevel()
	assert.True(t, ok)
	assert.Equal(t, 1, level)
}

func TestNewBuilderValidatesContext(t *testing.T) {
	_, err := NewBuilder(Context{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	fs := storage.NewMemFileSystem()
	_, err = NewBuilder(Context{Spec: twoLevels(t), FS: fs, Store: state.NewJSONStore(fs, statePath)})
	require.Error(t, err)
}
