package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

func sampleState() *BuildState {
	st := New()
	st.ConfigHash = "abc123"
	st.Files["novels/germinal.md"] = &Entry{
		ModTime:    1700000000.25,
		Hierarchy:  hierarchy.Fingerprint{"ex:corpus": "novels", "dc:creator": "zola"},
		OutputPath: "corpus/novels/author/zola/germinal.xml",
	}
	st.Files["drafts/untitled.md"] = &Entry{
		ModTime:   1700000100,
		Digest:    "deadbeef",
		Hierarchy: hierarchy.Fingerprint{},
	}
	return st
}

func TestJSONStoreMissingFileIsEmptyState(t *testing.T) {
	store := NewJSONStore(storage.NewMemFileSystem(), "/data/state.json")
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.ConfigHash)
	assert.Empty(t, st.Files)
}

func TestJSONStoreRoundTrip(t *testing.T) {
	fsys := storage.NewMemFileSystem()
	store := NewJSONStore(fsys, "/data/state.json")
	ctx := context.Background()

	want := sampleState()
	require.NoError(t, store.Save(ctx, want))
	assert.False(t, storage.Exists(fsys, "/data/state.json.tmp"), "temporary file is renamed away")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, []string{"drafts/untitled.md", "novels/germinal.md"}, got.Paths())
	assert.Equal(t, 1, got.Materialized())
}

func TestJSONStoreToleratesMissingOptionalFields(t *testing.T) {
	fsys := storage.NewMemFileSystem()
	require.NoError(t, fsys.MkdirAll("/data"))
	require.NoError(t, fsys.WriteFile("/data/state.json", []byte(`{
		"config_hash": null,
		"files": {"a.md": {"mtime": 12.5, "hierarchy": {"ex:corpus": "c"}}}
	}`)))

	st, err := NewJSONStore(fsys, "/data/state.json").Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.ConfigHash)
	require.Contains(t, st.Files, "a.md")
	assert.Empty(t, st.Files["a.md"].OutputPath)
	assert.InDelta(t, 12.5, st.Files["a.md"].ModTime, 0)
}

func TestJSONStoreCorrupt(t *testing.T) {
	fsys := storage.NewMemFileSystem()
	require.NoError(t, fsys.WriteFile("/state.json", []byte("{not json")))

	_, err := NewJSONStore(fsys, "/state.json").Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Files)

	want := sampleState()
	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	delete(want.Files, "drafts/untitled.md")
	want.ConfigHash = "def456"
	require.NoError(t, store.Save(ctx, want))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "save replaces previous rows")
}

func TestBuildStateEqual(t *testing.T) {
	a, b := sampleState(), sampleState()
	assert.True(t, a.Equal(b))

	b.Files["novels/germinal.md"] = b.Files["novels/germinal.md"].Clone()
	b.Files["novels/germinal.md"].Hierarchy["dc:creator"] = "hugo"
	assert.False(t, a.Equal(b))
	assert.Equal(t, "zola", a.Files["novels/germinal.md"].Hierarchy["dc:creator"], "clone is deep")

	var nilState *BuildState
	assert.False(t, a.Equal(nilState))
}
