package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

func setup(t *testing.T, dirs []string, files ...string) *storage.MemFileSystem {
	t.Helper()
	m := storage.NewMemFileSystem()
	for _, d := range dirs {
		require.NoError(t, m.MkdirAll("/cat/"+d))
	}
	for _, f := range files {
		require.NoError(t, m.WriteFile("/cat/"+f, []byte("x")))
	}
	return m
}

func TestSweepRemovesEmptyChain(t *testing.T) {
	m := setup(t,
		[]string{"corpus/x/author/y", "corpus/w"},
		"index.xml", "corpus/x/index.xml", "corpus/x/author/y/index.xml", "corpus/w/index.xml",
	)
	s := New(m, "/cat", nil)

	res, err := s.Sweep("corpus/x/author/y", ".")
	require.NoError(t, err)
	assert.Equal(t, []string{"corpus/x/author/y", "corpus/x/author", "corpus/x"}, res.Removed)
	assert.Equal(t, "corpus", res.Stopped, "corpus still holds w")
	assert.True(t, storage.Exists(m, "/cat/corpus/w/index.xml"))
	assert.True(t, storage.Exists(m, "/cat/index.xml"))
}

func TestSweepStopsAtContent(t *testing.T) {
	m := setup(t, []string{"corpus/x/author/y"}, "corpus/x/author/y/germinal.xml", "corpus/x/author/y/index.xml")
	res, err := New(m, "/cat", nil).Sweep("corpus/x/author/y", ".")
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	assert.Equal(t, "corpus/x/author/y", res.Stopped)
	assert.True(t, storage.Exists(m, "/cat/corpus/x/author/y/index.xml"))
}

func TestSweepRespectsBoundary(t *testing.T) {
	m := setup(t, []string{"corpus/x/author/y"}, "corpus/x/index.xml", "corpus/x/author/y/index.xml")
	res, err := New(m, "/cat", nil).Sweep("corpus/x/author/y", "corpus/x")
	require.NoError(t, err)
	assert.Equal(t, []string{"corpus/x/author/y", "corpus/x/author"}, res.Removed)
	assert.Equal(t, "corpus/x", res.Stopped)
	assert.True(t, storage.Exists(m, "/cat/corpus/x/index.xml"), "boundary group keeps its index")
}

func TestSweepNeverRemovesRoot(t *testing.T) {
	m := setup(t, []string{"corpus"}, "index.xml")
	res, err := New(m, "/cat", nil).Sweep("corpus", ".")
	require.NoError(t, err)
	assert.Equal(t, []string{"corpus"}, res.Removed)
	assert.Equal(t, ".", res.Stopped)
	assert.True(t, storage.Exists(m, "/cat"))
}

func TestSweepMissingDirectoryClimbs(t *testing.T) {
	m := setup(t, []string{"corpus/x"}, "corpus/x/index.xml")
	res, err := New(m, "/cat", nil).Sweep("corpus/x/author/y", ".")
	require.NoError(t, err)
	assert.Equal(t, []string{"corpus/x", "corpus"}, res.Removed)
}

func TestProtects(t *testing.T) {
	assert.True(t, Protects("corpus/x", "corpus/x"))
	assert.True(t, Protects("corpus/x", "corpus"))
	assert.True(t, Protects("corpus/x", "."))
	assert.False(t, Protects("corpus/x", "corpus/x/author"))
	assert.False(t, Protects("corpus/x", "corpus/xy"))
	assert.False(t, Protects(".", "corpus"))
}
