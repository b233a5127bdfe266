package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystemRoundTrip(t *testing.T) {
	fsys := NewOSFileSystem()
	root := t.TempDir()
	dir := filepath.Join(root, "corpus", "x")

	require.NoError(t, fsys.MkdirAll(dir))
	file := filepath.Join(dir, "index.xml")
	require.NoError(t, fsys.WriteFile(file, []byte("<collection/>")))

	data, err := fsys.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "<collection/>", string(data))

	entries, err := fsys.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.xml", entries[0].Name())

	require.NoError(t, fsys.Remove(file))
	_, err = fsys.Stat(file)
	assert.True(t, IsNotExist(err))
	require.NoError(t, fsys.RemoveAll(filepath.Join(root, "corpus")))
	assert.False(t, Exists(fsys, dir))
}
