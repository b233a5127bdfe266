package storage

import (
	"io/fs"
	"os"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// OSFileSystem implements FileSystem on the host filesystem.
type OSFileSystem struct{}

// NewOSFileSystem returns the host filesystem.
func NewOSFileSystem() OSFileSystem { return OSFileSystem{} }

func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }

func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	// #nosec G304 -- paths are derived from configured source and catalog roots
	return os.ReadFile(name)
}

func (OSFileSystem) WriteFile(name string, data []byte) error {
	// #nosec G306 -- catalog artifacts are meant to be world readable
	return os.WriteFile(name, data, filePerm)
}

func (OSFileSystem) MkdirAll(name string) error { return os.MkdirAll(name, dirPerm) }

func (OSFileSystem) Remove(name string) error { return os.Remove(name) }

func (OSFileSystem) RemoveAll(name string) error { return os.RemoveAll(name) }

func (OSFileSystem) Rename(oldName, newName string) error { return os.Rename(oldName, newName) }

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
