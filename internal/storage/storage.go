// Package storage provides the filesystem primitives the catalog builder reads
// sources and mutates the catalog tree with.
package storage

import (
	"errors"
	"io/fs"
)

// FileSystem is the set of operations used on source and catalog trees.
// Names are host paths; implementations must report missing entries with
// errors matching fs.ErrNotExist.
type FileSystem interface {
	// ReadDir returns the entries of a directory sorted by name.
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	// WriteFile creates or truncates name. The parent directory must exist.
	WriteFile(name string, data []byte) error
	MkdirAll(name string) error
	// Remove deletes a file or an empty directory.
	Remove(name string) error
	RemoveAll(name string) error
	Rename(oldName, newName string) error
	Stat(name string) (fs.FileInfo, error)
}

// IsNotExist reports whether err signals a missing file or directory.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Exists reports whether name is present on fsys.
func Exists(fsys FileSystem, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil
}
