// Package sweep removes group directories that no longer hold any content,
// climbing toward the catalog root.
package sweep

import (
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/catalog"
	"git.home.luguber.info/inful/catalogbuilder/internal/logfields"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

// Result describes one sweep.
type Result struct {
	// Removed lists the removed directories, deepest first.
	Removed []string
	// Stopped is the directory the sweep stopped at: the first one that still
	// holds content, is protected, or the catalog root.
	Stopped string
}

// Sweeper removes empty group directories below a catalog root.
type Sweeper struct {
	fs     storage.FileSystem
	root   string
	logger *slog.Logger
}

// New returns a sweeper for the catalog rooted at root.
func New(fsys storage.FileSystem, root string, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{fs: fsys, root: root, logger: logger}
}

// Sweep starts at dir and removes it if it is empty apart from its index,
// then repeats with its parent. It never removes boundary, any ancestor of
// boundary, or the root. Both paths are catalog-relative and slash separated.
func (s *Sweeper) Sweep(dir, boundary string) (Result, error) {
	var res Result
	cur := path.Clean(dir)
	for cur != "." && !Protects(boundary, cur) {
		abs := s.abs(cur)
		entries, err := s.fs.ReadDir(abs)
		if err != nil {
			if storage.IsNotExist(err) {
				cur = path.Dir(cur)
				continue
			}
			res.Stopped = cur
			return res, s.fsError(err, cur)
		}
		if hasContent(entries) {
			break
		}
		if len(entries) > 0 {
			if err := s.fs.Remove(filepath.Join(abs, catalog.IndexFile)); err != nil && !storage.IsNotExist(err) {
				res.Stopped = cur
				return res, s.fsError(err, cur)
			}
		}
		if err := s.fs.Remove(abs); err != nil && !storage.IsNotExist(err) {
			res.Stopped = cur
			return res, s.fsError(err, cur)
		}
		s.logger.Debug("Removed empty catalog directory", logfields.Dir(cur))
		res.Removed = append(res.Removed, cur)
		cur = path.Dir(cur)
	}
	res.Stopped = cur
	return res, nil
}

// Protects reports whether boundary shields dir from removal: dir is the
// boundary itself or one of its ancestors.
func Protects(boundary, dir string) bool {
	boundary, dir = path.Clean(boundary), path.Clean(dir)
	if dir == "." || dir == boundary {
		return true
	}
	return strings.HasPrefix(boundary, dir+"/")
}

// hasContent reports whether entries hold anything besides a collection index.
func hasContent(entries []fs.DirEntry) bool {
	for _, e := range entries {
		if e.Name() != catalog.IndexFile {
			return true
		}
	}
	return false
}

func (s *Sweeper) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *Sweeper) fsError(err error, dir string) error {
	return ferrors.FileSystemError("failed to remove empty catalog directory").WithCause(err).
		WithContext("dir", dir).Build()
}
