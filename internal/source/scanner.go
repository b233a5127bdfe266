// Package source discovers the Markdown documents a catalog is built from.
package source

import (
	"context"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/logfields"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

// IgnoreFile marks a directory whose subtree is skipped.
const IgnoreFile = ".catalogignore"

// DefaultExtensions are scanned when none are configured.
var DefaultExtensions = []string{".md", ".markdown"}

// Document is a discovered source file.
type Document struct {
	// Path is relative to the source root, slash separated. It keys the
	// document in the build state.
	Path    string
	AbsPath string
	ModTime time.Time
	Size    int64
}

// Options configures a Scanner.
type Options struct {
	FS   storage.FileSystem
	Root string
	// Extensions are matched case-insensitively, including the dot.
	Extensions []string
	// Prefix keeps only files whose name starts with it.
	Prefix string
	// Exclude lists host paths skipped with their subtree, such as the
	// catalog output when it lives below the source root.
	Exclude []string
	// Ignore holds path.Match patterns tested against the relative path and
	// the base name of every entry.
	Ignore []string
	Logger *slog.Logger
}

// Scanner walks a source directory.
type Scanner struct {
	opts    Options
	exclude []string
	logger  *slog.Logger
}

// NewScanner returns a Scanner for opts.
func NewScanner(opts Options) *Scanner {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	exclude := make([]string, 0, len(opts.Exclude))
	for _, e := range opts.Exclude {
		exclude = append(exclude, filepath.Clean(e))
	}
	return &Scanner{opts: opts, exclude: exclude, logger: opts.Logger}
}

// Scan returns every matching document ordered by path.
func (s *Scanner) Scan(ctx context.Context) ([]Document, error) {
	info, err := s.opts.FS.Stat(s.opts.Root)
	if err != nil {
		if storage.IsNotExist(err) {
			return nil, ferrors.NotFoundError("source directory does not exist").
				WithContext("path", s.opts.Root).Build()
		}
		return nil, ferrors.FileSystemError("failed to stat source directory").WithCause(err).
			WithContext("path", s.opts.Root).Build()
	}
	if !info.IsDir() {
		return nil, ferrors.ValidationError("source path is not a directory").
			WithContext("path", s.opts.Root).Build()
	}

	var docs []Document
	if err := s.walk(ctx, s.opts.Root, ".", &docs); err != nil {
		return nil, err
	}
	slices.SortFunc(docs, func(a, b Document) int { return strings.Compare(a.Path, b.Path) })
	s.logger.Debug("Scanned sources", logfields.Path(s.opts.Root), logfields.Count(len(docs)))
	return docs, nil
}

func (s *Scanner) walk(ctx context.Context, dir, rel string, docs *[]Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := s.opts.FS.ReadDir(dir)
	if err != nil {
		return ferrors.FileSystemError("failed to read source directory").WithCause(err).
			WithContext("path", dir).Build()
	}
	if rel != "." && slices.ContainsFunc(entries, func(e fs.DirEntry) bool { return e.Name() == IgnoreFile }) {
		s.logger.Debug("Skipping ignored directory", logfields.Dir(rel))
		return nil
	}

	for _, e := range entries {
		name := e.Name()
		abs := filepath.Join(dir, name)
		childRel := path.Join(rel, name)
		if strings.HasPrefix(name, ".") || s.excluded(abs) || s.ignored(childRel) {
			continue
		}
		if e.IsDir() {
			if err := s.walk(ctx, abs, childRel, docs); err != nil {
				return err
			}
			continue
		}
		if !s.matches(name) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return ferrors.FileSystemError("failed to stat source file").WithCause(err).
				WithContext("path", abs).Build()
		}
		*docs = append(*docs, Document{Path: childRel, AbsPath: abs, ModTime: fi.ModTime(), Size: fi.Size()})
	}
	return nil
}

func (s *Scanner) matches(name string) bool {
	if !strings.HasPrefix(name, s.opts.Prefix) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range s.opts.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func (s *Scanner) excluded(abs string) bool {
	return slices.Contains(s.exclude, abs)
}

func (s *Scanner) ignored(rel string) bool {
	base := path.Base(rel)
	for _, pattern := range s.opts.Ignore {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
