package daemon

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/logfields"
	"git.home.luguber.info/inful/catalogbuilder/internal/source"
)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Root       string
	Extensions []string
	// Exclude lists directories whose events are ignored, such as the
	// catalog output when it lives below the source root.
	Exclude []string
	Logger  *slog.Logger
}

// Watcher reports source changes below a directory tree. fsnotify is not
// recursive, so every directory is added and new ones are followed.
type Watcher struct {
	fsw     *fsnotify.Watcher
	opts    WatcherOptions
	exclude []string
	logger  *slog.Logger
}

// NewWatcher starts watching opts.Root and its subdirectories.
func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	if len(opts.Extensions) == 0 {
		opts.Extensions = source.DefaultExtensions
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.DaemonError("failed to create file watcher").WithCause(err).Build()
	}
	w := &Watcher{fsw: fsw, opts: opts, logger: opts.Logger}
	for _, e := range opts.Exclude {
		w.exclude = append(w.exclude, filepath.Clean(e))
	}
	if err := w.addTree(opts.Root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run forwards relevant events to notify until ctx is done or the watcher
// is closed.
func (w *Watcher) Run(ctx context.Context, notify func(reason string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) {
				if err := w.addTree(ev.Name); err != nil {
					w.logger.Warn("Failed to watch new directory", logfields.Dir(ev.Name), logfields.Error(err))
				}
			}
			w.logger.Debug("Source change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			notify(TriggerWatch)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// relevant filters out hidden entries, excluded trees, attribute changes and
// files the scanner would never read.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	if base == source.IgnoreFile {
		return !w.skipped(filepath.Dir(ev.Name))
	}
	if w.skipped(ev.Name) {
		return false
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		// The entry is gone; it may have been a directory of sources.
		return filepath.Ext(base) == "" || w.matches(base)
	}
	return isDir(ev.Name) || w.matches(base)
}

func (w *Watcher) matches(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.ContainsFunc(w.opts.Extensions, func(want string) bool { return strings.EqualFold(ext, want) })
}

func (w *Watcher) skipped(name string) bool {
	rel, err := filepath.Rel(w.opts.Root, name)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	clean := filepath.Clean(name)
	for _, e := range w.exclude {
		if clean == e || strings.HasPrefix(clean, e+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return ferrors.DaemonError("failed to walk watched directory").WithCause(err).
				WithContext("path", p).Build()
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.opts.Root && w.skipped(p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return ferrors.DaemonError("failed to watch directory").WithCause(err).
				WithContext("path", p).Build()
		}
		return nil
	})
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
