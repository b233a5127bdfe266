package state

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

// JSONStore keeps the build state in a single JSON document.
type JSONStore struct {
	fs   storage.FileSystem
	path string
	mu   sync.Mutex
}

// NewJSONStore creates a store writing to statePath on fsys.
func NewJSONStore(fsys storage.FileSystem, statePath string) *JSONStore {
	return &JSONStore{fs: fsys, path: statePath}
}

func (js *JSONStore) Location() string { return js.path }

func (js *JSONStore) Load(ctx context.Context) (*BuildState, error) {
	js.mu.Lock()
	defer js.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := js.fs.ReadFile(js.path)
	if err != nil {
		if storage.IsNotExist(err) {
			return New(), nil
		}
		return nil, ferrors.StateError("failed to read build state").WithCause(err).
			WithContext("path", js.path).Build()
	}

	st := New()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, js.path, err)
	}
	if st.Files == nil {
		st.Files = make(map[string]*Entry)
	}
	for p, e := range st.Files {
		if e == nil {
			delete(st.Files, p)
		}
	}
	return st, nil
}

// Save writes st to a temporary file next to the state file and renames it
// into place.
func (js *JSONStore) Save(ctx context.Context, st *BuildState) error {
	js.mu.Lock()
	defer js.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return ferrors.InternalError("failed to marshal build state").WithCause(err).Build()
	}
	if err := js.fs.MkdirAll(filepath.Dir(js.path)); err != nil {
		return js.saveError(err)
	}
	tempPath := js.path + ".tmp"
	if err := js.fs.WriteFile(tempPath, data); err != nil {
		return js.saveError(err)
	}
	if err := js.fs.Rename(tempPath, js.path); err != nil {
		_ = js.fs.Remove(tempPath)
		return js.saveError(err)
	}
	return nil
}

func (js *JSONStore) Close() error { return nil }

func (js *JSONStore) saveError(err error) error {
	return ferrors.StateError("failed to save build state").WithCause(err).
		WithContext("path", js.path).Build()
}
