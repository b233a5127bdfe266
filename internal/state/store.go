package state

import (
	"context"
	"errors"
)

// ErrCorrupt is returned by Load when persisted state cannot be decoded.
var ErrCorrupt = errors.New("build state is corrupt")

// Store loads and saves BuildState. Save must leave either the old or the new
// state readable, never a partial one.
type Store interface {
	// Load returns the persisted state, or an empty state when none exists yet.
	Load(ctx context.Context) (*BuildState, error)
	Save(ctx context.Context, st *BuildState) error
	// Location describes where the state lives, for logs.
	Location() string
	Close() error
}
