package state

import (
	"maps"
	"slices"

	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
)

// Entry is the persisted knowledge about one source file.
type Entry struct {
	ModTime   float64               `json:"mtime"`
	Digest    string                `json:"digest,omitempty"`
	Hierarchy hierarchy.Fingerprint `json:"hierarchy"`
	// OutputPath is the artifact path relative to the catalog root, set only
	// when the file was materialized by the last completed build.
	OutputPath string `json:"output_filepath,omitempty"`
}

// Fingerprint returns the content fingerprint recorded for the file.
func (e *Entry) Fingerprint() record.Fingerprint {
	return record.Fingerprint{ModTime: e.ModTime, Digest: e.Digest}
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	out := *e
	out.Hierarchy = maps.Clone(e.Hierarchy)
	return &out
}

func (e *Entry) equal(o *Entry) bool {
	return e.ModTime == o.ModTime &&
		e.Digest == o.Digest &&
		e.OutputPath == o.OutputPath &&
		e.Hierarchy.Equal(o.Hierarchy)
}

// BuildState is everything remembered from the previous build.
type BuildState struct {
	ConfigHash string            `json:"config_hash"`
	Files      map[string]*Entry `json:"files"`
}

// New returns an empty state, as seen before the first build.
func New() *BuildState {
	return &BuildState{Files: make(map[string]*Entry)}
}

// Paths returns the tracked source paths in sorted order.
func (s *BuildState) Paths() []string {
	return slices.Sorted(maps.Keys(s.Files))
}

// Equal reports whether two states hold identical data.
func (s *BuildState) Equal(o *BuildState) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.ConfigHash != o.ConfigHash || len(s.Files) != len(o.Files) {
		return false
	}
	for p, e := range s.Files {
		other, ok := o.Files[p]
		if !ok || !e.equal(other) {
			return false
		}
	}
	return true
}

// Materialized counts entries that currently own an artifact.
func (s *BuildState) Materialized() int {
	n := 0
	for _, e := range s.Files {
		if e.OutputPath != "" {
			n++
		}
	}
	return n
}
