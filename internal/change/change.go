// Package change classifies every source record against the previous build state.
package change

import (
	"sort"

	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
	"git.home.luguber.info/inful/catalogbuilder/internal/state"
	"git.home.luguber.info/inful/catalogbuilder/internal/util/sets"
)

// Kind is the classification of one record.
type Kind int

const (
	Unchanged Kind = iota
	ContentModified
	HierarchyModified
	Added
	Removed
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case ContentModified:
		return "content_modified"
	case HierarchyModified:
		return "hierarchy_modified"
	case Added:
		return "added"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Change is the classification of one source path.
type Change struct {
	Path string
	Kind Kind
	// Level is the first hierarchy level that differs for HierarchyModified,
	// 0 for Added and -1 otherwise.
	Level int
	// Record is nil for Removed.
	Record *record.Record
	// Previous is nil for Added.
	Previous *state.Entry
	// Hierarchy is the current hierarchy fingerprint; nil for Removed.
	Hierarchy hierarchy.Fingerprint
}

// Plan is the classified change set of a build.
type Plan struct {
	// Global is set when every record is rebuilt from an empty catalog.
	Global bool
	// Changes covers every current record, ordered by path.
	Changes []Change
	// Removed covers previous paths without a current record, ordered by path.
	Removed []Change
}

// Count returns how many changes have kind k.
func (p *Plan) Count(k Kind) int {
	if k == Removed {
		return len(p.Removed)
	}
	n := 0
	for _, c := range p.Changes {
		if c.Kind == k {
			n++
		}
	}
	return n
}

// MinChangedLevel returns the shallowest level at which any record was added
// or moved. ok is false when no record was added or moved.
func (p *Plan) MinChangedLevel() (level int, ok bool) {
	level = -1
	for _, c := range p.Changes {
		if c.Kind != Added && c.Kind != HierarchyModified {
			continue
		}
		if !ok || c.Level < level {
			level, ok = c.Level, true
		}
	}
	return level, ok
}

// Request is the input of Classify.
type Request struct {
	Previous   *state.BuildState
	ConfigHash string
	Records    []*record.Record
	// Retained lists previous paths whose record could not be produced this
	// run; they are neither classified nor treated as removed.
	Retained sets.Set[string]
	// Force rebuilds everything as if the configuration had changed.
	Force bool
}

// Classifier compares records with the previous state.
type Classifier struct {
	spec *hierarchy.Spec
}

// NewClassifier returns a classifier for spec.
func NewClassifier(spec *hierarchy.Spec) *Classifier {
	return &Classifier{spec: spec}
}

// Classify builds the plan for req.
func (c *Classifier) Classify(req Request) *Plan {
	prev := req.Previous
	if prev == nil {
		prev = state.New()
	}
	plan := &Plan{Global: req.Force || prev.ConfigHash != req.ConfigHash}

	current := sets.New[string]()
	for _, r := range req.Records {
		current.Add(r.Path)
		fp := c.spec.FingerprintOf(r)
		ch := Change{Path: r.Path, Record: r, Hierarchy: fp, Level: -1}

		entry, known := prev.Files[r.Path]
		switch {
		case plan.Global || !known:
			ch.Kind, ch.Level = Added, 0
		case !entry.Hierarchy.Equal(fp):
			ch.Kind = HierarchyModified
			ch.Level = c.spec.DivergenceLevel(entry.Hierarchy, fp)
		case !entry.Fingerprint().Equal(r.Fingerprint):
			ch.Kind = ContentModified
		default:
			ch.Kind = Unchanged
		}
		if known && !plan.Global {
			ch.Previous = entry
		}
		plan.Changes = append(plan.Changes, ch)
	}
	sort.Slice(plan.Changes, func(i, j int) bool { return plan.Changes[i].Path < plan.Changes[j].Path })

	if plan.Global {
		return plan
	}
	for _, p := range prev.Paths() {
		if current.Has(p) || req.Retained.Has(p) {
			continue
		}
		plan.Removed = append(plan.Removed, Change{Path: p, Kind: Removed, Level: -1, Previous: prev.Files[p]})
	}
	return plan
}
