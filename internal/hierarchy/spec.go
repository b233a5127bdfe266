// Package hierarchy describes the ordered grouping levels of a catalog and
// computes where a record belongs in it.
package hierarchy

import (
	"maps"
	"path"
	"strings"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
	"git.home.luguber.info/inful/catalogbuilder/internal/slug"
)

// Level is one grouping dimension of the catalog.
type Level struct {
	// Key is the metadata term grouped by, e.g. "dc:creator".
	Key string
	// Title prefixes group titles: "<Title> : <label>".
	Title string
	// Slug is the directory segment holding this level's groups.
	Slug      string
	IfMissing MissingPolicy
}

// FieldName returns the record field a level reads: the key without its namespace prefix.
func (l Level) FieldName() string {
	return record.FieldName(l.Key)
}

// UnknownLabel is the label of the synthetic group used by CreateUnknown.
func (l Level) UnknownLabel() string {
	return "Unknown " + l.Slug
}

// Fingerprint maps level keys to the slug a record resolved to. Levels the
// record bypassed (skip or attach_to_parent) are absent.
type Fingerprint map[string]string

// Equal reports whether both fingerprints place a record identically.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return maps.Equal(f, o)
}

// Spec is a validated, immutable hierarchy definition.
type Spec struct {
	levels []Level
	lang   string
}

// NewSpec validates levels and returns a Spec. lang is the representative
// language used to resolve localized labels.
func NewSpec(levels []Level, lang string) (*Spec, error) {
	if len(levels) == 0 {
		return nil, ferrors.ConfigError("hierarchy must define at least one level").Build()
	}
	if strings.TrimSpace(lang) == "" {
		lang = "en"
	}
	seenKeys := make(map[string]bool, len(levels))
	seenSlugs := make(map[string]bool, len(levels))
	out := make([]Level, len(levels))
	for i, lvl := range levels {
		lvl.Key = strings.TrimSpace(lvl.Key)
		lvl.Slug = strings.TrimSpace(lvl.Slug)
		if lvl.Key == "" {
			return nil, ferrors.ConfigError("hierarchy level has no key").WithContext("level", i).Build()
		}
		if lvl.Slug == "" {
			return nil, ferrors.ConfigError("hierarchy level has no slug").WithContext("level", i).Build()
		}
		if slug.Normalize(lvl.Slug) != lvl.Slug {
			return nil, ferrors.ConfigError("hierarchy level slug is not a valid path segment").
				WithContext("level", i).WithContext("slug", lvl.Slug).Build()
		}
		if seenKeys[lvl.Key] || seenSlugs[lvl.Slug] {
			return nil, ferrors.ConfigError("hierarchy levels must have distinct keys and slugs").
				WithContext("level", i).WithContext("key", lvl.Key).Build()
		}
		seenKeys[lvl.Key] = true
		seenSlugs[lvl.Slug] = true

		policy, err := ParsePolicy(string(lvl.IfMissing))
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid if_missing policy").
				Fatal().WithContext("level", i).Build()
		}
		if i == 0 && policy == AttachToParent {
			return nil, ferrors.ConfigError("first hierarchy level cannot use attach_to_parent").Build()
		}
		lvl.IfMissing = policy
		if strings.TrimSpace(lvl.Title) == "" {
			lvl.Title = lvl.FieldName()
		}
		out[i] = lvl
	}
	return &Spec{levels: out, lang: lang}, nil
}

// Len returns the number of levels.
func (s *Spec) Len() int { return len(s.levels) }

// Last returns the index of the leaf level.
func (s *Spec) Last() int { return len(s.levels) - 1 }

// Level returns level i.
func (s *Spec) Level(i int) Level { return s.levels[i] }

// Levels returns a copy of all levels.
func (s *Spec) Levels() []Level {
	out := make([]Level, len(s.levels))
	copy(out, s.levels)
	return out
}

// Language returns the representative language.
func (s *Spec) Language() string { return s.lang }

// LevelBySlug finds the level whose directory segment is slugDir.
func (s *Spec) LevelBySlug(slugDir string) (Level, bool) {
	for _, lvl := range s.levels {
		if lvl.Slug == slugDir {
			return lvl, true
		}
	}
	return Level{}, false
}

// Label returns the raw label of r at level i.
func (s *Spec) Label(r *record.Record, i int) (string, bool) {
	return r.Label(s.levels[i].FieldName(), s.lang)
}

// FingerprintOf resolves r against every level.
func (s *Spec) FingerprintOf(r *record.Record) Fingerprint {
	fp := make(Fingerprint, len(s.levels))
	for i, lvl := range s.levels {
		if label, ok := s.Label(r, i); ok {
			fp[lvl.Key] = slug.Normalize(label)
			continue
		}
		if lvl.IfMissing == CreateUnknown {
			fp[lvl.Key] = slug.Normalize(lvl.UnknownLabel())
		}
	}
	return fp
}

// DivergenceLevel returns the first level at which old and cur place a record
// differently. Identical fingerprints yield Len().
func (s *Spec) DivergenceLevel(old, cur Fingerprint) int {
	for i, lvl := range s.levels {
		ov, oOK := old[lvl.Key]
		cv, cOK := cur[lvl.Key]
		if oOK != cOK || ov != cv {
			return i
		}
	}
	return len(s.levels)
}

// Dir returns the catalog-relative directory a record with fp is written to,
// slash separated, "." for the catalog root. ok is false when a skip level
// keeps the record out of the catalog.
func (s *Spec) Dir(fp Fingerprint) (string, bool) {
	return s.dirUpTo(fp, len(s.levels))
}

// BoundaryDir returns the directory of the deepest group above level i on
// fp's path. Cleanup after a change at level i never climbs past it.
func (s *Spec) BoundaryDir(fp Fingerprint, i int) string {
	dir, ok := s.dirUpTo(fp, i)
	if !ok {
		return "."
	}
	return dir
}

func (s *Spec) dirUpTo(fp Fingerprint, n int) (string, bool) {
	parts := make([]string, 0, 2*n)
	for _, lvl := range s.levels[:min(n, len(s.levels))] {
		v, ok := fp[lvl.Key]
		if !ok {
			if lvl.IfMissing == Skip {
				return "", false
			}
			continue
		}
		parts = append(parts, lvl.Slug, v)
	}
	if len(parts) == 0 {
		return ".", true
	}
	return path.Join(parts...), true
}
