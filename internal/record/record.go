// Package record holds the metadata model extracted from one source document.
package record

import (
	"strings"
	"time"
)

// Field names the catalog gives special meaning to.
const (
	FieldTitle       = "title"
	FieldWorkTitle   = "workTitle"
	FieldDescription = "description"
	FieldCreator     = "creator"
	FieldWork        = "work"
)

// DefaultFileBase is the filename base used when a record has no title.
const DefaultFileBase = "work"

// FieldName returns the record field a namespaced term is stored under: the
// part after the prefix, so "dc:creator" is stored as "creator".
func FieldName(term string) string {
	if i := strings.LastIndex(term, ":"); i >= 0 {
		return term[i+1:]
	}
	return term
}

// Term is one namespaced metadata term, e.g. dc:creator = "Zola".
type Term struct {
	Name  string
	Value string
	Lang  string
}

// Fingerprint detects content changes of a source document. ModTime is in
// seconds since the epoch; Digest is only set when content hashing is enabled.
type Fingerprint struct {
	ModTime float64
	Digest  string
}

// ModTimeOf converts t to the fingerprint's float seconds representation.
func ModTimeOf(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Equal reports whether two fingerprints describe the same content.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.ModTime == o.ModTime && f.Digest == o.Digest
}

// IsZero reports whether f is unset.
func (f Fingerprint) IsZero() bool {
	return f.ModTime == 0 && f.Digest == ""
}

// Record is the metadata of one source document.
type Record struct {
	// Identifier is stable across builds; defaults to the source file stem.
	Identifier string
	// Path is the source path relative to the source root, slash separated.
	Path        string
	Fingerprint Fingerprint
	DublinCore  []Term
	Extensions  []Term
	Fields      map[string]Value
}

// Field returns the value stored under key.
func (r *Record) Field(key string) (Value, bool) {
	v, ok := r.Fields[key]
	if !ok || v.IsZero() {
		return Value{}, false
	}
	return v, true
}

// Label returns the representative string of field key for lang.
func (r *Record) Label(key, lang string) (string, bool) {
	v, ok := r.Field(key)
	if !ok {
		return "", false
	}
	return v.Representative(lang)
}

// FileBase returns the raw label the artifact filename is derived from:
// the work title, else the title, else DefaultFileBase.
func (r *Record) FileBase(lang string) string {
	for _, key := range []string{FieldWorkTitle, FieldTitle} {
		if s, ok := r.Label(key, lang); ok {
			return strings.TrimSpace(s)
		}
	}
	return DefaultFileBase
}
