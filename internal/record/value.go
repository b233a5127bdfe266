package record

import (
	"maps"
	"slices"
	"strings"
)

type valueKind uint8

const (
	kindNone valueKind = iota
	kindPlain
	kindLocalized
)

// Value is a metadata field value: either a plain string or a mapping from
// language code to string.
type Value struct {
	kind      valueKind
	plain     string
	localized map[string]string
}

// LocalizedText is one language variant of a Value. Lang is empty for plain values.
type LocalizedText struct {
	Lang string
	Text string
}

// Plain returns a Value holding s.
func Plain(s string) Value {
	return Value{kind: kindPlain, plain: s}
}

// Localized returns a Value holding a copy of byLang.
func Localized(byLang map[string]string) Value {
	return Value{kind: kindLocalized, localized: maps.Clone(byLang)}
}

// IsZero reports whether v holds nothing.
func (v Value) IsZero() bool {
	return v.kind == kindNone
}

// IsLocalized reports whether v is a per-language mapping.
func (v Value) IsLocalized() bool {
	return v.kind == kindLocalized
}

// Representative returns the string used for grouping and naming: the plain
// string itself, or the variant for lang. A missing language or a blank
// string counts as absent.
func (v Value) Representative(lang string) (string, bool) {
	var s string
	switch v.kind {
	case kindPlain:
		s = v.plain
	case kindLocalized:
		s = v.localized[lang]
	default:
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Texts returns every variant of v, ordered by language code.
func (v Value) Texts() []LocalizedText {
	switch v.kind {
	case kindPlain:
		return []LocalizedText{{Text: v.plain}}
	case kindLocalized:
		langs := slices.Sorted(maps.Keys(v.localized))
		out := make([]LocalizedText, 0, len(langs))
		for _, lang := range langs {
			out = append(out, LocalizedText{Lang: lang, Text: v.localized[lang]})
		}
		return out
	}
	return nil
}
