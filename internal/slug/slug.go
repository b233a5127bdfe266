// Package slug turns free-text labels into stable, filesystem-safe path segments.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/catalogbuilder/internal/util/sets"
)

// Unknown is the slug produced for blank input.
const Unknown = "unknown"

// Normalize maps text to a slug: surrounding whitespace trimmed, diacritics
// removed, lowercased, and every run of characters outside [A-Za-z0-9_-]
// collapsed to a single underscore. Blank input yields Unknown.
func Normalize(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Unknown
	}
	folded := strings.ToLower(stripDiacritics(trimmed))

	var b strings.Builder
	b.Grow(len(folded))
	inRun := false
	for _, r := range folded {
		if isSafe(r) {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('_')
			inRun = true
		}
	}
	return b.String()
}

// Unique returns base, or base_2, base_3, ... whichever is the first candidate
// not present in taken. The exclude name is treated as free so a record can
// keep its own previous filename.
func Unique(base string, taken sets.Set[string], exclude string) string {
	candidate := base
	for i := 2; taken.Has(candidate) && candidate != exclude; i++ {
		candidate = base + "_" + strconv.Itoa(i)
	}
	return candidate
}

// stripDiacritics decomposes text and drops combining marks. The transformer
// is stateful, so one is built per call.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}
