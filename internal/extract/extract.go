// Package extract turns source documents into records.
//
// Metadata comes from the YAML frontmatter through a term mapping such as
// dc:creator -> author: the term names the catalog field, the value names the
// frontmatter key it is read from. Terms prefixed with "dc:" end up in the
// Dublin Core block of the resource, every other prefixed term in the
// extensions block.
package extract

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/catalogbuilder/internal/markdown"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
	"git.home.luguber.info/inful/catalogbuilder/internal/slug"
	"git.home.luguber.info/inful/catalogbuilder/internal/source"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

// FingerprintMode selects how content changes are detected.
type FingerprintMode string

const (
	// FingerprintMTime compares modification times.
	FingerprintMTime FingerprintMode = "mtime"
	// FingerprintContent compares a digest of frontmatter and body, so
	// touching a file without editing it is not a change.
	FingerprintContent FingerprintMode = "content"
)

// DublinCorePrefix marks terms of the Dublin Core block.
const DublinCorePrefix = "dc:"

// Frontmatter keys with fixed meaning.
const (
	KeyUID        = "uid"
	KeyIdentifier = "identifier"
	keyLastmod    = "lastmod"
)

// multiValueSeparator joins list values into one label.
const multiValueSeparator = "; "

// Extractor produces the record of one document.
type Extractor interface {
	Extract(ctx context.Context, doc source.Document) (*record.Record, error)
}

// Options configures a Markdown extractor.
type Options struct {
	FS storage.FileSystem
	// Mapping maps terms to frontmatter keys.
	Mapping     map[string]string
	Fingerprint FingerprintMode
	// SummaryFallback fills a missing description with the first paragraph.
	SummaryFallback bool
}

// Markdown extracts records from Markdown documents with YAML frontmatter.
type Markdown struct {
	opts  Options
	terms []string
}

// NewMarkdown returns an extractor for opts.
func NewMarkdown(opts Options) *Markdown {
	if opts.Fingerprint == "" {
		opts.Fingerprint = FingerprintMTime
	}
	return &Markdown{opts: opts, terms: slices.Sorted(maps.Keys(opts.Mapping))}
}

// Extract reads doc and builds its record.
func (m *Markdown) Extract(ctx context.Context, doc source.Document) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := m.opts.FS.ReadFile(doc.AbsPath)
	if err != nil {
		return nil, ferrors.ExtractionError("failed to read source document").WithCause(err).
			WithContext("path", doc.Path).Build()
	}
	parsed, err := frontmatter.Parse(data)
	if err != nil {
		return nil, ferrors.ExtractionError("failed to parse frontmatter").WithCause(err).
			WithContext("path", doc.Path).Build()
	}

	rec := &record.Record{
		Identifier: identifier(doc.Path, parsed.Fields),
		Path:       doc.Path,
		Fields:     make(map[string]record.Value),
	}
	for _, term := range m.terms {
		raw, ok := parsed.Fields[m.opts.Mapping[term]]
		if !ok {
			continue
		}
		v, ok := toValue(raw)
		if !ok {
			continue
		}
		rec.Fields[record.FieldName(term)] = v
		terms := termsOf(term, v)
		if strings.HasPrefix(term, DublinCorePrefix) {
			rec.DublinCore = append(rec.DublinCore, terms...)
		} else if strings.Contains(term, ":") {
			rec.Extensions = append(rec.Extensions, terms...)
		}
	}

	_, hasTitle := rec.Field(record.FieldTitle)
	_, hasDescription := rec.Field(record.FieldDescription)
	if !hasTitle || (m.opts.SummaryFallback && !hasDescription) {
		outline := markdown.Inspect(parsed.Body)
		if !hasTitle && outline.Title != "" {
			rec.Fields[record.FieldTitle] = record.Plain(outline.Title)
		}
		if m.opts.SummaryFallback && !hasDescription && outline.Summary != "" {
			rec.Fields[record.FieldDescription] = record.Plain(outline.Summary)
		}
	}

	switch m.opts.Fingerprint {
	case FingerprintContent:
		digest, err := contentDigest(parsed)
		if err != nil {
			return nil, ferrors.ExtractionError("failed to fingerprint document").WithCause(err).
				WithContext("path", doc.Path).Build()
		}
		rec.Fingerprint = record.Fingerprint{Digest: digest}
	default:
		rec.Fingerprint = record.Fingerprint{ModTime: record.ModTimeOf(doc.ModTime)}
	}
	return rec, nil
}

func identifier(docPath string, fields map[string]any) string {
	for _, key := range []string{KeyUID, KeyIdentifier} {
		if s, ok := frontmatter.Scalar(fields[key]); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	stem := strings.TrimSuffix(docPath, pathExt(docPath))
	return slug.Normalize(strings.ReplaceAll(stem, "/", "_"))
}

func pathExt(p string) string {
	base := p[strings.LastIndex(p, "/")+1:]
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[i:]
	}
	return ""
}

func toValue(raw any) (record.Value, bool) {
	if m, ok := frontmatter.StringMap(raw); ok {
		if len(m) == 0 {
			return record.Value{}, false
		}
		return record.Localized(m), true
	}
	list := frontmatter.Strings(raw)
	if len(list) == 0 {
		return record.Value{}, false
	}
	return record.Plain(strings.Join(list, multiValueSeparator)), true
}

func termsOf(name string, v record.Value) []record.Term {
	texts := v.Texts()
	out := make([]record.Term, 0, len(texts))
	for _, t := range texts {
		out = append(out, record.Term{Name: name, Value: t.Text, Lang: t.Lang})
	}
	return out
}

// contentDigest hashes the frontmatter, minus bookkeeping keys that change
// without the content changing, together with the body.
func contentDigest(doc frontmatter.Document) (string, error) {
	fields := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		if k == mdfp.FingerprintField || k == keyLastmod {
			continue
		}
		fields[k] = v
	}
	fm := ""
	if len(fields) > 0 {
		out, err := yaml.Marshal(fields)
		if err != nil {
			return "", err
		}
		fm = strings.TrimSuffix(string(out), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, string(doc.Body)), nil
}
