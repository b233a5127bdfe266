package catalog

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/catalogbuilder/internal/record"
)

// UntitledLabel is used when a record has neither a title nor a first heading.
const UntitledLabel = "Untitled"

// NewCollection builds a collection index. Members are ordered with
// collections first, then by path, so identical member sets encode
// identically.
func NewCollection(identifier, title, description string, members []Member) *Collection {
	items := make([]Member, len(members))
	copy(items, members)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsCollection() != items[j].IsCollection() {
			return items[i].IsCollection()
		}
		return items[i].FilePath < items[j].FilePath
	})
	c := &Collection{Identifier: identifier, Title: title, Members: Members{Items: items}}
	if description != "" {
		c.DublinCore = &CollectionDublinCore{Description: Text{Value: description}}
	}
	return c
}

// NewResource maps a record onto its artifact. sourcePath is the path of the
// source document relative to the artifact's directory.
func NewResource(rec *record.Record, sourcePath string, ns Namespaces) *Resource {
	res := &Resource{
		Identifier:   rec.Identifier,
		FilePath:     sourcePath,
		Titles:       textsOf(rec, record.FieldTitle),
		Descriptions: textsOf(rec, record.FieldDescription),
		Authors:      textsOf(rec, record.FieldCreator),
		Works:        textsOf(rec, record.FieldWork),
		DublinCore:   TermBlock{XMLNS: ns.DublinCore, Terms: termElements(rec.DublinCore)},
		Extensions:   TermBlock{XMLNS: ns.Extensions, Terms: termElements(rec.Extensions)},
	}
	if len(res.Titles) == 0 {
		res.Titles = []Text{{Value: UntitledLabel}}
	}
	return res
}

// EncodeCollection renders c as an indented XML document.
func EncodeCollection(c *Collection) ([]byte, error) {
	return encode(c)
}

// EncodeResource renders r as an indented XML document.
func EncodeResource(r *Resource) ([]byte, error) {
	return encode(r)
}

// DecodeCollection parses an index.xml.
func DecodeCollection(data []byte) (*Collection, error) {
	var c Collection
	if err := xml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse collection index: %w", err)
	}
	return &c, nil
}

// DecodeResource parses a resource artifact.
func DecodeResource(data []byte) (*Resource, error) {
	var r Resource
	if err := xml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse resource: %w", err)
	}
	return &r, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func textsOf(rec *record.Record, key string) []Text {
	v, ok := rec.Field(key)
	if !ok {
		return nil
	}
	var out []Text
	for _, lt := range v.Texts() {
		if strings.TrimSpace(lt.Text) == "" {
			continue
		}
		out = append(out, Text{Lang: lt.Lang, Value: lt.Text})
	}
	return out
}

func termElements(terms []record.Term) []TermElement {
	out := make([]TermElement, 0, len(terms))
	for _, t := range terms {
		name := localName(t.Name)
		if name == "" {
			continue
		}
		out = append(out, TermElement{
			XMLName: xml.Name{Local: name},
			Lang:    t.Lang,
			Value:   t.Value,
		})
	}
	return out
}

// localName drops a namespace prefix or URI path from a term name.
func localName(name string) string {
	if i := strings.LastIndexAny(name, ":/#"); i >= 0 {
		return name[i+1:]
	}
	return name
}
