// Package catalog defines the XML artifacts of the catalog tree: a collection
// index per group directory and one resource file per record.
package catalog

import (
	"encoding/xml"
	"path"
	"strings"

	"git.home.luguber.info/inful/catalogbuilder/internal/util/sets"
)

const (
	// IndexFile is the collection index every group directory holds.
	IndexFile = "index.xml"
	// Ext is the extension of resource and index files.
	Ext = ".xml"

	elemCollection = "collection"
	elemResource   = "resource"
)

// Namespaces are the XML namespaces of dublinCore and extensions blocks.
type Namespaces struct {
	DublinCore string
	Extensions string
}

// DefaultNamespaces returns the namespaces used when none are configured.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		DublinCore: "http://purl.org/dc/elements/1.1/",
		Extensions: "http://example.org/catalog/extensions/1.0/",
	}
}

// Text is an element with character data and an optional xml:lang.
type Text struct {
	XMLNS string `xml:"xmlns,attr,omitempty"`
	Lang  string `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Member references a child collection index or a resource file by a path
// relative to the collection's own directory.
type Member struct {
	XMLName  xml.Name
	FilePath string `xml:"filepath,attr"`
}

// IsCollection reports whether m references a child collection.
func (m Member) IsCollection() bool { return m.XMLName.Local == elemCollection }

// CollectionRef returns a member pointing at a child collection index.
func CollectionRef(filePath string) Member {
	return Member{XMLName: xml.Name{Local: elemCollection}, FilePath: filePath}
}

// ResourceRef returns a member pointing at a resource file.
func ResourceRef(filePath string) Member {
	return Member{XMLName: xml.Name{Local: elemResource}, FilePath: filePath}
}

// Members is the ordered member list of a collection.
type Members struct {
	Items []Member `xml:",any"`
}

// CollectionDublinCore carries the collection's description.
type CollectionDublinCore struct {
	Description Text `xml:"description"`
}

// Collection is the content of an index.xml.
type Collection struct {
	XMLName    xml.Name              `xml:"collection"`
	Identifier string                `xml:"identifier,attr,omitempty"`
	Title      string                `xml:"title,omitempty"`
	DublinCore *CollectionDublinCore `xml:"dublinCore,omitempty"`
	Members    Members               `xml:"members"`
}

// MemberPaths returns the set of member file paths.
func (c *Collection) MemberPaths() sets.Set[string] {
	out := sets.New[string]()
	for _, m := range c.Members.Items {
		out.Add(m.FilePath)
	}
	return out
}

// TermElement is one namespaced term inside a dublinCore or extensions block.
type TermElement struct {
	XMLName xml.Name
	Lang    string `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// TermBlock groups term elements under a default namespace.
type TermBlock struct {
	XMLNS string        `xml:"xmlns,attr,omitempty"`
	Terms []TermElement `xml:",any"`
}

// Resource is the content of a per-record artifact.
type Resource struct {
	XMLName      xml.Name  `xml:"resource"`
	Identifier   string    `xml:"identifier,attr"`
	FilePath     string    `xml:"filepath,attr"`
	Titles       []Text    `xml:"title"`
	Descriptions []Text    `xml:"description,omitempty"`
	Authors      []Text    `xml:"author,omitempty"`
	Works        []Text    `xml:"work,omitempty"`
	DublinCore   TermBlock `xml:"dublinCore"`
	Extensions   TermBlock `xml:"extensions"`
}

// IsArtifact reports whether a directory entry name is a resource file.
func IsArtifact(name string) bool {
	return name != IndexFile && strings.HasSuffix(name, Ext) && !strings.HasPrefix(name, ".")
}

// Stem returns the file name of p without directory and extension.
func Stem(p string) string {
	return strings.TrimSuffix(path.Base(p), Ext)
}
