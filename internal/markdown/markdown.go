// Package markdown reads the parts of a Markdown body the catalog uses when
// frontmatter leaves them out.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Outline is what the catalog reads from a body.
type Outline struct {
	// Title is the first level-1 heading, else the first heading of any level.
	Title string
	// Summary is the plain text of the first paragraph.
	Summary string
}

// Parse parses a Markdown body (frontmatter already removed) into a Goldmark AST.
func Parse(body []byte) gmast.Node {
	return goldmark.New().Parser().Parse(text.NewReader(body))
}

// Inspect extracts the outline of body.
func Inspect(body []byte) Outline {
	root := Parse(body)

	var out Outline
	var firstHeading string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			txt := plainText(node, body)
			if txt == "" {
				return gmast.WalkSkipChildren, nil
			}
			if firstHeading == "" {
				firstHeading = txt
			}
			if node.Level == 1 && out.Title == "" {
				out.Title = txt
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.Paragraph:
			if out.Summary == "" {
				out.Summary = plainText(node, body)
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	if out.Title == "" {
		out.Title = firstHeading
	}
	return out
}

// FirstHeading returns the title heading of body.
func FirstHeading(body []byte) (string, bool) {
	t := Inspect(body).Title
	return t, t != ""
}

// plainText concatenates the text segments below n, turning line breaks into
// spaces.
func plainText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		case *gmast.AutoLink:
			b.Write(t.Label(src))
		}
		return gmast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
