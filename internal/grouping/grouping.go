// Package grouping partitions records into the nested groups of a hierarchy.
package grouping

import (
	"path"

	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
	"git.home.luguber.info/inful/catalogbuilder/internal/slug"
)

// Node is the identity shared by every group.
type Node struct {
	Level      int
	Slug       string
	Identifier string
	Title      string
	// Dir is the group directory relative to the catalog root, slash separated.
	Dir string
}

// Group is either a *BranchGroup or a *LeafGroup.
type Group interface {
	Info() Node
	isGroup()
}

// BranchGroup is a non-leaf group holding child groups.
type BranchGroup struct {
	Node
	Children []Group
}

// LeafGroup holds the records of a leaf-level group. An attached leaf has no
// identity of its own: its records live directly in the parent group's
// directory because they lack the leaf-level field.
type LeafGroup struct {
	Node
	Records  []*record.Record
	Attached bool
}

func (g *BranchGroup) Info() Node { return g.Node }
func (g *LeafGroup) Info() Node   { return g.Node }
func (*BranchGroup) isGroup()     {}
func (*LeafGroup) isGroup()       {}

// Engine groups records according to a hierarchy.
type Engine struct {
	spec *hierarchy.Spec
}

// NewEngine returns an engine for spec.
func NewEngine(spec *hierarchy.Spec) *Engine {
	return &Engine{spec: spec}
}

// Group partitions records starting at the first level. Groups keep the order
// in which their first record was seen; records keep input order.
func (e *Engine) Group(records []*record.Record) []Group {
	return e.group(0, ".", "", records)
}

type bucket struct {
	label   string
	records []*record.Record
}

func (e *Engine) group(level int, parentDir, parentID string, records []*record.Record) []Group {
	lvl := e.spec.Level(level)
	leaf := level == e.spec.Last()

	var order []string
	buckets := make(map[string]*bucket)
	var attached []*record.Record

	for _, r := range records {
		label, ok := e.spec.Label(r, level)
		if !ok {
			switch lvl.IfMissing {
			case hierarchy.Skip:
				continue
			case hierarchy.AttachToParent:
				attached = append(attached, r)
				continue
			default:
				label = lvl.UnknownLabel()
			}
		}
		key := slug.Normalize(label)
		b, seen := buckets[key]
		if !seen {
			b = &bucket{label: label}
			buckets[key] = b
			order = append(order, key)
		}
		b.records = append(b.records, r)
	}

	groups := make([]Group, 0, len(order)+1)
	for _, key := range order {
		b := buckets[key]
		node := Node{
			Level:      level,
			Slug:       key,
			Identifier: JoinIdentifier(parentID, key),
			Title:      Title(lvl, b.label),
			Dir:        path.Join(parentDir, lvl.Slug, key),
		}
		if leaf {
			groups = append(groups, &LeafGroup{Node: node, Records: b.records})
			continue
		}
		groups = append(groups, &BranchGroup{
			Node:     node,
			Children: e.group(level+1, node.Dir, node.Identifier, b.records),
		})
	}

	if len(attached) > 0 {
		if leaf {
			groups = append(groups, &LeafGroup{
				Node:     Node{Level: level, Identifier: parentID, Dir: parentDir},
				Records:  attached,
				Attached: true,
			})
		} else {
			groups = append(groups, e.group(level+1, parentDir, parentID, attached)...)
		}
	}
	return groups
}

// JoinIdentifier derives a group identifier from its parent's.
func JoinIdentifier(parentID, groupSlug string) string {
	if parentID == "" {
		return groupSlug
	}
	return parentID + "_" + groupSlug
}

// Title formats a group title from its level and raw label.
func Title(lvl hierarchy.Level, label string) string {
	return lvl.Title + " : " + label
}

// Walk visits groups depth first, parents before children.
func Walk(groups []Group, fn func(Group)) {
	for _, g := range groups {
		fn(g)
		if b, ok := g.(*BranchGroup); ok {
			Walk(b.Children, fn)
		}
	}
}

// Leaves returns every leaf group in walk order.
func Leaves(groups []Group) []*LeafGroup {
	var out []*LeafGroup
	Walk(groups, func(g Group) {
		if l, ok := g.(*LeafGroup); ok {
			out = append(out, l)
		}
	})
	return out
}
