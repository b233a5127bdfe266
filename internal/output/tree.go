// Package output renders catalogs, plans and build reports for the terminal.
package output

import (
	"fmt"
	"path"

	"github.com/disiqueira/gotree/v3"

	"git.home.luguber.info/inful/catalogbuilder/internal/catalog"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

// CatalogTree follows member references from the root index and renders the
// catalog as a tree. Members whose file is missing or unreadable are marked
// rather than failing the whole rendering.
func CatalogTree(fsys storage.FileSystem, catalogRoot string) (string, error) {
	rootIndex := path.Join(catalogRoot, catalog.IndexFile)
	root, err := readCollection(fsys, rootIndex)
	if err != nil {
		if storage.IsNotExist(err) {
			return "", ferrors.NotFoundError("catalog has not been built").
				WithContext("path", rootIndex).Build()
		}
		return "", ferrors.FileSystemError("failed to read catalog root").WithCause(err).
			WithContext("path", rootIndex).Build()
	}

	tree := gotree.New(collectionLabel(root, catalog.IndexFile))
	addMembers(fsys, tree, catalogRoot, root)
	return tree.Print(), nil
}

func addMembers(fsys storage.FileSystem, node gotree.Tree, dir string, c *catalog.Collection) {
	for _, m := range c.Members.Items {
		target := path.Join(dir, m.FilePath)
		if m.IsCollection() {
			child, err := readCollection(fsys, target)
			if err != nil {
				node.Add(m.FilePath + " [missing]")
				continue
			}
			sub := node.Add(collectionLabel(child, path.Dir(m.FilePath)+"/"))
			addMembers(fsys, sub, path.Dir(target), child)
			continue
		}
		data, err := fsys.ReadFile(target)
		if err != nil {
			node.Add(m.FilePath + " [missing]")
			continue
		}
		res, err := catalog.DecodeResource(data)
		if err != nil || len(res.Titles) == 0 {
			node.Add(m.FilePath + " [unreadable]")
			continue
		}
		node.Add(fmt.Sprintf("%s  %s", m.FilePath, res.Titles[0].Value))
	}
}

func readCollection(fsys storage.FileSystem, file string) (*catalog.Collection, error) {
	data, err := fsys.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return catalog.DecodeCollection(data)
}

func collectionLabel(c *catalog.Collection, location string) string {
	if c.Title == "" {
		return location
	}
	return fmt.Sprintf("%s  %s", location, c.Title)
}
