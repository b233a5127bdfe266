package storage

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var errNotEmpty = errors.New("directory not empty")

// MemFileSystem is an in-memory FileSystem for tests. It counts mutating calls
// so tests can assert that a build touched nothing.
type MemFileSystem struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
	now   func() time.Time
	calls MemCalls
}

// MemCalls tracks mutating operations that changed the tree.
type MemCalls struct {
	WriteFile int
	MkdirAll  int
	Remove    int
	RemoveAll int
	Rename    int
}

// Mutations returns the total number of tree-changing calls.
func (c MemCalls) Mutations() int {
	return c.WriteFile + c.MkdirAll + c.Remove + c.RemoveAll + c.Rename
}

type memNode struct {
	dir     bool
	data    []byte
	modTime time.Time
}

// NewMemFileSystem creates an empty in-memory filesystem containing only "/".
func NewMemFileSystem() *MemFileSystem {
	m := &MemFileSystem{nodes: make(map[string]*memNode), now: time.Now}
	m.nodes["/"] = &memNode{dir: true, modTime: m.now()}
	return m
}

// Calls returns a snapshot of the mutation counters.
func (m *MemFileSystem) Calls() MemCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// ResetCalls zeroes the mutation counters.
func (m *MemFileSystem) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = MemCalls{}
}

// SetModTime overrides the modification time of an existing entry.
func (m *MemFileSystem) SetModTime(name string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[clean(name)]
	if !ok {
		return notExist("chtimes", name)
	}
	n.modTime = t
	return nil
}

func (m *MemFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := clean(name)
	n, ok := m.nodes[key]
	if !ok {
		return nil, notExist("readdir", name)
	}
	if !n.dir {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: errors.New("not a directory")}
	}
	var entries []fs.DirEntry
	for p, child := range m.nodes {
		if p != key && path.Dir(p) == key {
			entries = append(entries, memDirEntry{info: memFileInfo{name: path.Base(p), node: child}})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (m *MemFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[clean(name)]
	if !ok {
		return nil, notExist("open", name)
	}
	if n.dir {
		return nil, &fs.PathError{Op: "read", Path: name, Err: errors.New("is a directory")}
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

func (m *MemFileSystem) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := clean(name)
	parent, ok := m.nodes[path.Dir(key)]
	if !ok || !parent.dir {
		return notExist("open", name)
	}
	if n, ok := m.nodes[key]; ok && n.dir {
		return &fs.PathError{Op: "open", Path: name, Err: errors.New("is a directory")}
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.nodes[key] = &memNode{data: buf, modTime: m.now()}
	m.calls.WriteFile++
	return nil
}

func (m *MemFileSystem) MkdirAll(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := clean(name)
	var missing []string
	for p := key; ; p = path.Dir(p) {
		n, ok := m.nodes[p]
		if ok {
			if !n.dir {
				return &fs.PathError{Op: "mkdir", Path: p, Err: errors.New("not a directory")}
			}
			break
		}
		missing = append(missing, p)
	}
	if len(missing) == 0 {
		return nil
	}
	for _, p := range missing {
		m.nodes[p] = &memNode{dir: true, modTime: m.now()}
	}
	m.calls.MkdirAll++
	return nil
}

func (m *MemFileSystem) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := clean(name)
	n, ok := m.nodes[key]
	if !ok {
		return notExist("remove", name)
	}
	if n.dir && m.hasChildren(key) {
		return &fs.PathError{Op: "remove", Path: name, Err: errNotEmpty}
	}
	delete(m.nodes, key)
	m.calls.Remove++
	return nil
}

func (m *MemFileSystem) RemoveAll(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := clean(name)
	if _, ok := m.nodes[key]; !ok {
		return nil
	}
	prefix := key + "/"
	if key == "/" {
		prefix = "/"
	}
	for p := range m.nodes {
		if p != "/" && (p == key || strings.HasPrefix(p, prefix)) {
			delete(m.nodes, p)
		}
	}
	m.calls.RemoveAll++
	return nil
}

func (m *MemFileSystem) Rename(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, to := clean(oldName), clean(newName)
	n, ok := m.nodes[from]
	if !ok {
		return notExist("rename", oldName)
	}
	if parent, ok := m.nodes[path.Dir(to)]; !ok || !parent.dir {
		return notExist("rename", newName)
	}
	moved := map[string]*memNode{to: n}
	delete(m.nodes, from)
	if n.dir {
		for p, child := range m.nodes {
			if strings.HasPrefix(p, from+"/") {
				moved[to+strings.TrimPrefix(p, from)] = child
				delete(m.nodes, p)
			}
		}
	}
	for p, child := range moved {
		m.nodes[p] = child
	}
	m.calls.Rename++
	return nil
}

func (m *MemFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := clean(name)
	n, ok := m.nodes[key]
	if !ok {
		return nil, notExist("stat", name)
	}
	return memFileInfo{name: path.Base(key), node: n}, nil
}

func (m *MemFileSystem) hasChildren(key string) bool {
	for p := range m.nodes {
		if p != key && path.Dir(p) == key {
			return true
		}
	}
	return false
}

// clean maps any host path to a rooted slash path.
func clean(name string) string {
	return path.Clean("/" + filepath.ToSlash(name))
}

func notExist(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

type memFileInfo struct {
	name string
	node *memNode
}

func (i memFileInfo) Name() string { return i.name }
func (i memFileInfo) Size() int64  { return int64(len(i.node.data)) }
func (i memFileInfo) Mode() fs.FileMode {
	if i.node.dir {
		return fs.ModeDir | dirPerm
	}
	return filePerm
}
func (i memFileInfo) ModTime() time.Time { return i.node.modTime }
func (i memFileInfo) IsDir() bool        { return i.node.dir }
func (i memFileInfo) Sys() any           { return nil }

type memDirEntry struct {
	info memFileInfo
}

func (e memDirEntry) Name() string               { return e.info.name }
func (e memDirEntry) IsDir() bool                { return e.info.node.dir }
func (e memDirEntry) Type() fs.FileMode          { return e.info.Mode().Type() }
func (e memDirEntry) Info() (fs.FileInfo, error) { return e.info, nil }
