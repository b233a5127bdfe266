// Package reconcile applies a classified change plan to the catalog tree.
//
// Work happens in three passes. Records that keep their place are rewritten
// or left alone; records that leave a directory have their old artifact
// deleted first. Pending records are then grouped and written into their leaf
// directories. Finally every directory touched is refreshed deepest first:
// orphan artifacts are deleted, empty directories are swept, and an index is
// rewritten only when its member set changed.
package reconcile

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/catalogbuilder/internal/build/report"
	"git.home.luguber.info/inful/catalogbuilder/internal/catalog"
	"git.home.luguber.info/inful/catalogbuilder/internal/change"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/grouping"
	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
	"git.home.luguber.info/inful/catalogbuilder/internal/logfields"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
	"git.home.luguber.info/inful/catalogbuilder/internal/slug"
	"git.home.luguber.info/inful/catalogbuilder/internal/state"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
	"git.home.luguber.info/inful/catalogbuilder/internal/sweep"
	"git.home.luguber.info/inful/catalogbuilder/internal/util/sets"
)

// Options configures a Reconciler.
type Options struct {
	FS storage.FileSystem
	// CatalogRoot and SourceRoot are host paths.
	CatalogRoot     string
	SourceRoot      string
	Spec            *hierarchy.Spec
	Namespaces      catalog.Namespaces
	RootIdentifier  string
	RootTitle       string
	RootDescription string
	Logger          *slog.Logger
}

// Reconciler mutates the catalog tree. It is not safe for concurrent use.
type Reconciler struct {
	opts    Options
	engine  *grouping.Engine
	sweeper *sweep.Sweeper
	logger  *slog.Logger

	next  *state.BuildState
	rep   *report.Report
	dirty map[string]string
	owned map[string]sets.Set[string]
	meta  map[string]groupMeta
}

type groupMeta struct {
	identifier string
	title      string
}

// pending is a record waiting for placement. prevPath is set when the
// record's current artifact lives in the directory it will be placed in.
type pending struct {
	change   change.Change
	prevPath string
}

// New returns a Reconciler.
func New(opts Options) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reconciler{
		opts:    opts,
		engine:  grouping.NewEngine(opts.Spec),
		sweeper: sweep.New(opts.FS, opts.CatalogRoot, opts.Logger),
		logger:  opts.Logger,
	}
}

// Apply brings the catalog tree in line with plan. Entries for every current
// record are written into next; entries already present in next (records
// carried forward from the previous state) keep their artifacts. Per-record
// problems are recorded in rep; the returned error is reserved for failures
// that make the whole build meaningless.
func (r *Reconciler) Apply(ctx context.Context, plan *change.Plan, next *state.BuildState, rep *report.Report) error {
	r.next, r.rep = next, rep
	r.dirty = make(map[string]string)
	r.owned = make(map[string]sets.Set[string])
	r.meta = make(map[string]groupMeta)

	if err := r.opts.FS.MkdirAll(r.opts.CatalogRoot); err != nil {
		return ferrors.FileSystemError("failed to create catalog root").WithCause(err).
			Fatal().WithContext("path", r.opts.CatalogRoot).Build()
	}
	if plan.Global {
		if err := r.wipe(); err != nil {
			return err
		}
	}
	for _, e := range next.Files {
		if e.OutputPath != "" {
			r.own(e.OutputPath)
		}
	}

	for _, c := range plan.Removed {
		r.remove(c)
	}

	var queue []*pending
	for _, c := range plan.Changes {
		if err := ctx.Err(); err != nil {
			return err
		}
		var p *pending
		switch c.Kind {
		case change.Unchanged:
			p = r.keep(c)
		case change.ContentModified:
			p = r.rewrite(c)
		case change.HierarchyModified:
			p = r.detach(c)
		case change.Added:
			p = &pending{change: c}
		}
		if p != nil {
			queue = append(queue, p)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	r.place(queue)
	return r.refresh(ctx)
}

// wipe empties the catalog root for a global rebuild.
func (r *Reconciler) wipe() error {
	entries, err := r.opts.FS.ReadDir(r.opts.CatalogRoot)
	if err != nil {
		return ferrors.FileSystemError("failed to list catalog root").WithCause(err).
			Fatal().WithContext("path", r.opts.CatalogRoot).Build()
	}
	for _, e := range entries {
		if err := r.opts.FS.RemoveAll(filepath.Join(r.opts.CatalogRoot, e.Name())); err != nil {
			return ferrors.FileSystemError("failed to clear catalog root").WithCause(err).
				Fatal().WithContext("path", e.Name()).Build()
		}
		if e.IsDir() {
			r.rep.DirsRemoved++
		} else {
			r.rep.ResourcesDeleted++
		}
	}
	r.logger.Info("Cleared catalog for full rebuild", logfields.Path(r.opts.CatalogRoot), logfields.Count(len(entries)))
	r.markDirty(".", ".")
	return nil
}

// remove deletes the artifact of a record whose source is gone.
func (r *Reconciler) remove(c change.Change) {
	out := c.Previous.OutputPath
	if out == "" {
		return
	}
	if err := r.removeArtifact(out); err != nil {
		r.rep.Fail(c.Path, report.OutcomeFilesystemFailed, err)
		r.next.Files[c.Path] = c.Previous.Clone()
		r.logger.Warn("Failed to remove artifact of deleted record", logfields.Record(c.Path), logfields.Error(err))
		return
	}
	r.logger.Debug("Removed artifact", logfields.Record(c.Path), logfields.Output(out))
	r.markDirty(path.Dir(out), ".")
}

// keep handles an unchanged record. A missing artifact is re-placed.
func (r *Reconciler) keep(c change.Change) *pending {
	out := c.Previous.OutputPath
	if out == "" {
		r.setEntry(c, "")
		return nil
	}
	if _, err := r.opts.FS.Stat(r.abs(out)); storage.IsNotExist(err) {
		r.rep.Repaired++
		r.logger.Info("Artifact missing, placing record again", logfields.Record(c.Path), logfields.Output(out))
		return &pending{change: c}
	}
	r.own(out)
	r.setEntry(c, out)
	return nil
}

// rewrite regenerates a content-modified record at its existing path.
func (r *Reconciler) rewrite(c change.Change) *pending {
	out := c.Previous.OutputPath
	if out == "" {
		return &pending{change: c}
	}
	existed := storage.Exists(r.opts.FS, r.abs(out))
	if err := r.writeResource(c.Record, out); err != nil {
		r.fail(c, err)
		r.markDirty(path.Dir(out), ".")
		return nil
	}
	r.own(out)
	r.setEntry(c, out)
	if !existed {
		r.rep.Repaired++
	}
	r.markDirty(path.Dir(out), path.Dir(out))
	r.logger.Debug("Rewrote artifact", logfields.Record(c.Path), logfields.Output(out))
	return nil
}

// detach prepares a hierarchy-modified record for placement. Leaving a
// directory deletes the old artifact now; the old directory is refreshed
// later but never swept above the group the record still shares with its
// new position.
func (r *Reconciler) detach(c change.Change) *pending {
	out := c.Previous.OutputPath
	if out == "" {
		return &pending{change: c}
	}
	oldDir := path.Dir(out)
	if newDir, ok := r.opts.Spec.Dir(c.Hierarchy); ok && newDir == oldDir {
		r.own(out)
		return &pending{change: c, prevPath: out}
	}
	if err := r.removeArtifact(out); err != nil {
		r.rep.Fail(c.Path, report.OutcomeFilesystemFailed, err)
		r.logger.Warn("Failed to remove moved artifact", logfields.Record(c.Path), logfields.Output(out), logfields.Error(err))
	}
	r.markDirty(oldDir, r.opts.Spec.BoundaryDir(c.Previous.Hierarchy, c.Level))
	r.logger.Debug("Detached moved record",
		logfields.Record(c.Path), logfields.Output(out), logfields.Level(c.Level))
	return &pending{change: c}
}

// place groups pending records and writes them into their leaf directories.
func (r *Reconciler) place(queue []*pending) {
	if len(queue) == 0 {
		return
	}
	byRecord := make(map[*record.Record]*pending, len(queue))
	records := make([]*record.Record, 0, len(queue))
	for _, p := range queue {
		byRecord[p.change.Record] = p
		records = append(records, p.change.Record)
	}

	placed := sets.New[string]()
	grouping.Walk(r.engine.Group(records), func(g grouping.Group) {
		switch g := g.(type) {
		case *grouping.BranchGroup:
			r.meta[g.Dir] = groupMeta{identifier: g.Identifier, title: g.Title}
		case *grouping.LeafGroup:
			if !g.Attached {
				r.meta[g.Dir] = groupMeta{identifier: g.Identifier, title: g.Title}
			}
			r.placeLeaf(g, byRecord, placed)
		}
	})

	for _, p := range queue {
		if placed.Has(p.change.Path) {
			continue
		}
		if p.prevPath != "" {
			if err := r.removeArtifact(p.prevPath); err == nil {
				r.disown(p.prevPath)
				r.markDirty(path.Dir(p.prevPath), ".")
			}
		}
		r.rep.Skipped++
		r.setEntry(p.change, "")
		r.logger.Debug("Record excluded by hierarchy", logfields.Record(p.change.Path))
	}
}

func (r *Reconciler) placeLeaf(g *grouping.LeafGroup, byRecord map[*record.Record]*pending, placed sets.Set[string]) {
	for _, rec := range g.Records {
		placed.Add(rec.Path)
	}
	if err := r.opts.FS.MkdirAll(r.abs(g.Dir)); err != nil {
		for _, rec := range g.Records {
			r.fail(byRecord[rec].change, err)
		}
		return
	}
	taken, err := r.prepareDir(g.Dir)
	if err != nil {
		for _, rec := range g.Records {
			r.fail(byRecord[rec].change, err)
		}
		return
	}

	claimed := sets.New[string]()
	lang := r.opts.Spec.Language()
	for _, rec := range g.Records {
		p := byRecord[rec]
		base := slug.Normalize(rec.FileBase(lang))
		exclude := ""
		if p.prevPath != "" && path.Dir(p.prevPath) == g.Dir {
			exclude = catalog.Stem(p.prevPath)
		}
		name := slug.Unique(base, taken, exclude)
		if claimed.Has(name) {
			name = slug.Unique(base, taken, "")
		}
		claimed.Add(name)
		taken.Add(name)

		out := path.Join(g.Dir, name+catalog.Ext)
		if p.prevPath != "" && p.prevPath != out {
			if err := r.removeArtifact(p.prevPath); err != nil {
				r.logger.Warn("Failed to remove previous artifact", logfields.Output(p.prevPath), logfields.Error(err))
			}
			r.disown(p.prevPath)
		}
		if err := r.writeResource(rec, out); err != nil {
			r.fail(p.change, err)
			continue
		}
		r.own(out)
		r.setEntry(p.change, out)
		r.logger.Debug("Placed record", logfields.Record(rec.Path), logfields.Output(out), logfields.Change(p.change.Kind.String()))
	}
	r.markDirty(g.Dir, g.Dir)
}

// prepareDir deletes unowned artifacts and stray files in dir and returns the
// stems still taken there. "index" is always taken.
func (r *Reconciler) prepareDir(dir string) (sets.Set[string], error) {
	entries, err := r.opts.FS.ReadDir(r.abs(dir))
	if err != nil {
		return nil, err
	}
	taken := sets.New(catalog.Stem(catalog.IndexFile))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == catalog.IndexFile {
			continue
		}
		if !catalog.IsArtifact(name) {
			r.removeOrphan(path.Join(dir, name))
			continue
		}
		if !r.owned[dir].Has(name) {
			if r.removeOrphan(path.Join(dir, name)) {
				continue
			}
		}
		taken.Add(catalog.Stem(name))
	}
	return taken, nil
}

// refresh processes dirty directories deepest first until none remain.
func (r *Reconciler) refresh(ctx context.Context) error {
	for len(r.dirty) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := deepest(r.dirty)
		boundary := r.dirty[dir]
		delete(r.dirty, dir)
		r.refreshDir(dir, boundary)
	}
	return nil
}

func (r *Reconciler) refreshDir(dir, boundary string) {
	entries, err := r.opts.FS.ReadDir(r.abs(dir))
	if err != nil {
		if storage.IsNotExist(err) {
			if dir != "." {
				r.markDirty(parentGroup(dir), boundary)
			}
			return
		}
		r.dirFailure(dir, err)
		return
	}

	var members []catalog.Member
	hasIndex := false
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			members = append(members, r.childCollections(dir, name)...)
		case name == catalog.IndexFile:
			hasIndex = true
		case catalog.IsArtifact(name):
			if !r.owned[dir].Has(name) && r.removeOrphan(path.Join(dir, name)) {
				continue
			}
			members = append(members, catalog.ResourceRef(name))
		default:
			r.removeOrphan(path.Join(dir, name))
		}
	}

	if len(members) == 0 && !sweep.Protects(boundary, dir) {
		res, err := r.sweeper.Sweep(dir, boundary)
		r.rep.DirsRemoved += len(res.Removed)
		if err != nil {
			r.dirFailure(dir, err)
			return
		}
		if len(res.Removed) > 0 {
			r.markDirty(groupDir(res.Stopped), boundary)
			return
		}
	}
	r.writeIndex(dir, boundary, members, hasIndex)
}

// childCollections lists the child groups below levelDir that have an index.
func (r *Reconciler) childCollections(dir, levelDir string) []catalog.Member {
	rel := path.Join(dir, levelDir)
	entries, err := r.opts.FS.ReadDir(r.abs(rel))
	if err != nil {
		return nil
	}
	if len(entries) == 0 {
		if err := r.opts.FS.Remove(r.abs(rel)); err == nil {
			r.rep.DirsRemoved++
		}
		return nil
	}
	var out []catalog.Member
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if storage.Exists(r.opts.FS, r.abs(path.Join(rel, e.Name(), catalog.IndexFile))) {
			out = append(out, catalog.CollectionRef(path.Join(levelDir, e.Name(), catalog.IndexFile)))
		}
	}
	return out
}

// writeIndex rewrites dir's index when its member set differs from members
// or the existing index cannot be read.
func (r *Reconciler) writeIndex(dir, boundary string, members []catalog.Member, hasIndex bool) {
	indexPath := filepath.Join(r.abs(dir), catalog.IndexFile)
	want := sets.New[string]()
	for _, m := range members {
		want.Add(m.FilePath)
	}

	var existing *catalog.Collection
	if hasIndex {
		data, err := r.opts.FS.ReadFile(indexPath)
		if err == nil {
			existing, err = catalog.DecodeCollection(data)
		}
		if err != nil {
			existing = nil
			r.logger.Warn("Rewriting unreadable collection index", logfields.Dir(dir), logfields.Error(err))
		} else if existing.MemberPaths().Equal(want) {
			r.rep.IndexesUnchanged++
			return
		}
	}

	identifier, title := r.identity(dir, existing)
	description := ""
	if dir == "." {
		description = r.opts.RootDescription
	}
	data, err := catalog.EncodeCollection(catalog.NewCollection(identifier, title, description, members))
	if err != nil {
		r.dirFailure(dir, err)
		return
	}
	if err := r.opts.FS.WriteFile(indexPath, data); err != nil {
		r.dirFailure(dir, err)
		return
	}
	r.rep.IndexesWritten++
	r.logger.Debug("Wrote collection index", logfields.Dir(dir), logfields.Count(len(members)))
	if !hasIndex && dir != "." {
		r.markDirty(parentGroup(dir), boundary)
	}
}

// identity returns the identifier and title of the group at dir.
func (r *Reconciler) identity(dir string, existing *catalog.Collection) (string, string) {
	if dir == "." {
		return r.opts.RootIdentifier, r.opts.RootTitle
	}
	if m, ok := r.meta[dir]; ok {
		return m.identifier, m.title
	}
	if existing != nil && existing.Identifier != "" {
		return existing.Identifier, existing.Title
	}
	parts := strings.Split(dir, "/")
	identifier, title := "", ""
	for i := 0; i+1 < len(parts); i += 2 {
		identifier = grouping.JoinIdentifier(identifier, parts[i+1])
		lvl, ok := r.opts.Spec.LevelBySlug(parts[i])
		if !ok {
			lvl = hierarchy.Level{Title: parts[i]}
		}
		title = grouping.Title(lvl, parts[i+1])
	}
	return identifier, title
}

func (r *Reconciler) writeResource(rec *record.Record, out string) error {
	outAbs := r.abs(out)
	srcAbs := filepath.Join(r.opts.SourceRoot, filepath.FromSlash(rec.Path))
	srcRel, err := filepath.Rel(filepath.Dir(outAbs), srcAbs)
	if err != nil {
		srcRel = srcAbs
	}
	data, err := catalog.EncodeResource(catalog.NewResource(rec, filepath.ToSlash(srcRel), r.opts.Namespaces))
	if err != nil {
		return err
	}
	if err := r.opts.FS.WriteFile(outAbs, data); err != nil {
		return ferrors.FileSystemError("failed to write artifact").WithCause(err).
			WithContext("path", out).Build()
	}
	r.rep.ResourcesWritten++
	return nil
}

func (r *Reconciler) removeArtifact(out string) error {
	err := r.opts.FS.Remove(r.abs(out))
	if err != nil && !storage.IsNotExist(err) {
		return ferrors.FileSystemError("failed to remove artifact").WithCause(err).
			WithContext("path", out).Build()
	}
	if err == nil {
		r.rep.ResourcesDeleted++
	}
	return nil
}

// removeOrphan deletes an artifact no record owns and reports whether it is gone.
func (r *Reconciler) removeOrphan(rel string) bool {
	if err := r.opts.FS.Remove(r.abs(rel)); err != nil && !storage.IsNotExist(err) {
		r.logger.Warn("Failed to remove orphan artifact", logfields.Output(rel), logfields.Error(err))
		return false
	}
	r.rep.Orphans++
	r.logger.Info("Removed orphan artifact", logfields.Output(rel))
	return true
}

func (r *Reconciler) setEntry(c change.Change, out string) {
	r.next.Files[c.Path] = &state.Entry{
		ModTime:    c.Record.Fingerprint.ModTime,
		Digest:     c.Record.Fingerprint.Digest,
		Hierarchy:  c.Hierarchy,
		OutputPath: out,
	}
}

// fail records a filesystem failure. The entry keeps the hierarchy but no
// fingerprint, so the next build treats the record as modified.
func (r *Reconciler) fail(c change.Change, err error) {
	r.rep.Fail(c.Path, report.OutcomeFilesystemFailed, err)
	r.next.Files[c.Path] = &state.Entry{Hierarchy: c.Hierarchy}
	r.logger.Warn("Failed to materialize record", logfields.Record(c.Path), logfields.Error(err))
}

func (r *Reconciler) dirFailure(dir string, err error) {
	r.rep.Fail(dir, report.OutcomeFilesystemFailed, err)
	r.logger.Warn("Failed to refresh catalog directory", logfields.Dir(dir), logfields.Error(err))
}

func (r *Reconciler) own(out string) {
	dir := path.Dir(out)
	if r.owned[dir] == nil {
		r.owned[dir] = sets.New[string]()
	}
	r.owned[dir].Add(path.Base(out))
}

func (r *Reconciler) disown(out string) {
	r.owned[path.Dir(out)].Delete(path.Base(out))
}

// markDirty queues dir for refresh. boundary is clamped to dir or one of its
// ancestors; when dir is already queued the higher boundary wins.
func (r *Reconciler) markDirty(dir, boundary string) {
	dir, boundary = path.Clean(dir), path.Clean(boundary)
	if !sweep.Protects(dir, boundary) {
		boundary = dir
	}
	if cur, ok := r.dirty[dir]; ok && sweep.Protects(boundary, cur) {
		return
	}
	r.dirty[dir] = boundary
}

func (r *Reconciler) abs(rel string) string {
	return filepath.Join(r.opts.CatalogRoot, filepath.FromSlash(rel))
}

// deepest picks the queued directory with the most path segments, breaking
// ties lexically.
func deepest(dirty map[string]string) string {
	best, bestDepth := "", -1
	for dir := range dirty {
		d := depth(dir)
		if d > bestDepth || (d == bestDepth && dir < best) {
			best, bestDepth = dir, d
		}
	}
	return best
}

func depth(dir string) int {
	if dir == "." {
		return 0
	}
	return strings.Count(dir, "/") + 1
}

// groupDir maps a level directory (odd depth) to its owning group directory.
func groupDir(dir string) string {
	if depth(dir)%2 == 1 {
		return path.Dir(dir)
	}
	return dir
}

// parentGroup returns the group directory containing the group at dir.
func parentGroup(dir string) string {
	return groupDir(path.Dir(groupDir(dir)))
}
