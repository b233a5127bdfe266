package change

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
	"git.home.luguber.info/inful/catalogbuilder/internal/state"
	"git.home.luguber.info/inful/catalogbuilder/internal/util/sets"
)

func newClassifier(t *testing.T) (*Classifier, *hierarchy.Spec) {
	t.Helper()
	spec, err := hierarchy.NewSpec([]hierarchy.Level{
		{Key: "ex:corpus", Slug: "corpus"},
		{Key: "dc:creator", Slug: "author"},
	}, "en")
	require.NoError(t, err)
	return NewClassifier(spec), spec
}

func rec(path, corpus, creator string, mtime float64) *record.Record {
	return &record.Record{
		Path:        path,
		Fingerprint: record.Fingerprint{ModTime: mtime},
		Fields: map[string]record.Value{
			"corpus":  record.Plain(corpus),
			"creator": record.Plain(creator),
		},
	}
}

func prevState(spec *hierarchy.Spec, records ...*record.Record) *state.BuildState {
	st := state.New()
	st.ConfigHash = "h1"
	for _, r := range records {
		st.Files[r.Path] = &state.Entry{
			ModTime:    r.Fingerprint.ModTime,
			Hierarchy:  spec.FingerprintOf(r),
			OutputPath: "out/" + r.Path,
		}
	}
	return st
}

func kinds(p *Plan) map[string]Kind {
	out := map[string]Kind{}
	for _, c := range p.Changes {
		out[c.Path] = c.Kind
	}
	for _, c := range p.Removed {
		out[c.Path] = c.Kind
	}
	return out
}

func TestClassifyFirstBuildAddsEverything(t *testing.T) {
	c, _ := newClassifier(t)
	plan := c.Classify(Request{ConfigHash: "h1", Records: []*record.Record{rec("b.md", "X", "Y", 1), rec("a.md", "X", "Y", 1)}})

	assert.True(t, plan.Global)
	assert.Equal(t, map[string]Kind{"a.md": Added, "b.md": Added}, kinds(plan))
	assert.Equal(t, "a.md", plan.Changes[0].Path, "changes are sorted by path")
}

func TestClassifyIncremental(t *testing.T) {
	c, spec := newClassifier(t)
	prev := prevState(spec,
		rec("same.md", "X", "Y", 1),
		rec("edited.md", "X", "Y", 1),
		rec("moved.md", "X", "Y", 1),
		rec("gone.md", "X", "Y", 1),
		rec("broken.md", "X", "Y", 1),
	)
	plan := c.Classify(Request{
		Previous:   prev,
		ConfigHash: "h1",
		Records: []*record.Record{
			rec("same.md", "X", "Y", 1),
			rec("edited.md", "X", "Y", 2),
			rec("moved.md", "X", "Z", 1),
			rec("new.md", "X", "Y", 1),
		},
		Retained: sets.New("broken.md"),
	})

	assert.False(t, plan.Global)
	assert.Equal(t, map[string]Kind{
		"same.md":   Unchanged,
		"edited.md": ContentModified,
		"moved.md":  HierarchyModified,
		"new.md":    Added,
		"gone.md":   Removed,
	}, kinds(plan))

	for _, ch := range plan.Changes {
		if ch.Path == "moved.md" {
			assert.Equal(t, 1, ch.Level)
			assert.NotNil(t, ch.Previous)
		}
	}
	level, ok := plan.MinChangedLevel()
	assert.True(t, ok)
	assert.Equal(t, 0, level, "an added record counts as a change at level 0")
	assert.Equal(t, 1, plan.Count(Removed))
	assert.Equal(t, 1, plan.Count(Unchanged))
}

func TestClassifyHierarchyWinsOverContent(t *testing.T) {
	c, spec := newClassifier(t)
	prev := prevState(spec, rec("a.md", "X", "Y", 1))
	plan := c.Classify(Request{Previous: prev, ConfigHash: "h1", Records: []*record.Record{rec("a.md", "W", "Y", 5)}})

	require.Len(t, plan.Changes, 1)
	assert.Equal(t, HierarchyModified, plan.Changes[0].Kind)
	assert.Equal(t, 0, plan.Changes[0].Level)
}

func TestClassifyConfigChangeIsGlobal(t *testing.T) {
	c, spec := newClassifier(t)
	prev := prevState(spec, rec("a.md", "X", "Y", 1), rec("gone.md", "X", "Y", 1))

	plan := c.Classify(Request{Previous: prev, ConfigHash: "h2", Records: []*record.Record{rec("a.md", "X", "Y", 1)}})
	assert.True(t, plan.Global)
	assert.Equal(t, Added, plan.Changes[0].Kind)
	assert.Nil(t, plan.Changes[0].Previous)
	assert.Empty(t, plan.Removed, "a global rebuild starts from an empty catalog")

	forced := c.Classify(Request{Previous: prev, ConfigHash: "h1", Records: []*record.Record{rec("a.md", "X", "Y", 1)}, Force: true})
	assert.True(t, forced.Global)
}

func TestMinChangedLevelNone(t *testing.T) {
	c, spec := newClassifier(t)
	prev := prevState(spec, rec("a.md", "X", "Y", 1))
	plan := c.Classify(Request{Previous: prev, ConfigHash: "h1", Records: []*record.Record{rec("a.md", "X", "Y", 2)}})
	_, ok := plan.MinChangedLevel()
	assert.False(t, ok)
}
