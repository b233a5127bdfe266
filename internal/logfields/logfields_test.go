package logfields

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b-1", BuildID("b-1")},
		{"Stage", KeyStage, "reconcile", Stage("reconcile")},
		{"Path", KeyPath, "docs/a.md", Path("docs/a.md")},
		{"Dir", KeyDir, "corpus/x", Dir("corpus/x")},
		{"Output", KeyOutput, "corpus/x/a.xml", Output("corpus/x/a.xml")},
		{"Record", KeyRecord, "a.md", Record("a.md")},
		{"Change", KeyChange, "added", Change("added")},
		{"Backend", KeyBackend, "sqlite", Backend("sqlite")},
		{"Trigger", KeyTrigger, "watch", Trigger("watch")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.attrKey, c.attr.Key)
			assert.Equal(t, c.attrVal, c.attr.Value.String())
		})
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	assert.Equal(t, int64(2), Level(2).Value.Int64())
	assert.Equal(t, int64(5), Count(5).Value.Int64())
	assert.InDelta(t, 12.5, DurationMS(12.5).Value.Float64(), 0.0001)
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
	assert.Empty(t, Error(nil).Value.String())
}
