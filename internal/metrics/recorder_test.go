package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Compile-time checks.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
	_ Recorder = (*testRecorder)(nil)
)

type testRecorder struct {
	stageDurations map[string]int
	buildOutcomes  map[BuildOutcomeLabel]int
	changes        map[string]int
	ops            map[string]int
	failures       map[string]int
	buildDurations int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{
		stageDurations: map[string]int{},
		buildOutcomes:  map[BuildOutcomeLabel]int{},
		changes:        map[string]int{},
		ops:            map[string]int{},
		failures:       map[string]int{},
	}
}

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) { t.stageDurations[stage]++ }
func (t *testRecorder) ObserveBuildDuration(time.Duration)                 { t.buildDurations++ }
func (t *testRecorder) IncBuildOutcome(o BuildOutcomeLabel)                { t.buildOutcomes[o]++ }
func (t *testRecorder) AddChanges(kind string, n int)                      { t.changes[kind] += n }
func (t *testRecorder) AddArtifactOps(op string, n int)                    { t.ops[op] += n }
func (t *testRecorder) IncRecordFailure(outcome string)                    { t.failures[outcome]++ }

func TestNoopRecorderDoesNothing(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.ObserveStageDuration(StageScan, time.Second)
		r.ObserveBuildDuration(time.Second)
		r.IncBuildOutcome(BuildOutcomeSuccess)
		r.AddChanges("added", 1)
		r.AddArtifactOps(OpDirRemoved, 1)
		r.IncRecordFailure("filesystem_failed")
	})
}

func TestTestRecorderAccumulates(t *testing.T) {
	r := newTestRecorder()
	r.AddChanges("added", 2)
	r.AddChanges("added", 1)
	r.IncBuildOutcome(BuildOutcomeSuccess)
	assert.Equal(t, 3, r.changes["added"])
	assert.Equal(t, 1, r.buildOutcomes[BuildOutcomeSuccess])
}
