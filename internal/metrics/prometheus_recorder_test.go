package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration(StageReconcile, 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.AddChanges("added", 3)
	pr.AddChanges("removed", 0)
	pr.AddArtifactOps(OpResourceWritten, 2)
	pr.IncRecordFailure("extraction_failed")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				key := mf.GetName()
				for _, l := range m.GetLabel() {
					key += "/" + l.GetValue()
				}
				values[key] = c.GetValue()
			}
		}
	}
	assert.InDelta(t, 3, values["catalogbuilder_record_changes_total/added"], 0)
	assert.NotContains(t, values, "catalogbuilder_record_changes_total/removed")
	assert.InDelta(t, 2, values["catalogbuilder_artifact_operations_total/resource_written"], 0)
	assert.InDelta(t, 1, values["catalogbuilder_build_outcomes_total/success"], 0)
	assert.InDelta(t, 1, values["catalogbuilder_record_failures_total/extraction_failed"], 0)
}

func TestPrometheusRecorderWriteToTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncBuildOutcome(BuildOutcomePartial)

	out := filepath.Join(t.TempDir(), "catalogbuilder.prom")
	require.NoError(t, pr.WriteToTextfile(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `catalogbuilder_build_outcomes_total{outcome="partial"} 1`)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncBuildOutcome(BuildOutcomeFailed)
		pr.AddArtifactOps(OpIndexWritten, 1)
	})
}
