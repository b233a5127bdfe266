package metrics

import "time"

// Stage names used as the "stage" label.
const (
	StageScan      = "scan"
	StageExtract   = "extract"
	StageClassify  = "classify"
	StageReconcile = "reconcile"
	StageSave      = "save"
)

// BuildOutcomeLabel enumerates final build states.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomePartial  BuildOutcomeLabel = "partial"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Artifact operations used as the "op" label.
const (
	OpResourceWritten = "resource_written"
	OpResourceDeleted = "resource_deleted"
	OpIndexWritten    = "index_written"
	OpIndexUnchanged  = "index_unchanged"
	OpDirRemoved      = "dir_removed"
	OpOrphanRemoved   = "orphan_removed"
)

// Recorder defines observability hooks for catalog builds. Implementations must
// tolerate being called for every build, including failed ones.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	// AddChanges counts classified records by change kind.
	AddChanges(kind string, n int)
	// AddArtifactOps counts filesystem operations on the catalog tree.
	AddArtifactOps(op string, n int)
	// IncRecordFailure counts per-record failures by outcome.
	IncRecordFailure(outcome string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) AddChanges(string, int)                     {}
func (NoopRecorder) AddArtifactOps(string, int)                 {}
func (NoopRecorder) IncRecordFailure(string)                    {}
