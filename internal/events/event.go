// Package events publishes build notifications.
package events

import (
	"time"

	"git.home.luguber.info/inful/catalogbuilder/internal/build/report"
)

// Outcome values of BuildCompleted.
const (
	OutcomeSuccess  = "success"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

// BuildCompleted is published after every build.
type BuildCompleted struct {
	BuildID string    `json:"build_id"`
	Catalog string    `json:"catalog"`
	Outcome string    `json:"outcome"`
	Error   string    `json:"error,omitempty"`
	Global  bool      `json:"global"`
	Changed bool      `json:"changed"`
	Time    time.Time `json:"timestamp"`

	DurationMS int64 `json:"duration_ms"`

	Counts    Counts         `json:"counts"`
	Artifacts Artifacts      `json:"artifacts"`
	Failures  []FailureEvent `json:"failures,omitempty"`
}

// Counts are the record classifications of a build.
type Counts struct {
	Added             int `json:"added"`
	ContentModified   int `json:"content_modified"`
	HierarchyModified int `json:"hierarchy_modified"`
	Removed           int `json:"removed"`
	Unchanged         int `json:"unchanged"`
	Skipped           int `json:"skipped"`
	Repaired          int `json:"repaired"`
}

// Artifacts are the catalog operations of a build.
type Artifacts struct {
	ResourcesWritten int `json:"resources_written"`
	ResourcesDeleted int `json:"resources_deleted"`
	IndexesWritten   int `json:"indexes_written"`
	DirsRemoved      int `json:"dirs_removed"`
	Orphans          int `json:"orphans_removed"`
}

// FailureEvent is one record that could not be processed.
type FailureEvent struct {
	Path    string `json:"path"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// NewBuildCompleted summarizes rep. buildErr is the error the build returned,
// if any; rep may be nil when the build never started.
func NewBuildCompleted(catalog string, rep *report.Report, buildErr error) BuildCompleted {
	ev := BuildCompleted{Catalog: catalog, Time: time.Now().UTC(), Outcome: OutcomeSuccess}
	if rep != nil {
		ev.BuildID = rep.BuildID
		ev.Global = rep.Global
		ev.Changed = rep.Changed()
		ev.DurationMS = rep.Duration.Milliseconds()
		ev.Counts = Counts{
			Added:             rep.Added,
			ContentModified:   rep.ContentModified,
			HierarchyModified: rep.HierarchyModified,
			Removed:           rep.Removed,
			Unchanged:         rep.Unchanged,
			Skipped:           rep.Skipped,
			Repaired:          rep.Repaired,
		}
		ev.Artifacts = Artifacts{
			ResourcesWritten: rep.ResourcesWritten,
			ResourcesDeleted: rep.ResourcesDeleted,
			IndexesWritten:   rep.IndexesWritten,
			DirsRemoved:      rep.DirsRemoved,
			Orphans:          rep.Orphans,
		}
		for _, f := range rep.Failures {
			ev.Failures = append(ev.Failures, FailureEvent{Path: f.Path, Outcome: f.Outcome.String(), Reason: f.Reason})
		}
		if len(ev.Failures) > 0 {
			ev.Outcome = OutcomePartial
		}
	}
	if buildErr != nil {
		ev.Outcome = OutcomeFailed
		if isCanceled(buildErr) {
			ev.Outcome = OutcomeCanceled
		}
		ev.Error = buildErr.Error()
	}
	return ev
}
