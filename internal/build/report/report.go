// Package report describes the outcome of one catalog build.
package report

import (
	"fmt"
	"log/slog"
	"time"
)

// Outcome classifies a per-record failure.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeExtractionFailed means metadata could not be read; the record's
	// previous state is carried forward untouched.
	OutcomeExtractionFailed
	// OutcomeFilesystemFailed means an artifact or index could not be written
	// or removed; the record is retried on the next build.
	OutcomeFilesystemFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeExtractionFailed:
		return "extraction_failed"
	case OutcomeFilesystemFailed:
		return "filesystem_failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Failure is one record or directory that could not be processed.
type Failure struct {
	Path    string
	Outcome Outcome
	Reason  string
}

// Report summarizes a build.
type Report struct {
	BuildID string
	Global  bool
	// MinChangedLevel is the shallowest hierarchy level any record moved at,
	// -1 when nothing moved.
	MinChangedLevel int

	Added             int
	ContentModified   int
	HierarchyModified int
	Removed           int
	Unchanged         int
	Skipped           int
	Repaired          int

	ResourcesWritten int
	ResourcesDeleted int
	IndexesWritten   int
	IndexesUnchanged int
	DirsRemoved      int
	Orphans          int

	StateSaved bool
	Duration   time.Duration
	Failures   []Failure
}

// New returns an empty report for buildID.
func New(buildID string) *Report {
	return &Report{BuildID: buildID, MinChangedLevel: -1}
}

// Fail records a failure for path.
func (r *Report) Fail(path string, outcome Outcome, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	r.Failures = append(r.Failures, Failure{Path: path, Outcome: outcome, Reason: reason})
}

// HasFailures reports whether any record failed.
func (r *Report) HasFailures() bool { return len(r.Failures) > 0 }

// Changed reports whether the build modified the catalog tree.
func (r *Report) Changed() bool {
	return r.ResourcesWritten+r.ResourcesDeleted+r.IndexesWritten+r.DirsRemoved+r.Orphans > 0
}

// LogValue renders the summary counts as a slog group.
func (r *Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("build_id", r.BuildID),
		slog.Bool("global", r.Global),
		slog.Int("added", r.Added),
		slog.Int("modified", r.ContentModified),
		slog.Int("moved", r.HierarchyModified),
		slog.Int("removed", r.Removed),
		slog.Int("unchanged", r.Unchanged),
		slog.Int("skipped", r.Skipped),
		slog.Int("resources_written", r.ResourcesWritten),
		slog.Int("indexes_written", r.IndexesWritten),
		slog.Int("dirs_removed", r.DirsRemoved),
		slog.Int("failures", len(r.Failures)),
	)
}
