package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeySchedule   = "schedule_name"
	KeyPath       = "path"
	KeyDir        = "dir"
	KeyOutput     = "output"
	KeyRecord     = "record"
	KeyLevel      = "level"
	KeyChange     = "change"
	KeyOutcome    = "outcome"
	KeyReason     = "reason"
	KeyBackend    = "backend"
	KeySubject    = "subject"
	KeyTrigger    = "trigger"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func ScheduleName(n string) slog.Attr  { return slog.String(KeySchedule, n) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Dir(d string) slog.Attr           { return slog.String(KeyDir, d) }
func Output(p string) slog.Attr        { return slog.String(KeyOutput, p) }
func Record(path string) slog.Attr     { return slog.String(KeyRecord, path) }
func Level(i int) slog.Attr            { return slog.Int(KeyLevel, i) }
func Change(kind string) slog.Attr     { return slog.String(KeyChange, kind) }
func Outcome(o string) slog.Attr       { return slog.String(KeyOutcome, o) }
func Reason(r string) slog.Attr        { return slog.String(KeyReason, r) }
func Backend(b string) slog.Attr       { return slog.String(KeyBackend, b) }
func Subject(s string) slog.Attr       { return slog.String(KeySubject, s) }
func Trigger(reason string) slog.Attr  { return slog.String(KeyTrigger, reason) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
