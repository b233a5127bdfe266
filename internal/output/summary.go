package output

import (
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/catalogbuilder/internal/build/report"
	"git.home.luguber.info/inful/catalogbuilder/internal/change"
)

// Plural picks the word form matching n.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// ReportSummary renders the user-visible outcome of a build.
func ReportSummary(rep *report.Report) string {
	var b strings.Builder
	if rep.Global {
		b.WriteString("Full rebuild\n")
	}
	fmt.Fprintf(&b, "Records: %d added, %d modified, %d moved, %d removed, %d unchanged, %d skipped\n",
		rep.Added, rep.ContentModified, rep.HierarchyModified, rep.Removed, rep.Unchanged, rep.Skipped)
	fmt.Fprintf(&b, "Catalog: %d %s written, %d deleted, %d %s updated, %d %s removed\n",
		rep.ResourcesWritten, Plural(rep.ResourcesWritten, "resource", "resources"),
		rep.ResourcesDeleted,
		rep.IndexesWritten, Plural(rep.IndexesWritten, "index", "indexes"),
		rep.DirsRemoved, Plural(rep.DirsRemoved, "directory", "directories"))
	if rep.Repaired > 0 || rep.Orphans > 0 {
		fmt.Fprintf(&b, "Repaired: %d missing, %d orphaned\n", rep.Repaired, rep.Orphans)
	}
	writeFailures(&b, rep.Failures)
	fmt.Fprintf(&b, "Build %s finished in %s\n", rep.BuildID, rep.Duration.Round(time.Millisecond))
	return b.String()
}

// PlanSummary renders what a build would do, one changed record per line.
func PlanSummary(plan *change.Plan, failures []report.Failure) string {
	var b strings.Builder
	if plan.Global {
		b.WriteString("Configuration changed or no previous build: the catalog will be rebuilt\n")
	}
	changed := 0
	for _, c := range plan.Changes {
		if c.Kind == change.Unchanged {
			continue
		}
		changed++
		if c.Kind == change.HierarchyModified {
			fmt.Fprintf(&b, "  %-18s %s (from level %d)\n", c.Kind, c.Path, c.Level)
			continue
		}
		fmt.Fprintf(&b, "  %-18s %s\n", c.Kind, c.Path)
	}
	for _, c := range plan.Removed {
		changed++
		fmt.Fprintf(&b, "  %-18s %s\n", c.Kind, c.Path)
	}
	if changed == 0 && !plan.Global {
		b.WriteString("Catalog is up to date\n")
	}
	fmt.Fprintf(&b, "%d %s, %d unchanged\n", changed, Plural(changed, "change", "changes"), plan.Count(change.Unchanged))
	writeFailures(&b, failures)
	return b.String()
}

func writeFailures(b *strings.Builder, failures []report.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(b, "%d %s:\n", len(failures), Plural(len(failures), "failure", "failures"))
	for _, f := range failures {
		fmt.Fprintf(b, "  %s: %s: %s\n", f.Path, f.Outcome, f.Reason)
	}
}
