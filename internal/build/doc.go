// Package build runs one incremental catalog build.
//
// A Builder loads the persisted BuildState, classifies the current records
// against it, hands the resulting plan to the reconciler, and saves the new
// state once the whole pass has completed. The state is only written when it
// changed, so a build with nothing to do performs no writes at all.
//
// Everything a build needs travels in a Context value built once per run;
// there is no package-level state, so tests run builds in parallel against
// in-memory filesystems.
package build
