// Package metrics records catalog build metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	type Builder struct {
//	    recorder metrics.Recorder
//	}
//
// When metrics are configured the CLI swaps in a PrometheusRecorder backed by
// its own registry. The catalog builder is a batch process, so the registry is
// exported after each run with WriteToTextfile for the node_exporter textfile
// collector instead of being served over HTTP.
package metrics
