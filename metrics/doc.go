// Package metrics exports docqa activity to Prometheus.
//
// A Recorder is passed as the monitor to the indexer, the retriever and the
// query service, and its Handler is mounted at /metrics.
package metrics
