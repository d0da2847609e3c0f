// Package metrics exposes the state of every loaded entry in Prometheus
// format.
//
// Collector reads the latest snapshot of each loaded entry at scrape time
// and reports it as gauges labelled entry_id, host and port:
//
//	hypermind_active_nodes
//	hypermind_direct_connections
//	hypermind_scale_ratio
//	hypermind_last_update_success
//
// Recorder implements coordinator.Recorder and counts poll attempts
// by result (success, timeout, transport_error, bad_status, error) alongside a
// poll duration histogram.
//
// Handler serves a Gatherer through promhttp.
package metrics
