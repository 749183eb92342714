// Package metrics exposes schema manager activity to prometheus.
//
// Recorder implements reconcile.Observer; pass it in reconcile.Options and
// serve the registry it was registered with (see cmd serve, /metrics).
package metrics
