// Package metric provides Prometheus metrics for dxshell.
//
// A Registry owns its own prometheus.Registry so tests and embedded
// controllers never collide on the global default registerer. Every
// recording method is safe on a nil *Registry, which lets services take an
// optional registry without nil checks at each call site.
//
// Metrics are exposed at /metrics when metrics.addr is configured.
package metric
