// Package metric provides Prometheus instrumentation for namestream.
//
// The core Metrics struct covers the request pipeline end to end: request
// outcomes at the gateway, entries decoded per side, matched and unpaired
// merge output, stage durations, and disk spill activity. MetricsRegistry
// wraps a private prometheus.Registry (with Go runtime and process
// collectors) so tests never collide on the global default registry, and
// Server exposes it over promhttp on its own port.
package metric
