// Package metric exposes magma metrics in Prometheus format.
//
//   - prometheus.go: the Registry, which also implements the service
//     metrics sink, and the /metrics handler
//   - collector.go: scrape-time gauges for cache and limiter sizes
//
// Every metric lives under the "magma" namespace.
package metric
