package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "magma"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	loads           *prometheus.CounterVec
	loadDuration    *prometheus.HistogramVec
	evictions       *prometheus.CounterVec
	rateLimited     prometheus.Counter
}

// NewRegistry creates a registry with the Go runtime and process
// collectors plus the authentication and cache metrics.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Authentication attempts by protocol and outcome",
		}, []string{"protocol", "outcome"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempt_duration_seconds",
			Help:      "Time spent deriving and verifying credentials",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"protocol"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "loads_total",
			Help:      "User payload loads by scope and result",
		}, []string{"scope", "result"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "load_duration_seconds",
			Help:      "User payload load latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Cache entries dropped by reason",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "rate_limited_total",
			Help:      "Attempts refused by the failure rate limiter",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.attempts,
		r.attemptDuration,
		r.loads,
		r.loadDuration,
		r.evictions,
		r.rateLimited,
	)
	return r
}

// Registerer returns the underlying registerer for additional collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveAttempt records one finished authentication.
func (r *Registry) ObserveAttempt(protocol, outcome string, elapsed time.Duration) {
	r.attempts.WithLabelValues(protocol, outcome).Inc()
	r.attemptDuration.WithLabelValues(protocol).Observe(elapsed.Seconds())
}

// ObserveLoad records one payload load.
func (r *Registry) ObserveLoad(scope string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.loads.WithLabelValues(scope, result).Inc()
	r.loadDuration.WithLabelValues(scope).Observe(elapsed.Seconds())
}

// ObserveEviction records one dropped cache entry.
func (r *Registry) ObserveEviction(reason string) {
	r.evictions.WithLabelValues(reason).Inc()
}

// ObserveRateLimited records one throttled attempt.
func (r *Registry) ObserveRateLimited() {
	r.rateLimited.Inc()
}
