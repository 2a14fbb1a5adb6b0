package service

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

// instrumentationName names the tracer used by this package.
const instrumentationName = "github.com/Pluto-lin/magma/internal/core/service"

// Metrics receives measurements from the services. The telemetry/metric
// package provides the Prometheus implementation.
type Metrics interface {
	ObserveAttempt(protocol, outcome string, elapsed time.Duration)
	ObserveLoad(scope string, err error, elapsed time.Duration)
	ObserveEviction(reason string)
	ObserveRateLimited()
}

type nopMetrics struct{}

func (nopMetrics) ObserveAttempt(string, string, time.Duration) {}
func (nopMetrics) ObserveLoad(string, error, time.Duration)     {}
func (nopMetrics) ObserveEviction(string)                       {}
func (nopMetrics) ObserveRateLimited()                          {}

// Option configures the ambient dependencies of a service.
type Option func(*deps)

type deps struct {
	log     logger.Logger
	metrics Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

func newDeps(opts []Option) deps {
	d := deps{
		log:     logger.Default(),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(instrumentationName)
	}
	return d
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *deps) {
		if l != nil {
			d.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(d *deps) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(d *deps) { d.tracer = t }
}

// WithClock overrides time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(d *deps) {
		if now != nil {
			d.now = now
		}
	}
}
