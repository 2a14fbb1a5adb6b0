package tracer

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

// Config configures tracing.
type Config struct {
	Enabled     bool    `koanf:"enabled" json:"enabled" yaml:"enabled"`
	ServiceName string  `koanf:"service_name" json:"service_name" yaml:"service_name"`
	Endpoint    string  `koanf:"endpoint" json:"endpoint" yaml:"endpoint"` // OTLP/HTTP host:port
	Insecure    bool    `koanf:"insecure" json:"insecure" yaml:"insecure"`
	SampleRatio float64 `koanf:"sample_ratio" json:"sample_ratio" yaml:"sample_ratio"`
}

// DefaultConfig returns tracing disabled with development defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName: "magmad",
		Endpoint:    "localhost:4318",
		Insecure:    true,
		SampleRatio: 1.0,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return errors.New("tracing.service_name is required")
	}
	if c.Endpoint == "" {
		return errors.New("tracing.endpoint is required")
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", c.SampleRatio)
	}
	return nil
}

// Provider owns the SDK tracer provider, if any.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Option customizes New.
type Option func(*options)

type options struct {
	exporter sdktrace.SpanExporter
	version  string
}

// WithExporter replaces the OTLP exporter. Spans are exported
// synchronously, which suits tests.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exp }
}

// WithVersion sets the service.version resource attribute.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// New builds a provider from cfg and installs it globally. A disabled
// config yields a Provider whose Shutdown is a no-op.
func New(ctx context.Context, cfg Config, log logger.Logger, opts ...Option) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var spanOpt sdktrace.TracerProviderOption
	if o.exporter != nil {
		spanOpt = sdktrace.WithSyncer(o.exporter)
	} else {
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, httpOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		spanOpt = sdktrace.WithBatcher(exp)
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if o.version != "" {
		attrs = append(attrs, attribute.String("service.version", o.version))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		spanOpt,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(Sampler(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("tracer initialized",
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"sample_ratio", cfg.SampleRatio)
	return &Provider{tp: tp}, nil
}

// Sampler maps a ratio to a sampler.
func Sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// Enabled reports whether spans are being recorded and exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.tp != nil
}

// Tracer returns a named tracer from the provider, or from the global
// provider when tracing is disabled.
func (p *Provider) Tracer(name string) trace.Tracer {
	if !p.Enabled() {
		return otel.Tracer(name)
	}
	return p.tp.Tracer(name)
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
