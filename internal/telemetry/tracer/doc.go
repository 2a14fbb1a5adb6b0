// Package tracer configures OpenTelemetry tracing for magma.
//
// When enabled, spans are batched to an OTLP/HTTP collector and the
// provider is installed as the global one, so packages that call
// otel.Tracer pick it up. When disabled the global no-op provider stays.
package tracer
