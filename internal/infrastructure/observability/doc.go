// Package observability owns the prometheus collector and the OpenTelemetry tracer
// provider. Both are created once at startup and injected into the components that
// record into them.
package observability
