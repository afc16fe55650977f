// Package observe provides production instrumentation for the reactive
// runtime: Prometheus metrics and OpenTelemetry tracing, attached through
// the engine's and reconciler's observer hooks.
package observe
