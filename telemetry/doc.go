// Package telemetry configures OpenTelemetry tracing for batch runs and
// provides the span helpers the scheduler records trials with. Exporter
// selection (otlp, stdout, none) is config-driven; when tracing is not
// initialized every helper degrades to a no-op.
package telemetry
