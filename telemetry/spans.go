package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/zero-day-ai/lab"

// StartTrial opens a span for one trial. The caller must call EndTrial
// on the returned span. Without an initialized TracerProvider the span
// is a no-op; engine correctness never depends on telemetry.
func StartTrial(ctx context.Context, trialID uuid.UUID, description string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "trial",
		trace.WithAttributes(
			attribute.String("trial.id", trialID.String()),
			attribute.String("trial.description", description),
		))
}

// EndTrial records the trial outcome and closes the span.
func EndTrial(span trace.Span, violations int, err error) {
	span.SetAttributes(attribute.Int("trial.violations", violations))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordError attaches a caught, non-fatal error to the current span.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
}
