// Package tracing provides OpenTelemetry span helpers for the governance
// pipeline. Exporter setup is owned by the deployment environment; this
// package only creates spans against the global tracer provider.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage identifies a step of the governance pipeline being traced.
type Stage string

const (
	// StageResolveIdentity covers token verification and claim extraction.
	StageResolveIdentity Stage = "resolve_identity"
	// StageValidatePrompt covers the input guard.
	StageValidatePrompt Stage = "validate_prompt"
	// StageAuthorize covers role checks and scope filtering.
	StageAuthorize Stage = "authorize"
	// StageDispatchTool covers the tool handler invocation.
	StageDispatchTool Stage = "dispatch_tool"
	// StageMaskFields covers PII masking of tool results.
	StageMaskFields Stage = "mask_fields"
	// StageValidateOutput covers the output guard.
	StageValidateOutput Stage = "validate_output"
	// StageConfirm covers confirmation creation and consumption.
	StageConfirm Stage = "confirm"
)

// StartStageSpan creates a span for a governance pipeline stage.
// Returns the new context and a function to end the span.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartStageSpan(ctx, tracing.StageValidatePrompt)
//	defer endSpan(err)
func StartStageSpan(ctx context.Context, stage Stage) (context.Context, func(error)) {
	tracer := otel.Tracer("govern/pipeline")

	ctx, span := tracer.Start(ctx, string(stage),
		trace.WithAttributes(
			attribute.String("govern.stage", string(stage)),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// StartSpan creates a span for a general operation.
// Returns the new context and a function to end the span.
func StartSpan(ctx context.Context, name string) (context.Context, func(error)) {
	tracer := otel.Tracer("govern")

	ctx, span := tracer.Start(ctx, name)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrs...)
}
