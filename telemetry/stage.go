package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage names used for run spans.
const (
	StageNormalize = "normalize"
	StageSegment   = "segment"
	StageClassify  = "classify"
	StageAlert     = "alert"
)

// StartRun opens the root span for an analysis run. The returned context
// parents all stage spans started from it.
func StartRun(ctx context.Context, recordingID, runID string) (context.Context, trace.Span) {
	return Tracer(nil).Start(ctx, "analysis.run",
		trace.WithAttributes(
			attribute.String("recording.id", recordingID),
			attribute.String("run.id", runID),
		),
	)
}

// StartStage opens a span for one pipeline stage under the run span in ctx.
func StartStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return Tracer(nil).Start(ctx, "analysis."+stage,
		trace.WithAttributes(attribute.String("stage", stage)),
	)
}

// EndStage finishes a stage span, recording err as the span status when
// non-nil.
func EndStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
