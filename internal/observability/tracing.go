package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans for agent runs and tool calls against whatever
// TracerProvider is registered globally via otel.SetTracerProvider. The
// core itself never configures an exporter or owns a network socket: wiring
// an OTLP/Jaeger backend is an adapter concern, done once at process start.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer bound to the named instrumentation scope.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// StartAgentRun opens a span for one SubAgentRunner invocation.
func (t *Tracer) StartAgentRun(ctx context.Context, agentID, agentType string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.id", agentID),
		attribute.String("agent.type", agentType),
	))
}

// StartToolCall opens a span for one tool invocation mediated by the
// ToolCallInterceptor.
func (t *Tracer) StartToolCall(ctx context.Context, agentID, toolName string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "tool.call", trace.WithAttributes(
		attribute.String("agent.id", agentID),
		attribute.String("tool.name", toolName),
	))
}

// EndWithError records the final status of a span: Ok on nil, Error
// otherwise.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
