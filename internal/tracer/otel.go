package tracer

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "thaum.compressor"

// SpanSink turns PHASE_BEGIN/PHASE_END pairs into OpenTelemetry spans,
// grounded on the teacher's package-level otel.Tracer(name).Start pattern
// (services/trace/agent/providers/openai_chat.go). Unlike the teacher, no
// global TracerProvider is installed by this package — the caller wires
// one via otel.SetTracerProvider before constructing a SpanSink, or leaves
// the no-op default in place (cmd/thaum installs none).
type SpanSink struct {
	tracer oteltrace.Tracer

	mu    sync.Mutex
	spans map[int]oteltrace.Span
	ctxs  map[int]context.Context
}

// NewSpanSink constructs a SpanSink over the globally configured
// TracerProvider (otel.GetTracerProvider()).
func NewSpanSink() *SpanSink {
	return &SpanSink{
		tracer: otel.Tracer(tracerName),
		spans:  make(map[int]oteltrace.Span),
		ctxs:   make(map[int]context.Context),
	}
}

func (s *SpanSink) Trace(evt Event) {
	switch evt.Kind {
	case EventPhaseBegin:
		ctx, span := s.tracer.Start(context.Background(), "compressor.phase",
			oteltrace.WithAttributes(
				attribute.Int("phase", evt.Phase),
				attribute.String("label", evt.Label),
				attribute.Int("total", evt.Total),
			))
		s.mu.Lock()
		s.spans[evt.Phase] = span
		s.ctxs[evt.Phase] = ctx
		s.mu.Unlock()
	case EventPhaseEnd:
		s.mu.Lock()
		span, ok := s.spans[evt.Phase]
		delete(s.spans, evt.Phase)
		delete(s.ctxs, evt.Phase)
		s.mu.Unlock()
		if ok {
			span.SetAttributes(attribute.Int("count", evt.Count))
			span.End()
		}
	}
}
