// Package tracer implements the Compressor's structured progress events
// (spec §4.6, §9 "Singleton tracer"): a per-call TraceSink replacing the
// teacher's process-wide OTel/Prometheus globals with an explicit value
// threaded into Compressor, per DESIGN.md's Design Note on global state.
package tracer

import (
	"context"
	"log/slog"
)

// EventKind enumerates the fixed event set from spec §4.6. Collaborators
// (CLI, TUI) render progress off this closed set; it is part of the
// contract and must not grow ad hoc.
type EventKind string

const (
	EventPhaseBegin   EventKind = "PHASE_BEGIN"
	EventPhaseEnd     EventKind = "PHASE_END"
	EventSymbolStream EventKind = "SYMBOL_STREAM"
	EventCacheHit     EventKind = "CACHE_HIT"
	EventKeyExtracted EventKind = "KEY_EXTRACTED"
	EventComplete     EventKind = "COMPLETE"
)

// Event is one structured progress notification. Count is the fixed count
// this event carries (e.g. symbols processed so far in the phase, or the
// phase's final tally on PHASE_END); Phase is a 1-based phase number for
// phase-scoped events and 0 for pipeline-scoped ones (COMPLETE).
type Event struct {
	Kind    EventKind
	Phase   int
	Label   string
	Count   int
	Total   int
	Message string

	// RunID correlates this event with the SymbolHierarchy.RunID of the
	// ProcessCodebase/UpdateHierarchy invocation that emitted it. Empty for
	// phase/symbol-scoped events that predate a run's identifier being
	// known; always set on EventComplete.
	RunID string
}

// TraceSink receives Compressor progress events. Implementations must be
// safe for concurrent invocation: phases emit SYMBOL_STREAM/CACHE_HIT from
// many goroutines at once.
type TraceSink interface {
	Trace(evt Event)
}

// SlogSink is the default TraceSink: every event becomes one structured log
// line, matching the teacher's habit of logging lifecycle events at Info and
// per-call detail at Debug.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink constructs a SlogSink. A nil logger falls back to slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Trace(evt Event) {
	attrs := []slog.Attr{
		slog.String("kind", string(evt.Kind)),
		slog.Int("phase", evt.Phase),
	}
	if evt.Label != "" {
		attrs = append(attrs, slog.String("label", evt.Label))
	}
	if evt.Total > 0 {
		attrs = append(attrs, slog.Int("count", evt.Count), slog.Int("total", evt.Total))
	}
	if evt.Message != "" {
		attrs = append(attrs, slog.String("message", evt.Message))
	}
	if evt.RunID != "" {
		attrs = append(attrs, slog.String("run_id", evt.RunID))
	}

	level := slog.LevelDebug
	switch evt.Kind {
	case EventPhaseBegin, EventPhaseEnd, EventKeyExtracted, EventComplete:
		level = slog.LevelInfo
	}
	s.logger.LogAttrs(context.Background(), level, "thaum trace event", attrs...)
}

// MultiSink fans one event out to every sink in order.
type MultiSink struct {
	sinks []TraceSink
}

// NewMultiSink constructs a MultiSink over sinks, skipping any nil entries.
func NewMultiSink(sinks ...TraceSink) *MultiSink {
	out := make([]TraceSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiSink{sinks: out}
}

func (m *MultiSink) Trace(evt Event) {
	for _, s := range m.sinks {
		s.Trace(evt)
	}
}

// NoopSink discards every event; useful in tests that assert on side
// effects other than tracing.
type NoopSink struct{}

func (NoopSink) Trace(Event) {}
