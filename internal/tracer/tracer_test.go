package tracer

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Trace(evt Event) { r.events = append(r.events, evt) }

func TestMultiSinkFansOutToEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	multi := NewMultiSink(a, nil, b)

	multi.Trace(Event{Kind: EventComplete})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
}

func TestSlogSinkDoesNotPanicOnNilLogger(t *testing.T) {
	sink := NewSlogSink(nil)
	require.NotPanics(t, func() {
		sink.Trace(Event{Kind: EventPhaseBegin, Phase: 1, Label: "optimize_function", Total: 3})
		sink.Trace(Event{Kind: EventCacheHit, Phase: 1, Message: "hit"})
	})
}

func TestMetricsSinkRegistersAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewMetricsSink(reg)

	sink.Trace(Event{Kind: EventPhaseBegin, Phase: 1, Label: "phase1"})
	sink.Trace(Event{Kind: EventPhaseEnd, Phase: 1, Label: "phase1", Count: 2})
	sink.Trace(Event{Kind: EventCacheHit, Message: "hit"})
	sink.Trace(Event{Kind: EventCacheHit, Message: "miss"})

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNoopSinkIgnoresEverything(t *testing.T) {
	var s NoopSink
	require.NotPanics(t, func() { s.Trace(Event{Kind: EventComplete}) })
}
