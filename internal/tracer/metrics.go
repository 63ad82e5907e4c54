package tracer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink exposes phase duration and cache-hit-rate counters through a
// caller-supplied prometheus.Registerer, grounded on the teacher's
// promauto-registered HistogramVec/CounterVec pair in
// services/trace/agent/providers/observability.go — adapted to explicit
// registration (no package-level promauto globals) since a library, unlike
// the teacher's single long-lived server process, may be constructed more
// than once per binary in tests.
type MetricsSink struct {
	phaseDuration *prometheus.HistogramVec
	symbolsTotal  *prometheus.CounterVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter

	phaseStarts map[int]time.Time
}

// NewMetricsSink registers its collectors against reg and returns a sink
// ready to wrap (or fan-out alongside) another TraceSink. reg must not be
// nil; the core never registers against the global default registry.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	m := &MetricsSink{
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "thaum",
			Subsystem: "compressor",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each compression phase in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 600},
		}, []string{"label"}),
		symbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thaum",
			Subsystem: "compressor",
			Name:      "symbols_processed_total",
			Help:      "Total symbols processed per phase.",
		}, []string{"label"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thaum",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total CompressionCache hits observed during compression.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thaum",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total CompressionCache misses observed during compression.",
		}),
		phaseStarts: make(map[int]time.Time),
	}
	reg.MustRegister(m.phaseDuration, m.symbolsTotal, m.cacheHits, m.cacheMisses)
	return m
}

func (m *MetricsSink) Trace(evt Event) {
	switch evt.Kind {
	case EventPhaseBegin:
		m.phaseStarts[evt.Phase] = time.Now()
	case EventPhaseEnd:
		if start, ok := m.phaseStarts[evt.Phase]; ok {
			m.phaseDuration.WithLabelValues(evt.Label).Observe(time.Since(start).Seconds())
			delete(m.phaseStarts, evt.Phase)
		}
		m.symbolsTotal.WithLabelValues(evt.Label).Add(float64(evt.Count))
	case EventCacheHit:
		if evt.Message == "miss" {
			m.cacheMisses.Inc()
		} else {
			m.cacheHits.Inc()
		}
	}
}
