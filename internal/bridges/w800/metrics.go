package w800

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the bridge's Prometheus instrumentation.
//
// All counters are registered against the registry passed to NewMetrics so
// tests can use isolated registries. The HTTP API exposes the process
// registry on /metrics.
type Metrics struct {
	FramesTotal    prometheus.Counter
	FramesDropped  prometheus.Counter
	Desyncs        prometheus.Counter
	FramesByClass  *prometheus.CounterVec
	DecodeFailures *prometheus.CounterVec
	Dispatched     prometheus.Counter
	Unmatched      prometheus.Counter
	Reconnects     prometheus.Counter
}

// NewMetrics creates and registers the bridge's metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "w800",
			Name:      "frames_total",
			Help:      "Complete 4-byte frames read from the receiver.",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "w800",
			Name:      "frames_dropped_total",
			Help:      "Frames discarded because the dispatcher fell behind.",
		}),
		Desyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "w800",
			Name:      "desyncs_total",
			Help:      "Partial frames discarded after a read timeout.",
		}),
		FramesByClass: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "w800",
			Name:      "frames_classified_total",
			Help:      "Frames by classification result.",
		}, []string{"class"}),
		DecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "w800",
			Name:      "decode_failures_total",
			Help:      "Frames that classified but failed their family decoder.",
		}, []string{"reason"}),
		Dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "w800",
			Name:      "events_dispatched_total",
			Help:      "Decoded events that matched a configured device.",
		}),
		Unmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "w800",
			Name:      "events_unmatched_total",
			Help:      "Decoded events with no configured device binding.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "w800",
			Name:      "serial_reconnects_total",
			Help:      "Serial sessions reopened after a transport failure.",
		}),
	}

	reg.MustRegister(
		m.FramesTotal,
		m.FramesDropped,
		m.Desyncs,
		m.FramesByClass,
		m.DecodeFailures,
		m.Dispatched,
		m.Unmatched,
		m.Reconnects,
	)

	return m
}
