package ipc

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts listener and discovery outcomes. A nil *Metrics records nothing.
type Metrics struct {
	connections *prometheus.CounterVec
	dispatched  *prometheus.CounterVec
	malformed   prometheus.Counter
	dropped     *prometheus.CounterVec
	orphans     prometheus.Counter
}

// NewMetrics builds the collectors and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "termlink",
				Subsystem: "ipc",
				Name:      "connections_total",
				Help:      "Accepted IPC connections by read outcome.",
			},
			[]string{"outcome"},
		),
		dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "termlink",
				Subsystem: "ipc",
				Name:      "messages_dispatched_total",
				Help:      "Decoded IPC messages handed to the dispatcher.",
			},
			[]string{"kind"},
		),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "termlink",
			Subsystem: "ipc",
			Name:      "messages_malformed_total",
			Help:      "IPC lines that failed to decode.",
		}),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "termlink",
				Subsystem: "ipc",
				Name:      "messages_dropped_total",
				Help:      "Decoded IPC messages dropped before dispatch.",
			},
			[]string{"reason"},
		),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "termlink",
			Subsystem: "ipc",
			Name:      "orphans_removed_total",
			Help:      "Stale socket files removed during discovery.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.connections, m.dispatched, m.malformed, m.dropped, m.orphans)
	}
	return m
}

func (m *Metrics) connection(outcome string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(outcome).Inc()
}

func (m *Metrics) dispatch(kind string) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(kind).Inc()
}

func (m *Metrics) malformedLine() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

func (m *Metrics) drop(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) orphanRemoved() {
	if m == nil {
		return
	}
	m.orphans.Inc()
}
