// Package metrics exposes Prometheus instrumentation for the signaling core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors of one process. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Connections prometheus.Gauge
	Rooms       prometheus.Gauge
	Calls       prometheus.Gauge

	MessagesIn *prometheus.CounterVec // protocol, type
	Relayed    *prometheus.CounterVec // outcome: sent, absent, dropped, kicked
	Errors     *prometheus.CounterVec // code
	Evictions  *prometheus.CounterVec // kind: connection, room, call
	Panics     prometheus.Counter
}

// New registers the collectors on reg under the given service label.
func New(reg prometheus.Registerer, service string) *Metrics {
	f := promauto.With(reg)
	labels := prometheus.Labels{"service": service}
	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Name:        "signal_connections",
			Help:        "Current number of registered connections",
			ConstLabels: labels,
		}),
		Rooms: f.NewGauge(prometheus.GaugeOpts{
			Name:        "signal_rooms",
			Help:        "Current number of live rooms",
			ConstLabels: labels,
		}),
		Calls: f.NewGauge(prometheus.GaugeOpts{
			Name:        "signal_calls",
			Help:        "Current number of live calls",
			ConstLabels: labels,
		}),
		MessagesIn: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "signal_messages_in_total",
			Help:        "Total number of inbound signaling messages",
			ConstLabels: labels,
		}, []string{"protocol", "type"}),
		Relayed: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "signal_relay_total",
			Help:        "Total number of outbound relay attempts by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "signal_errors_total",
			Help:        "Total number of error events returned to senders",
			ConstLabels: labels,
		}, []string{"code"}),
		Evictions: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "signal_sweep_evictions_total",
			Help:        "Total number of entities evicted by the liveness sweep",
			ConstLabels: labels,
		}, []string{"kind"}),
		Panics: f.NewCounter(prometheus.CounterOpts{
			Name:        "signal_dispatch_panics_total",
			Help:        "Total number of recovered panics in dispatched tasks",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) MessageIn(protocol, typ string) {
	if m == nil {
		return
	}
	m.MessagesIn.WithLabelValues(protocol, typ).Inc()
}

func (m *Metrics) Relay(outcome string) {
	if m == nil {
		return
	}
	m.Relayed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Error(code string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(code).Inc()
}

func (m *Metrics) Evicted(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Evictions.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) Panic() {
	if m == nil {
		return
	}
	m.Panics.Inc()
}

// SetCounts mirrors the status query into the gauges.
func (m *Metrics) SetCounts(conns, rooms, calls int) {
	if m == nil {
		return
	}
	m.Connections.Set(float64(conns))
	m.Rooms.Set(float64(rooms))
	m.Calls.Set(float64(calls))
}
