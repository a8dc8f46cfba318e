// Package metrics exposes relay counters to Prometheus. A nil *Relay is valid
// and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leadrelay"

type Relay struct {
	connections prometheus.Gauge
	inbound     *prometheus.CounterVec
	malformed   *prometheus.CounterVec
	delivered   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// New registers the relay collectors on reg. rooms reports the current number
// of non-empty rooms.
func New(reg prometheus.Registerer, rooms func() float64) *Relay {
	f := promauto.With(reg)
	if rooms != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}, rooms)
	}
	return &Relay{
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live socket connections.",
		}),
		inbound: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Well-formed events received from clients.",
		}, []string{"event"}),
		malformed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_events_total",
			Help:      "Inbound events dropped because they could not be decoded.",
		}, []string{"event"}),
		delivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivered_frames_total",
			Help:      "Frames enqueued to room members.",
		}, []string{"event"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_frames_total",
			Help:      "Frames lost to closed or saturated members.",
		}, []string{"event"}),
	}
}

func (m *Relay) ConnOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Relay) ConnClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Relay) Inbound(event string) {
	if m != nil {
		m.inbound.WithLabelValues(event).Inc()
	}
}

func (m *Relay) Malformed(event string) {
	if m != nil {
		m.malformed.WithLabelValues(event).Inc()
	}
}

func (m *Relay) Fanout(event string, delivered, dropped int) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(event).Add(float64(delivered))
	m.dropped.WithLabelValues(event).Add(float64(dropped))
}
