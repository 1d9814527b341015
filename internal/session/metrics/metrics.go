package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SessionsOpened prometheus.Counter
	SessionsClosed prometheus.Counter
	OpenConflicts  prometheus.Counter
	OpenSessions   prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_sessions_opened_total",
			Help: "Total number of attendance sessions opened",
		}),
		SessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_sessions_closed_total",
			Help: "Total number of attendance sessions closed",
		}),
		OpenConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_sessions_open_conflicts_total",
			Help: "Open attempts rejected because the holder already has an open session for the scope",
		}),
		OpenSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "rollcall_sessions_open",
			Help: "Sessions opened minus sessions closed by this instance",
		}),
	}
}

func (m *Metrics) IncOpened() {
	if m == nil {
		return
	}
	m.SessionsOpened.Inc()
	m.OpenSessions.Inc()
}

func (m *Metrics) IncClosed() {
	if m == nil {
		return
	}
	m.SessionsClosed.Inc()
	m.OpenSessions.Dec()
}

func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.OpenConflicts.Inc()
}
