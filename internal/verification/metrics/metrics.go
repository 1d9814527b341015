package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Verifications *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_verifications_total",
			Help: "Proof verifications by method and outcome",
		}, []string{"method", "outcome"}),
	}
}

// Observe records one verification. outcome is "accepted" or the rejection code.
func (m *Metrics) Observe(method, outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(method, outcome).Inc()
}
