package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejected     *prometheus.CounterVec
	CheckFailure prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Rejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_ratelimit_rejected_total",
			Help: "Attempts rejected because their bucket was full",
		}, []string{"bucket"}),
		CheckFailure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_ratelimit_check_failures_total",
			Help: "Rate limit checks that failed and were allowed through",
		}),
	}
}

func (m *Metrics) IncRejected(bucket string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(bucket).Inc()
}

func (m *Metrics) IncCheckFailure() {
	if m == nil {
		return
	}
	m.CheckFailure.Inc()
}
