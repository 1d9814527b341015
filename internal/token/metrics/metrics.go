package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SecretsIssued  prometheus.Counter
	SecretsRotated prometheus.Counter
	Validations    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		SecretsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_token_secrets_issued_total",
			Help: "Total number of session secrets minted",
		}),
		SecretsRotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_token_secrets_rotated_total",
			Help: "Total number of session secret rotations",
		}),
		Validations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_token_validations_total",
			Help: "Token validations by outcome",
		}, []string{"outcome"}),
	}
}

// The methods below are nil-safe so services can run without metrics in tests.

func (m *Metrics) IncIssued() {
	if m == nil {
		return
	}
	m.SecretsIssued.Inc()
}

func (m *Metrics) IncRotated() {
	if m == nil {
		return
	}
	m.SecretsRotated.Inc()
}

func (m *Metrics) IncValidation(ok bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if ok {
		outcome = "accepted"
	}
	m.Validations.WithLabelValues(outcome).Inc()
}
