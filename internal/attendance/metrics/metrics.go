package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordsInserted *prometheus.CounterVec
	Duplicates      prometheus.Counter
	ClosedRejects   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RecordsInserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_attendance_records_total",
			Help: "Attendance records written to the ledger, by method",
		}, []string{"method"}),
		Duplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_attendance_duplicates_total",
			Help: "Ledger inserts rejected because the participant was already marked",
		}),
		ClosedRejects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_attendance_closed_rejects_total",
			Help: "Ledger inserts rejected because the session was closed",
		}),
	}
}

func (m *Metrics) IncInserted(method string) {
	if m == nil {
		return
	}
	m.RecordsInserted.WithLabelValues(method).Inc()
}

func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.Duplicates.Inc()
}

func (m *Metrics) IncClosedReject() {
	if m == nil {
		return
	}
	m.ClosedRejects.Inc()
}
