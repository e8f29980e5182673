package command

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts ledger mutations by outcome
type Metrics struct {
	importTuples      *prometheus.CounterVec
	assignmentUpdates *prometheus.CounterVec
}

// NewMetrics registers the command counters with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		importTuples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_import_tuples_total",
				Help: "Total number of import tuples processed, by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		assignmentUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_assignment_updates_total",
				Help: "Total number of assignment updates, by operation and result",
			},
			[]string{"operation", "result"},
		),
	}
	reg.MustRegister(m.importTuples, m.assignmentUpdates)
	return m
}

func (m *Metrics) tuple(strategy Strategy, outcome string) {
	if m == nil {
		return
	}
	m.importTuples.WithLabelValues(string(strategy), outcome).Inc()
}

func (m *Metrics) assignment(operation string, found bool) {
	if m == nil {
		return
	}
	result := "applied"
	if !found {
		result = "miss"
	}
	m.assignmentUpdates.WithLabelValues(operation, result).Inc()
}
