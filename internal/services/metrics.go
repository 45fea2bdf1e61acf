package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// turnsTotal counts finished turns by response type.
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_turns_total",
			Help: "Total number of processed conversation turns.",
		},
		[]string{"response_type"},
	)

	// aiFailures counts AI backend failures by classified kind.
	aiFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_ai_failures_total",
			Help: "Total number of AI backend failures.",
		},
		[]string{"kind"},
	)

	// handoffs counts phone captures by dispatch outcome (sent/failed).
	handoffs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_handoffs_total",
			Help: "Total number of completed phone handoffs.",
		},
		[]string{"dispatch"},
	)
)

func init() {
	prometheus.MustRegister(turnsTotal, aiFailures, handoffs)
}
