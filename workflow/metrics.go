package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomePerformed = "performed"
	outcomeSkipped   = "skipped"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// Metrics counts the outcomes of PerformTransition.
type Metrics struct {
	transitions *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. Pass prometheus.DefaultRegisterer to expose them at the default handler.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	var m = &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lims_transitions_total",
				Help: "Transitions requested through the dispatcher, by outcome.",
			},
			[]string{"transition", "outcome"},
		),
	}
	if err := reg.Register(m.transitions); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(transition, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, outcome).Inc()
}
