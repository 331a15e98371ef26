package quota

import "github.com/prometheus/client_golang/prometheus"

// Decision outcomes recorded by the gate.
const (
	OutcomeExempt        = "exempt"
	OutcomeAllowed       = "allowed"
	OutcomeLimitReached  = "limit_reached"
	OutcomeUpstreamError = "upstream_error"
	OutcomeRawResponse   = "raw_response"
)

// Metrics counts gate decisions and usage increments.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	decisions  *prometheus.CounterVec
	increments *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "replyflow",
				Subsystem: "quota",
				Name:      "decisions_total",
				Help:      "Action requests handled by the quota gate, by outcome.",
			},
			[]string{"action", "outcome"},
		),
		increments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "replyflow",
				Subsystem: "usage",
				Name:      "increments_total",
				Help:      "Units added to monthly usage counters.",
			},
			[]string{"dimension"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.increments)
	}
	return m
}

func (m *Metrics) decision(action, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) increment(dimension string, n int64) {
	if m == nil {
		return
	}
	m.increments.WithLabelValues(dimension).Add(float64(n))
}
