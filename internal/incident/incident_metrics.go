package incident

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the incident subsystem. A nil
// *Metrics is valid and records nothing (used in tests).
type Metrics struct {
	IncidentsCreated  prometheus.Counter
	StatusTransitions *prometheus.CounterVec
	LLMCallsTotal     *prometheus.CounterVec
	LLMDuration       prometheus.Histogram
}

// NewMetrics registers and returns incident metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IncidentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_incidents_created_total",
			Help: "Total incidents created from ingested alerts.",
		}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_incident_status_transitions_total",
			Help: "Total incident status transitions by target status.",
		}, []string{"to"}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_llm_calls_total",
			Help: "Total LLM provider calls by outcome.",
		}, []string{"outcome"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
	}

	reg.MustRegister(
		m.IncidentsCreated,
		m.StatusTransitions,
		m.LLMCallsTotal,
		m.LLMDuration,
	)

	return m
}

func (m *Metrics) incCreated() {
	if m == nil {
		return
	}
	m.IncidentsCreated.Inc()
}

func (m *Metrics) incTransition(to Status) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) observeLLMCall(seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.LLMCallsTotal.WithLabelValues(outcome).Inc()
	m.LLMDuration.Observe(seconds)
}
