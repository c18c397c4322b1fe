package workflow

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the workflow subsystem. A nil
// *Metrics is valid and records nothing (used in tests).
type Metrics struct {
	RunsStarted   prometheus.Counter
	StepsTotal    *prometheus.CounterVec
	SignalsTotal  *prometheus.CounterVec
	TimeoutsTotal prometheus.Counter
	RunDuration   prometheus.Histogram
}

// NewMetrics registers and returns workflow metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_workflow_runs_started_total",
			Help: "Total workflow runs started.",
		}),
		StepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_workflow_steps_total",
			Help: "Workflow step executions by step and outcome.",
		}, []string{"step", "outcome"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_workflow_signals_total",
			Help: "Signal deliveries by outcome.",
		}, []string{"outcome"}),
		TimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_workflow_timeouts_total",
			Help: "Approval waits that elapsed without a signal.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_workflow_run_duration_seconds",
			Help:    "Wall time from run start to terminal state.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1s .. ~3 days
		}),
	}

	reg.MustRegister(
		m.RunsStarted,
		m.StepsTotal,
		m.SignalsTotal,
		m.TimeoutsTotal,
		m.RunDuration,
	)

	return m
}

func (m *Metrics) incStarted() {
	if m == nil {
		return
	}
	m.RunsStarted.Inc()
}

func (m *Metrics) incStep(step Step, outcome string) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(string(step), outcome).Inc()
}

func (m *Metrics) incSignal(outcome string) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) incTimeout() {
	if m == nil {
		return
	}
	m.TimeoutsTotal.Inc()
}

func (m *Metrics) observeRunDone(seconds float64) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(seconds)
}
