package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransitionMetrics records outcomes of wallet event status transitions.
type TransitionMetrics struct {
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewTransitionMetrics registers the transition metrics on the provided
// registerer.
func NewTransitionMetrics(reg prometheus.Registerer) *TransitionMetrics {
	if reg == nil {
		return &TransitionMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "status_transition_total",
		Help: "Status transition attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "status_transition_duration_seconds",
		Help:    "Duration of status transitions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(outcomes, duration)
	return &TransitionMetrics{
		outcomes: outcomes,
		duration: duration,
	}
}

// IncOutcome increments the counter for the named outcome.
func (t *TransitionMetrics) IncOutcome(outcome string) {
	if t == nil || t.outcomes == nil {
		return
	}
	t.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDuration records how long a transition with the named outcome took.
func (t *TransitionMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if t == nil || t.duration == nil {
		return
	}
	t.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}
