package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTransitionMetricsExportsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewTransitionMetrics(reg)
	metrics.IncOutcome("applied")
	metrics.IncOutcome("applied")
	metrics.IncOutcome("race_lost")
	metrics.ObserveDuration("applied", 50*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "status_transition_total", "outcome", "applied"); err != nil {
		t.Fatalf("fetch applied: %v", err)
	} else if got != 2 {
		t.Fatalf("expected applied=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "status_transition_total", "outcome", "race_lost"); err != nil {
		t.Fatalf("fetch race_lost: %v", err)
	} else if got != 1 {
		t.Fatalf("expected race_lost=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "status_transition_duration_seconds", "outcome", "applied"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestTransitionMetricsNilSafe(t *testing.T) {
	var metrics *TransitionMetrics
	metrics.IncOutcome("applied")
	metrics.ObserveDuration("applied", time.Second)

	empty := NewTransitionMetrics(nil)
	empty.IncOutcome("applied")
}
