package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/perkspoint/perkspoint-backend/internal/reconciler"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
)

const defaultStuckAgeThreshold = 10 * time.Minute

// StuckEventsJobParams configures the scheduled reconciliation pass.
type StuckEventsJobParams struct {
	Logger       *logger.Logger
	Reconciler   reconciler.Service
	AgeThreshold time.Duration
	DryRun       bool
}

// NewStuckEventsJob constructs the cron job that auto-fixes stuck wallet
// events.
func NewStuckEventsJob(params StuckEventsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler service required")
	}
	threshold := params.AgeThreshold
	if threshold <= 0 {
		threshold = defaultStuckAgeThreshold
	}
	return &stuckEventsJob{
		logg:         params.Logger,
		reconciler:   params.Reconciler,
		ageThreshold: threshold,
		dryRun:       params.DryRun,
	}, nil
}

type stuckEventsJob struct {
	logg         *logger.Logger
	reconciler   reconciler.Service
	ageThreshold time.Duration
	dryRun       bool
}

func (j *stuckEventsJob) Name() string { return "stuck-events-reconcile" }

func (j *stuckEventsJob) Run(ctx context.Context) error {
	summary, err := j.reconciler.AutoFix(ctx, j.ageThreshold, j.dryRun)
	if err != nil {
		return fmt.Errorf("auto-fix pass: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"dry_run": summary.DryRun,
		"fixed":   summary.Fixed,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
	j.logg.Info(logCtx, "stuck event reconcile pass complete")

	// Per-event failures never abort the pass, but the cycle should still
	// count as failed so the metrics and alerting see it.
	var errs []error
	for _, result := range summary.Results {
		if result.Action == reconciler.EventFixActionFailed {
			errs = append(errs, fmt.Errorf("event %s: %s", result.EventID, result.Error))
		}
	}
	return multierr.Combine(errs...)
}
