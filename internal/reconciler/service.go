package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perkspoint/perkspoint-backend/internal/transitions"
	"github.com/perkspoint/perkspoint-backend/pkg/db/models"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
	pkgerrors "github.com/perkspoint/perkspoint-backend/pkg/errors"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
)

const minOverrideReasonLen = 10

// Service detects wallet events stuck in a non-terminal state and corrects the
// unambiguous ones. Detection and correction share one classification path so
// a dry run is a faithful preview of a live run.
type Service interface {
	CheckStuck(ctx context.Context, ageThreshold time.Duration) ([]StuckEvent, error)
	AutoFix(ctx context.Context, ageThreshold time.Duration, dryRun bool) (*FixSummary, error)
	ForceStatus(ctx context.Context, input ForceStatusInput) (*transitions.TransitionResult, error)
}

// StuckEvent is a non-terminal wallet event older than the threshold, with its
// classification verdict.
type StuckEvent struct {
	Event           models.WalletEvent       `json:"event"`
	Age             time.Duration            `json:"age"`
	Correctable     bool                     `json:"correctable"`
	SuggestedStatus *enums.WalletEventStatus `json:"suggested_status,omitempty"`
	Reason          string                   `json:"reason"`
}

// EventFixAction describes what AutoFix did (or would do) with one event.
type EventFixAction string

const (
	EventFixActionFixed    EventFixAction = "fixed"
	EventFixActionWouldFix EventFixAction = "would_fix"
	EventFixActionSkipped  EventFixAction = "skipped"
	EventFixActionFailed   EventFixAction = "failed"
)

// EventFixResult is the per-event outcome of an AutoFix pass.
type EventFixResult struct {
	EventID      uuid.UUID                `json:"event_id"`
	Action       EventFixAction           `json:"action"`
	TargetStatus *enums.WalletEventStatus `json:"target_status,omitempty"`
	Reason       string                   `json:"reason"`
	Error        string                   `json:"error,omitempty"`
}

// FixSummary aggregates one AutoFix pass. Per-event failures are isolated
// here; the pass itself only errors when detection fails outright.
type FixSummary struct {
	DryRun  bool             `json:"dry_run"`
	Fixed   int              `json:"fixed"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
	Results []EventFixResult `json:"results"`
}

// ForceStatusInput is the manual override path for events the classifier
// refuses to auto-correct. It still rides the transition service, so
// atomicity, idempotency and auditing hold.
type ForceStatusInput struct {
	EventID      uuid.UUID
	TargetStatus enums.WalletEventStatus
	Reason       string
	TriggeredBy  string
}

// ServiceParams wires a reconciler service.
type ServiceParams struct {
	Repository  Repository
	Transitions transitions.Service
	Logger      *logger.Logger
	BatchLimit  int
	Now         func() time.Time
}

type service struct {
	repo        Repository
	transitions transitions.Service
	logg        *logger.Logger
	batchLimit  int
	now         func() time.Time
}

// NewService validates dependencies and returns the reconciler service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("reconciler repository required")
	}
	if params.Transitions == nil {
		return nil, fmt.Errorf("transition service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repository,
		transitions: params.Transitions,
		logg:        params.Logger,
		batchLimit:  params.BatchLimit,
		now:         now,
	}, nil
}

func (s *service) CheckStuck(ctx context.Context, ageThreshold time.Duration) ([]StuckEvent, error) {
	if ageThreshold <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "age threshold must be positive")
	}

	now := s.now().UTC()
	events, err := s.repo.ListStuckWalletEvents(ctx, now.Add(-ageThreshold), s.batchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing stuck wallet events")
	}

	ids := make([]uuid.UUID, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
	}
	confirmations, err := s.repo.GetConfirmations(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading payment confirmations")
	}

	stuck := make([]StuckEvent, 0, len(events))
	for _, event := range events {
		verdict := classify(event, confirmations)
		verdict.Age = now.Sub(event.CreatedAt)
		stuck = append(stuck, verdict)
	}
	return stuck, nil
}

// classify maps the external confirmation verdict onto a wallet status. Only
// an unambiguous confirmation makes an event correctable.
func classify(event models.WalletEvent, confirmations map[uuid.UUID]models.PaymentConfirmation) StuckEvent {
	result := StuckEvent{Event: event}

	confirmation, ok := confirmations[event.ID]
	if !ok {
		result.Reason = "no payment confirmation on record; manual review required"
		return result
	}

	var target enums.WalletEventStatus
	switch confirmation.Outcome {
	case enums.ConfirmationOutcomeCompleted:
		target = enums.WalletEventStatusSuccess
	case enums.ConfirmationOutcomeFailed:
		target = enums.WalletEventStatusFailed
	case enums.ConfirmationOutcomeCancelled:
		target = enums.WalletEventStatusCancelled
	default:
		result.Reason = fmt.Sprintf("confirmation outcome %q is ambiguous; manual review required", confirmation.Outcome)
		return result
	}

	result.Correctable = true
	result.SuggestedStatus = &target
	result.Reason = fmt.Sprintf("provider confirmation %q maps to status %s", confirmation.Outcome, target)
	return result
}

func (s *service) AutoFix(ctx context.Context, ageThreshold time.Duration, dryRun bool) (*FixSummary, error) {
	stuck, err := s.CheckStuck(ctx, ageThreshold)
	if err != nil {
		return nil, err
	}

	summary := &FixSummary{DryRun: dryRun, Results: make([]EventFixResult, 0, len(stuck))}
	for _, candidate := range stuck {
		result := EventFixResult{
			EventID:      candidate.Event.ID,
			TargetStatus: candidate.SuggestedStatus,
			Reason:       candidate.Reason,
		}

		if !candidate.Correctable {
			result.Action = EventFixActionSkipped
			summary.Skipped++
			summary.Results = append(summary.Results, result)
			continue
		}

		if dryRun {
			result.Action = EventFixActionWouldFix
			summary.Fixed++
			summary.Results = append(summary.Results, result)
			continue
		}

		transitionResult, transitionErr := s.transitions.TransitionStatus(ctx, transitions.TransitionInput{
			EventID:      candidate.Event.ID,
			TargetStatus: *candidate.SuggestedStatus,
			TriggeredBy:  "reconciler:auto-fix",
		})
		if transitionErr != nil {
			logCtx := s.logg.WithField(ctx, "event_id", candidate.Event.ID)
			s.logg.Error(logCtx, "auto-fix transition failed", transitionErr)
			result.Action = EventFixActionFailed
			result.Error = transitionErr.Error()
			summary.Failed++
			summary.Results = append(summary.Results, result)
			continue
		}

		// A concurrent writer winning the swap still resolves the event,
		// but the reconciler did not apply it and must not claim so.
		if transitionResult.RaceDetected {
			result.Action = EventFixActionSkipped
			result.Reason = fmt.Sprintf("concurrent update already moved the event to %s", transitionResult.NewStatus)
			summary.Skipped++
			summary.Results = append(summary.Results, result)
			continue
		}

		result.Action = EventFixActionFixed
		summary.Fixed++
		summary.Results = append(summary.Results, result)
	}
	return summary, nil
}

func (s *service) ForceStatus(ctx context.Context, input ForceStatusInput) (*transitions.TransitionResult, error) {
	if len(strings.TrimSpace(input.Reason)) < minOverrideReasonLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("override reason must be at least %d characters", minOverrideReasonLen))
	}
	triggeredBy := strings.TrimSpace(input.TriggeredBy)
	if triggeredBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "triggered_by is required")
	}

	metadata := fmt.Sprintf(`{"override_reason":%q}`, input.Reason)
	return s.transitions.TransitionStatus(ctx, transitions.TransitionInput{
		EventID:      input.EventID,
		TargetStatus: input.TargetStatus,
		TriggeredBy:  "manual-override:" + triggeredBy,
		Metadata:     []byte(metadata),
	})
}
