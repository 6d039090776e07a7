package transitions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkspoint/perkspoint-backend/pkg/db/models"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
	pkgerrors "github.com/perkspoint/perkspoint-backend/pkg/errors"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
	"github.com/perkspoint/perkspoint-backend/pkg/metrics"
)

// Service performs atomic, idempotent, retryable status transitions on wallet
// events. The store's conditional update is the only concurrency primitive;
// the service holds no in-process locks so it can run as multiple stateless
// instances.
type Service interface {
	TransitionStatus(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	VerifyStatus(ctx context.Context, eventID uuid.UUID, expected enums.WalletEventStatus) (*StatusVerification, error)
}

// TransitionInput describes one requested status mutation.
type TransitionInput struct {
	EventID      uuid.UUID
	TargetStatus enums.WalletEventStatus
	TriggeredBy  string
	Metadata     json.RawMessage
	// RetryPolicy bounds retries of transient store failures. Nil uses
	// DefaultRetryPolicy.
	RetryPolicy *RetryPolicy
}

// TransitionResult reports the outcome of a transition attempt.
type TransitionResult struct {
	Success      bool                    `json:"success"`
	OldStatus    enums.WalletEventStatus `json:"old_status"`
	NewStatus    enums.WalletEventStatus `json:"new_status"`
	Idempotent   bool                    `json:"idempotent"`
	RaceDetected bool                    `json:"race_detected"`
	AuditID      uuid.UUID               `json:"audit_id"`
	Attempts     int                     `json:"attempts"`
}

// StatusVerification reports whether an event's status matches expectations.
type StatusVerification struct {
	Verified     bool                    `json:"verified"`
	ActualStatus enums.WalletEventStatus `json:"actual_status"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	db            txRunner
	repo          Repository
	logg          *logger.Logger
	metrics       *metrics.TransitionMetrics
	defaultPolicy RetryPolicy
}

// ServiceParams wires a transition service.
type ServiceParams struct {
	DB         txRunner
	Repository Repository
	Logger     *logger.Logger
	Metrics    *metrics.TransitionMetrics
	// DefaultPolicy applies when a call carries no policy of its own. Nil
	// falls back to DefaultRetryPolicy.
	DefaultPolicy *RetryPolicy
}

// NewService validates dependencies and returns the transition service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("transitions repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	defaultPolicy := DefaultRetryPolicy()
	if params.DefaultPolicy != nil {
		defaultPolicy = params.DefaultPolicy.normalized()
	}
	return &service{
		db:            params.DB,
		repo:          params.Repository,
		logg:          params.Logger,
		metrics:       params.Metrics,
		defaultPolicy: defaultPolicy,
	}, nil
}

// TransitionStatus applies exactly-once semantics per event:
//   - current == target: success with Idempotent=true, no state change
//   - current terminal and != target: STATE_CONFLICT, nothing applied
//   - CAS wins: status and audit entry commit atomically
//   - CAS loses: RaceDetected=true with the winner's resulting status
//
// Every attempt appends one audit entry, including failures and no-ops.
func (s *service) TransitionStatus(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if !input.TargetStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid target status %q", input.TargetStatus))
	}
	if strings.TrimSpace(input.TriggeredBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "triggered_by is required")
	}

	policy := s.defaultPolicy
	if input.RetryPolicy != nil {
		policy = *input.RetryPolicy
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":      input.EventID,
		"target_status": input.TargetStatus,
		"triggered_by":  input.TriggeredBy,
	})

	var result *TransitionResult
	attempts, err := runWithRetry(logCtx, policy, func(ctx context.Context) error {
		var attemptErr error
		result, attemptErr = s.attempt(ctx, input)
		return attemptErr
	})
	if err != nil {
		s.observe("error")
		if typed := pkgerrors.As(err); typed != nil {
			// State-conflict attempts already wrote their own audit entry.
			if typed.Code() != pkgerrors.CodeStateConflict {
				s.recordFailedAttempt(logCtx, input, err)
			}
			return nil, typed
		}
		s.recordFailedAttempt(logCtx, input, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("transition failed after %d attempts", attempts))
	}

	result.Attempts = attempts
	switch {
	case result.Idempotent:
		s.observe("idempotent")
	case result.RaceDetected:
		s.observe("race_lost")
	default:
		s.observe("applied")
	}
	return result, nil
}

// attempt executes one atomic transition round-trip.
func (s *service) attempt(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	event, err := s.repo.GetWalletEvent(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("wallet event %s not found", input.EventID))
	}

	current := event.Status
	if current == input.TargetStatus {
		entry := s.newAuditEntry(input, current, current)
		entry.Success = true
		entry.Idempotent = true
		if err := s.repo.AppendAudit(ctx, entry); err != nil {
			return nil, err
		}
		return &TransitionResult{
			Success:    true,
			OldStatus:  current,
			NewStatus:  current,
			Idempotent: true,
			AuditID:    entry.ID,
		}, nil
	}

	if current.IsTerminal() {
		entry := s.newAuditEntry(input, current, current)
		entry.Success = false
		code := string(pkgerrors.CodeStateConflict)
		msg := fmt.Sprintf("status %s is terminal", current)
		entry.ErrorCode = &code
		entry.ErrorMessage = &msg
		if err := s.repo.AppendAudit(ctx, entry); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition event %s from terminal status %s to %s", input.EventID, current, input.TargetStatus)).
			WithDetails(map[string]any{"audit_id": entry.ID})
	}

	var result *TransitionResult
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		swapped, casErr := repo.CompareAndSwapStatus(ctx, input.EventID, current, input.TargetStatus, time.Now().UTC())
		if casErr != nil {
			return casErr
		}

		if swapped {
			entry := s.newAuditEntry(input, current, input.TargetStatus)
			entry.Success = true
			if auditErr := repo.AppendAudit(ctx, entry); auditErr != nil {
				return auditErr
			}
			result = &TransitionResult{
				Success:   true,
				OldStatus: current,
				NewStatus: input.TargetStatus,
				AuditID:   entry.ID,
			}
			return nil
		}

		// Lost the race: report the winner's resulting status, never
		// pretend the requested value applied.
		actual, readErr := repo.GetWalletEvent(ctx, input.EventID)
		if readErr != nil {
			return readErr
		}
		if actual == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("wallet event %s not found", input.EventID))
		}
		entry := s.newAuditEntry(input, current, actual.Status)
		entry.Success = false
		entry.RaceDetected = true
		code := string(pkgerrors.CodeRaceLost)
		msg := fmt.Sprintf("concurrent transition set status to %s", actual.Status)
		entry.ErrorCode = &code
		entry.ErrorMessage = &msg
		if auditErr := repo.AppendAudit(ctx, entry); auditErr != nil {
			return auditErr
		}
		result = &TransitionResult{
			Success:      false,
			OldStatus:    current,
			NewStatus:    actual.Status,
			RaceDetected: true,
			AuditID:      entry.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) VerifyStatus(ctx context.Context, eventID uuid.UUID, expected enums.WalletEventStatus) (*StatusVerification, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if !expected.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid expected status %q", expected))
	}

	event, err := s.repo.GetWalletEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading wallet event")
	}
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("wallet event %s not found", eventID))
	}
	return &StatusVerification{
		Verified:     event.Status == expected,
		ActualStatus: event.Status,
	}, nil
}

func (s *service) newAuditEntry(input TransitionInput, from, to enums.WalletEventStatus) *models.StatusAuditEntry {
	return &models.StatusAuditEntry{
		ID:          uuid.New(),
		EventID:     input.EventID,
		OldStatus:   from,
		NewStatus:   to,
		TriggeredBy: input.TriggeredBy,
	}
}

// recordFailedAttempt leaves an audit trail for attempts that never reached a
// committed outcome. Best effort: the original error is what the caller sees.
func (s *service) recordFailedAttempt(ctx context.Context, input TransitionInput, cause error) {
	event, err := s.repo.GetWalletEvent(ctx, input.EventID)
	if err != nil || event == nil {
		return
	}
	entry := s.newAuditEntry(input, event.Status, event.Status)
	entry.Success = false
	code := string(pkgerrors.CodeDependency)
	if typed := pkgerrors.As(cause); typed != nil {
		code = string(typed.Code())
	}
	msg := cause.Error()
	entry.ErrorCode = &code
	entry.ErrorMessage = &msg
	if auditErr := s.repo.AppendAudit(ctx, entry); auditErr != nil {
		s.logg.Error(ctx, "failed to append audit entry for failed transition", auditErr)
	}
}

func (s *service) observe(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncOutcome(outcome)
}
