package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/perkspoint/perkspoint-backend/api/responses"
	"github.com/perkspoint/perkspoint-backend/api/validators"
	"github.com/perkspoint/perkspoint-backend/internal/transitions"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
	pkgerrors "github.com/perkspoint/perkspoint-backend/pkg/errors"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
)

type transitionRequest struct {
	TargetStatus string          `json:"target_status" validate:"required"`
	TriggeredBy  string          `json:"triggered_by" validate:"required"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	RetryPolicy  *retryPolicyDTO `json:"retry_policy,omitempty"`
}

type retryPolicyDTO struct {
	MaxAttempts    int     `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	InitialDelayMS int     `json:"initial_delay_ms" validate:"omitempty,min=1"`
	MaxDelayMS     int     `json:"max_delay_ms" validate:"omitempty,min=1"`
	Multiplier     float64 `json:"multiplier" validate:"omitempty,min=1"`
}

// TransitionWalletEventStatus applies an atomic status transition to a wallet
// event. A lost race is reported in the payload, not as an HTTP error.
func TransitionWalletEventStatus(svc transitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transition service unavailable"))
			return
		}

		eventID, err := parseEventID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseWalletEventStatus(req.TargetStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		input := transitions.TransitionInput{
			EventID:      eventID,
			TargetStatus: target,
			TriggeredBy:  req.TriggeredBy,
			Metadata:     req.Metadata,
		}
		if req.RetryPolicy != nil {
			policy := transitions.DefaultRetryPolicy()
			if req.RetryPolicy.MaxAttempts > 0 {
				policy.MaxAttempts = req.RetryPolicy.MaxAttempts
			}
			if req.RetryPolicy.InitialDelayMS > 0 {
				policy.InitialDelay = time.Duration(req.RetryPolicy.InitialDelayMS) * time.Millisecond
			}
			if req.RetryPolicy.MaxDelayMS > 0 {
				policy.MaxDelay = time.Duration(req.RetryPolicy.MaxDelayMS) * time.Millisecond
			}
			if req.RetryPolicy.Multiplier >= 1 {
				policy.Multiplier = req.RetryPolicy.Multiplier
			}
			input.RetryPolicy = &policy
		}

		result, err := svc.TransitionStatus(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// VerifyWalletEventStatus reports whether an event's status matches the
// expected value supplied in the query string.
func VerifyWalletEventStatus(svc transitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transition service unavailable"))
			return
		}

		eventID, err := parseEventID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("expected"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "expected query parameter is required"))
			return
		}
		expected, err := enums.ParseWalletEventStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expected status"))
			return
		}

		verification, err := svc.VerifyStatus(r.Context(), eventID, expected)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, verification)
	}
}

func parseEventID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "eventID")
	eventID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id")
	}
	return eventID, nil
}
