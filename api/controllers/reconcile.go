package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/perkspoint/perkspoint-backend/api/responses"
	"github.com/perkspoint/perkspoint-backend/api/validators"
	"github.com/perkspoint/perkspoint-backend/internal/reconciler"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
	pkgerrors "github.com/perkspoint/perkspoint-backend/pkg/errors"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
)

const (
	defaultStuckAgeMinutes = 10
	maxStuckAgeMinutes     = 7 * 24 * 60
)

// CheckStuckEvents lists wallet events stuck in a non-terminal state for
// longer than the requested age, with the classifier's verdict on each.
func CheckStuckEvents(svc reconciler.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler service unavailable"))
			return
		}

		ageMinutes, err := validators.ParseQueryInt(r, "age_minutes", defaultStuckAgeMinutes, 1, maxStuckAgeMinutes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stuck, err := svc.CheckStuck(r.Context(), time.Duration(ageMinutes)*time.Minute)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"age_minutes": ageMinutes,
			"count":       len(stuck),
			"stuck":       stuck,
		})
	}
}

type autoFixRequest struct {
	AgeMinutes int  `json:"age_minutes" validate:"omitempty,min=1,max=10080"`
	DryRun     bool `json:"dry_run"`
}

// AutoFixStuckEvents corrects stuck events with an unambiguous payment
// confirmation. With dry_run set it reports what a live run would do without
// mutating anything.
func AutoFixStuckEvents(svc reconciler.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler service unavailable"))
			return
		}

		var req autoFixRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.AgeMinutes == 0 {
			req.AgeMinutes = defaultStuckAgeMinutes
		}

		summary, err := svc.AutoFix(r.Context(), time.Duration(req.AgeMinutes)*time.Minute, req.DryRun)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type forceStatusRequest struct {
	EventID      string `json:"event_id" validate:"required,uuid4"`
	TargetStatus string `json:"target_status" validate:"required"`
	Reason       string `json:"reason" validate:"required,min=10"`
	TriggeredBy  string `json:"triggered_by" validate:"required"`
}

// ForceEventStatus is the manual override for events the classifier refuses
// to auto-correct. The override reason is recorded in the audit trail.
func ForceEventStatus(svc reconciler.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler service unavailable"))
			return
		}

		var req forceStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventID, err := uuid.Parse(req.EventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}
		target, err := enums.ParseWalletEventStatus(req.TargetStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		result, err := svc.ForceStatus(r.Context(), reconciler.ForceStatusInput{
			EventID:      eventID,
			TargetStatus: target,
			Reason:       validators.SanitizeString(req.Reason, 500),
			TriggeredBy:  validators.SanitizeString(req.TriggeredBy, 128),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
