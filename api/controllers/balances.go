package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/perkspoint/perkspoint-backend/api/responses"
	"github.com/perkspoint/perkspoint-backend/internal/ledger"
	pkgerrors "github.com/perkspoint/perkspoint-backend/pkg/errors"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
)

// GetBalances replays the user's event logs and returns derived balances plus
// the unified transaction history. An optional cutoff query (RFC 3339) limits
// the replay to events at or before that instant.
func GetBalances(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var cutoff *time.Time
		if raw := strings.TrimSpace(r.URL.Query().Get("cutoff")); raw != "" {
			parsed, parseErr := time.Parse(time.RFC3339, raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "cutoff must be RFC 3339"))
				return
			}
			cutoff = &parsed
		}

		balances, err := svc.CalculateBalances(r.Context(), userID, cutoff)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balances)
	}
}

// VerifyBalances compares replayed balances against the stored projection.
func VerifyBalances(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.VerifyBalances(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// SyncBalances recomputes and persists the lifetime topup projection.
func SyncBalances(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SyncBalances(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user_id": userID, "synced": true})
	}
}

func parseUserID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "userID")
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return userID, nil
}
