package controllers

import (
	"net/http"

	"github.com/perkspoint/perkspoint-backend/api/responses"
	"github.com/perkspoint/perkspoint-backend/pkg/config"
	"github.com/perkspoint/perkspoint-backend/pkg/db"
	pkgerrors "github.com/perkspoint/perkspoint-backend/pkg/errors"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
	"github.com/perkspoint/perkspoint-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PerksPoint-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the dependencies a request actually needs. Redis is
// optional in some deployments, so a nil pinger is skipped rather than failed.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PerksPoint-Env", cfg.App.Env)

		checks := map[string]string{}

		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not wired"))
			return
		}
		if err := dbP.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not ready"))
			return
		}
		checks["database"] = "ok"

		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not ready"))
				return
			}
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
