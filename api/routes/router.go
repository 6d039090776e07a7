package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perkspoint/perkspoint-backend/api/controllers"
	"github.com/perkspoint/perkspoint-backend/api/middleware"
	"github.com/perkspoint/perkspoint-backend/internal/ledger"
	"github.com/perkspoint/perkspoint-backend/internal/reconciler"
	"github.com/perkspoint/perkspoint-backend/internal/transitions"
	"github.com/perkspoint/perkspoint-backend/pkg/config"
	"github.com/perkspoint/perkspoint-backend/pkg/db"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
	"github.com/perkspoint/perkspoint-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DBPinger    db.Pinger
	Redis       *redis.Client
	Ledger      ledger.Service
	Transitions transitions.Service
	Reconciler  reconciler.Service
	// Gatherer feeds the /metrics endpoint. Nil disables it.
	Gatherer prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	// A typed nil *redis.Client must not masquerade as a live Pinger.
	var redisPinger redis.Pinger
	if p.Redis != nil {
		redisPinger = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DBPinger, redisPinger))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if p.Redis != nil {
			r.Use(middleware.Idempotency(p.Redis, p.Logger))
		}

		r.Route("/users/{userID}/balances", func(r chi.Router) {
			r.Get("/", controllers.GetBalances(p.Ledger, p.Logger))
			r.Get("/verify", controllers.VerifyBalances(p.Ledger, p.Logger))
			r.Post("/sync", controllers.SyncBalances(p.Ledger, p.Logger))
		})

		r.Route("/wallet-events/{eventID}/status", func(r chi.Router) {
			r.Post("/", controllers.TransitionWalletEventStatus(p.Transitions, p.Logger))
			r.Get("/verify", controllers.VerifyWalletEventStatus(p.Transitions, p.Logger))
		})
	})

	r.Route("/api/admin/v1/reconcile", func(r chi.Router) {
		if p.Redis != nil {
			r.Use(middleware.Idempotency(p.Redis, p.Logger))
		}
		r.Get("/stuck", controllers.CheckStuckEvents(p.Reconciler, p.Logger))
		r.Post("/auto-fix", controllers.AutoFixStuckEvents(p.Reconciler, p.Logger))
		r.Post("/force-status", controllers.ForceEventStatus(p.Reconciler, p.Logger))
	})

	return r
}
