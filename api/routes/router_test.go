package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/perkspoint/perkspoint-backend/internal/ledger"
	"github.com/perkspoint/perkspoint-backend/internal/reconciler"
	"github.com/perkspoint/perkspoint-backend/internal/transitions"
	"github.com/perkspoint/perkspoint-backend/pkg/config"
	"github.com/perkspoint/perkspoint-backend/pkg/db/models"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
	"github.com/perkspoint/perkspoint-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubLedgerService struct{}

func (stubLedgerService) RecordWalletEvent(ctx context.Context, input ledger.RecordWalletEventInput) (*models.WalletEvent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubLedgerService) RecordBonusEvent(ctx context.Context, input ledger.RecordBonusEventInput) (*models.BonusEvent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubLedgerService) RecordStarsEvent(ctx context.Context, input ledger.RecordStarsEventInput) (*models.StarsEvent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubLedgerService) CalculateBalances(ctx context.Context, userID uuid.UUID, cutoff *time.Time) (*ledger.MasterBalances, error) {
	return &ledger.MasterBalances{UserID: userID}, nil
}

func (stubLedgerService) VerifyBalances(ctx context.Context, userID uuid.UUID) (*ledger.VerificationReport, error) {
	return &ledger.VerificationReport{UserID: userID}, nil
}

func (stubLedgerService) SyncBalances(ctx context.Context, userID uuid.UUID) error { return nil }

type stubTransitionService struct{}

func (stubTransitionService) TransitionStatus(ctx context.Context, input transitions.TransitionInput) (*transitions.TransitionResult, error) {
	return &transitions.TransitionResult{Success: true, NewStatus: input.TargetStatus}, nil
}

func (stubTransitionService) VerifyStatus(ctx context.Context, eventID uuid.UUID, expected enums.WalletEventStatus) (*transitions.StatusVerification, error) {
	return &transitions.StatusVerification{Verified: true, ActualStatus: expected}, nil
}

type stubReconcilerService struct{}

func (stubReconcilerService) CheckStuck(ctx context.Context, ageThreshold time.Duration) ([]reconciler.StuckEvent, error) {
	return nil, nil
}

func (stubReconcilerService) AutoFix(ctx context.Context, ageThreshold time.Duration, dryRun bool) (*reconciler.FixSummary, error) {
	return &reconciler.FixSummary{DryRun: dryRun}, nil
}

func (stubReconcilerService) ForceStatus(ctx context.Context, input reconciler.ForceStatusInput) (*transitions.TransitionResult, error) {
	return &transitions.TransitionResult{Success: true}, nil
}

func newTestRouter(t *testing.T, gatherer prometheus.Gatherer) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return NewRouter(RouterParams{
		Config:      cfg,
		Logger:      logger.New(logger.Options{ServiceName: "router-test"}),
		DBPinger:    stubPinger{},
		Ledger:      stubLedgerService{},
		Transitions: stubTransitionService{},
		Reconciler:  stubReconcilerService{},
		Gatherer:    gatherer,
	})
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("X-PerksPoint-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestRouterBalancesRoutes(t *testing.T) {
	router := newTestRouter(t, nil)
	userID := uuid.New()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/users/" + userID.String() + "/balances", http.StatusOK},
		{http.MethodGet, "/api/v1/users/" + userID.String() + "/balances/verify", http.StatusOK},
		{http.MethodGet, "/api/v1/users/not-a-uuid/balances", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(tt.method, tt.path, nil))
		if resp.Code != tt.want {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tt.method, tt.path, tt.want, resp.Code, resp.Body.String())
		}
	}
}

func TestRouterVerifyStatusRequiresExpectedParam(t *testing.T) {
	router := newTestRouter(t, nil)
	eventID := uuid.New()

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/wallet-events/"+eventID.String()+"/status/verify", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without expected param, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/wallet-events/"+eventID.String()+"/status/verify?expected=success", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	var body struct {
		Data transitions.StatusVerification `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Data.Verified {
		t.Fatalf("expected verified result")
	}
}

func TestRouterReconcileRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/v1/reconcile/stuck?age_minutes=30", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/v1/reconcile/stuck?age_minutes=zero", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad age, got %d", resp.Code)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := newTestRouter(t, reg)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	noMetrics := newTestRouter(t, nil)
	resp = httptest.NewRecorder()
	noMetrics.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when metrics disabled, got %d", resp.Code)
	}
}
