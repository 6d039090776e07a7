package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/perkspoint/perkspoint-backend/pkg/db/models"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
	pkgerrors "github.com/perkspoint/perkspoint-backend/pkg/errors"
)

type fakeRepository struct {
	wallet  []models.WalletEvent
	bonus   []models.BonusEvent
	stars   []models.StarsEvent
	profile *models.UserProfile

	listErr   error
	createdWE *models.WalletEvent
	upserted  *models.UserProfile
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateWalletEvent(ctx context.Context, event *models.WalletEvent) error {
	f.createdWE = event
	return nil
}

func (f *fakeRepository) CreateBonusEvent(ctx context.Context, event *models.BonusEvent) error {
	return nil
}

func (f *fakeRepository) CreateStarsEvent(ctx context.Context, event *models.StarsEvent) error {
	return nil
}

func (f *fakeRepository) ListWalletEvents(ctx context.Context, userID uuid.UUID, cutoff *time.Time) ([]models.WalletEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.wallet, nil
}

func (f *fakeRepository) ListBonusEvents(ctx context.Context, userID uuid.UUID, cutoff *time.Time) ([]models.BonusEvent, error) {
	return f.bonus, nil
}

func (f *fakeRepository) ListStarsEvents(ctx context.Context, userID uuid.UUID, cutoff *time.Time) ([]models.StarsEvent, error) {
	return f.stars, nil
}

func (f *fakeRepository) GetUserProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	return f.profile, nil
}

func (f *fakeRepository) UpsertLifetimeTopup(ctx context.Context, profile *models.UserProfile) error {
	f.upserted = profile
	return nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, decimal.RequireFromString("0.01"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestService_RecordWalletEventDefaultsToPending(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	metadata := json.RawMessage(`{"source":"checkout"}`)
	event, err := svc.RecordWalletEvent(context.Background(), RecordWalletEventInput{
		UserID:   uuid.New(),
		Type:     enums.WalletEventTypeTopup,
		Amount:   decimal.RequireFromString("25.50"),
		Metadata: metadata,
	})
	if err != nil {
		t.Fatalf("RecordWalletEvent: %v", err)
	}
	if repo.createdWE == nil {
		t.Fatal("expected event to be persisted")
	}
	if event.Status != enums.WalletEventStatusPending {
		t.Fatalf("expected pending status default, got %s", event.Status)
	}
	if event.ID == uuid.Nil {
		t.Fatal("expected event id to be assigned")
	}
	if string(event.Metadata) != string(metadata) {
		t.Fatalf("metadata mismatch: %s", event.Metadata)
	}
}

func TestService_RecordWalletEventValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	tests := []struct {
		name  string
		input RecordWalletEventInput
	}{
		{
			name: "missing user",
			input: RecordWalletEventInput{
				Type:   enums.WalletEventTypeTopup,
				Amount: decimal.RequireFromString("5"),
			},
		},
		{
			name: "invalid type",
			input: RecordWalletEventInput{
				UserID: uuid.New(),
				Type:   enums.WalletEventType("transfer"),
				Amount: decimal.RequireFromString("5"),
			},
		},
		{
			name: "invalid status",
			input: RecordWalletEventInput{
				UserID: uuid.New(),
				Type:   enums.WalletEventTypeTopup,
				Status: enums.WalletEventStatus("queued"),
				Amount: decimal.RequireFromString("5"),
			},
		},
		{
			name: "non-positive amount",
			input: RecordWalletEventInput{
				UserID: uuid.New(),
				Type:   enums.WalletEventTypeTopup,
				Amount: decimal.Zero,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordWalletEvent(context.Background(), tt.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_CalculateBalancesWrapsReadFailures(t *testing.T) {
	repo := &fakeRepository{listErr: errors.New("connection refused")}
	svc := newTestService(t, repo)

	_, err := svc.CalculateBalances(context.Background(), uuid.New(), nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_VerifyBalancesFlagsDrift(t *testing.T) {
	userID := uuid.New()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepository{
		wallet: []models.WalletEvent{
			walletEvent(t, userID, enums.WalletEventTypeTopup, enums.WalletEventStatusSuccess, "100", base, 1),
		},
		profile: &models.UserProfile{
			ID:            userID,
			LifetimeTopup: decimal.RequireFromString("90"),
		},
	}
	svc := newTestService(t, repo)

	report, err := svc.VerifyBalances(context.Background(), userID)
	if err != nil {
		t.Fatalf("VerifyBalances: %v", err)
	}
	if !report.Discrepancies.LifetimeTopup {
		t.Fatal("expected lifetime topup discrepancy")
	}
	if !report.Discrepancies.Any() {
		t.Fatal("expected Any() to report drift")
	}
	if !report.StoredLifetimeTopup.Equal(decimal.RequireFromString("90")) {
		t.Fatalf("unexpected stored value %s", report.StoredLifetimeTopup)
	}
}

func TestService_VerifyBalancesWithinEpsilon(t *testing.T) {
	userID := uuid.New()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepository{
		wallet: []models.WalletEvent{
			walletEvent(t, userID, enums.WalletEventTypeTopup, enums.WalletEventStatusSuccess, "100", base, 1),
		},
		profile: &models.UserProfile{
			ID:            userID,
			LifetimeTopup: decimal.RequireFromString("100.005"),
		},
	}
	svc := newTestService(t, repo)

	report, err := svc.VerifyBalances(context.Background(), userID)
	if err != nil {
		t.Fatalf("VerifyBalances: %v", err)
	}
	if report.Discrepancies.Any() {
		t.Fatalf("sub-epsilon drift should not be flagged: %+v", report.Discrepancies)
	}
}

func TestService_VerifyBalancesMissingProfileComparesAgainstZero(t *testing.T) {
	userID := uuid.New()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepository{
		wallet: []models.WalletEvent{
			walletEvent(t, userID, enums.WalletEventTypeTopup, enums.WalletEventStatusSuccess, "10", base, 1),
		},
	}
	svc := newTestService(t, repo)

	report, err := svc.VerifyBalances(context.Background(), userID)
	if err != nil {
		t.Fatalf("VerifyBalances: %v", err)
	}
	if !report.StoredLifetimeTopup.IsZero() {
		t.Fatalf("expected zero stored value, got %s", report.StoredLifetimeTopup)
	}
	if !report.Discrepancies.LifetimeTopup {
		t.Fatal("expected discrepancy against missing profile")
	}
}

func TestService_SyncBalancesPersistsReplayedValue(t *testing.T) {
	userID := uuid.New()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepository{
		wallet: []models.WalletEvent{
			walletEvent(t, userID, enums.WalletEventTypeTopup, enums.WalletEventStatusSuccess, "100", base, 1),
			walletEvent(t, userID, enums.WalletEventTypeTopup, enums.WalletEventStatusSuccess, "50", base.Add(time.Minute), 2),
			walletEvent(t, userID, enums.WalletEventTypeSpend, enums.WalletEventStatusSuccess, "30", base.Add(2*time.Minute), 3),
		},
	}
	svc := newTestService(t, repo)

	if err := svc.SyncBalances(context.Background(), userID); err != nil {
		t.Fatalf("SyncBalances: %v", err)
	}
	if repo.upserted == nil {
		t.Fatal("expected projection upsert")
	}
	if !repo.upserted.LifetimeTopup.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("expected lifetime topup 150, got %s", repo.upserted.LifetimeTopup)
	}
	if repo.upserted.BalancesSyncedAt == nil {
		t.Fatal("expected sync timestamp")
	}
}
