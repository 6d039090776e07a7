package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/perkspoint/perkspoint-backend/pkg/db/models"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
	pkgerrors "github.com/perkspoint/perkspoint-backend/pkg/errors"
)

// Service exposes the replay engine plus the append-only intake used by
// collaborators (payment callbacks, reward grants, admin adjustments).
type Service interface {
	RecordWalletEvent(ctx context.Context, input RecordWalletEventInput) (*models.WalletEvent, error)
	RecordBonusEvent(ctx context.Context, input RecordBonusEventInput) (*models.BonusEvent, error)
	RecordStarsEvent(ctx context.Context, input RecordStarsEventInput) (*models.StarsEvent, error)
	CalculateBalances(ctx context.Context, userID uuid.UUID, cutoff *time.Time) (*MasterBalances, error)
	VerifyBalances(ctx context.Context, userID uuid.UUID) (*VerificationReport, error)
	SyncBalances(ctx context.Context, userID uuid.UUID) error
}

// VerificationReport compares replayed balances against the stored
// lifetime_topup projection. Wallet/bonus/stars have no stored counterpart, so
// their discrepancy flags are false by construction.
type VerificationReport struct {
	UserID              uuid.UUID       `json:"user_id"`
	Calculated          BalanceSnapshot `json:"calculated"`
	StoredLifetimeTopup decimal.Decimal `json:"stored_lifetime_topup"`
	Discrepancies       Discrepancies   `json:"discrepancies"`
	Epsilon             decimal.Decimal `json:"epsilon"`
}

// Discrepancies flags each balance whose stored copy diverges from replay.
type Discrepancies struct {
	Wallet        bool `json:"wallet"`
	Bonus         bool `json:"bonus"`
	Stars         bool `json:"stars"`
	LifetimeTopup bool `json:"lifetime_topup"`
}

// Any reports whether at least one balance diverged.
func (d Discrepancies) Any() bool {
	return d.Wallet || d.Bonus || d.Stars || d.LifetimeTopup
}

// RecordWalletEventInput captures the immutable data a wallet event requires.
type RecordWalletEventInput struct {
	UserID   uuid.UUID               `json:"user_id"`
	Type     enums.WalletEventType   `json:"type"`
	Status   enums.WalletEventStatus `json:"status"`
	Amount   decimal.Decimal         `json:"amount"`
	Metadata json.RawMessage         `json:"metadata"`
}

// RecordBonusEventInput captures the immutable data a bonus event requires.
type RecordBonusEventInput struct {
	UserID   uuid.UUID            `json:"user_id"`
	Type     enums.BonusEventType `json:"type"`
	Amount   decimal.Decimal      `json:"amount"`
	Metadata json.RawMessage      `json:"metadata"`
}

// RecordStarsEventInput captures the immutable data a stars event requires.
type RecordStarsEventInput struct {
	UserID   uuid.UUID            `json:"user_id"`
	Type     enums.StarsEventType `json:"type"`
	Amount   decimal.Decimal      `json:"amount"`
	Metadata json.RawMessage      `json:"metadata"`
}

type service struct {
	repo    Repository
	epsilon decimal.Decimal
}

// NewService wires a ledger service with the provided repository. epsilon is
// the tolerance used when verifying the lifetime_topup projection.
func NewService(repo Repository, epsilon decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if epsilon.IsNegative() {
		return nil, fmt.Errorf("verify epsilon must not be negative")
	}
	if epsilon.IsZero() {
		epsilon = decimal.RequireFromString("0.01")
	}
	return &service{repo: repo, epsilon: epsilon}, nil
}

func (s *service) RecordWalletEvent(ctx context.Context, input RecordWalletEventInput) (*models.WalletEvent, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wallet event type %q", input.Type))
	}
	status := input.Status
	if status == "" {
		status = enums.WalletEventStatusPending
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wallet event status %q", input.Status))
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	event := &models.WalletEvent{
		ID:       uuid.New(),
		UserID:   input.UserID,
		Type:     input.Type,
		Status:   status,
		Amount:   input.Amount,
		Metadata: input.Metadata,
	}
	if err := s.repo.CreateWalletEvent(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending wallet event")
	}
	return event, nil
}

func (s *service) RecordBonusEvent(ctx context.Context, input RecordBonusEventInput) (*models.BonusEvent, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid bonus event type %q", input.Type))
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	event := &models.BonusEvent{
		ID:       uuid.New(),
		UserID:   input.UserID,
		Type:     input.Type,
		Amount:   input.Amount,
		Metadata: input.Metadata,
	}
	if err := s.repo.CreateBonusEvent(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending bonus event")
	}
	return event, nil
}

func (s *service) RecordStarsEvent(ctx context.Context, input RecordStarsEventInput) (*models.StarsEvent, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid stars event type %q", input.Type))
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	event := &models.StarsEvent{
		ID:       uuid.New(),
		UserID:   input.UserID,
		Type:     input.Type,
		Amount:   input.Amount,
		Metadata: input.Metadata,
	}
	if err := s.repo.CreateStarsEvent(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending stars event")
	}
	return event, nil
}

// CalculateBalances folds the three logs into authoritative balances. A nil
// cutoff replays the complete history (the live-balance path); a cutoff bounds
// the replay for point-in-time reports. The three reads run concurrently;
// either all three succeed or the whole call fails.
func (s *service) CalculateBalances(ctx context.Context, userID uuid.UUID, cutoff *time.Time) (*MasterBalances, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var (
		wallet []models.WalletEvent
		bonus  []models.BonusEvent
		stars  []models.StarsEvent
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		wallet, err = s.repo.ListWalletEvents(groupCtx, userID, cutoff)
		return err
	})
	group.Go(func() error {
		var err error
		bonus, err = s.repo.ListBonusEvents(groupCtx, userID, cutoff)
		return err
	})
	group.Go(func() error {
		var err error
		stars, err = s.repo.ListStarsEvents(groupCtx, userID, cutoff)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading event logs")
	}

	return replayLedgers(userID, wallet, bonus, stars), nil
}

func (s *service) VerifyBalances(ctx context.Context, userID uuid.UUID) (*VerificationReport, error) {
	result, err := s.CalculateBalances(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading user profile")
	}

	stored := decimal.Zero
	if profile != nil {
		stored = profile.LifetimeTopup
	}

	report := &VerificationReport{
		UserID:              userID,
		Calculated:          result.Balances,
		StoredLifetimeTopup: stored,
		Epsilon:             s.epsilon,
	}
	diff := result.Balances.LifetimeTopup.Sub(stored).Abs()
	report.Discrepancies.LifetimeTopup = diff.GreaterThan(s.epsilon)
	return report, nil
}

// SyncBalances overwrites the lifetime_topup projection with the freshly
// replayed value. No other balance is ever persisted.
func (s *service) SyncBalances(ctx context.Context, userID uuid.UUID) error {
	result, err := s.CalculateBalances(ctx, userID, nil)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	profile := &models.UserProfile{
		ID:               userID,
		LifetimeTopup:    result.Balances.LifetimeTopup,
		BalancesSyncedAt: &now,
	}
	if err := s.repo.UpsertLifetimeTopup(ctx, profile); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing lifetime topup projection")
	}
	return nil
}
