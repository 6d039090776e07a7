package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/perkspoint/perkspoint-backend/pkg/db/models"
)

// Repository manages persistence for the three per-user event logs and the
// lifetime_topup projection. All event writes are append-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateWalletEvent(ctx context.Context, event *models.WalletEvent) error
	CreateBonusEvent(ctx context.Context, event *models.BonusEvent) error
	CreateStarsEvent(ctx context.Context, event *models.StarsEvent) error
	ListWalletEvents(ctx context.Context, userID uuid.UUID, cutoff *time.Time) ([]models.WalletEvent, error)
	ListBonusEvents(ctx context.Context, userID uuid.UUID, cutoff *time.Time) ([]models.BonusEvent, error)
	ListStarsEvents(ctx context.Context, userID uuid.UUID, cutoff *time.Time) ([]models.StarsEvent, error)
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	UpsertLifetimeTopup(ctx context.Context, profile *models.UserProfile) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateWalletEvent(ctx context.Context, event *models.WalletEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) CreateBonusEvent(ctx context.Context, event *models.BonusEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) CreateStarsEvent(ctx context.Context, event *models.StarsEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListWalletEvents(ctx context.Context, userID uuid.UUID, cutoff *time.Time) ([]models.WalletEvent, error) {
	var events []models.WalletEvent
	if err := r.scopedQuery(ctx, userID, cutoff).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListBonusEvents(ctx context.Context, userID uuid.UUID, cutoff *time.Time) ([]models.BonusEvent, error) {
	var events []models.BonusEvent
	if err := r.scopedQuery(ctx, userID, cutoff).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListStarsEvents(ctx context.Context, userID uuid.UUID, cutoff *time.Time) ([]models.StarsEvent, error) {
	var events []models.StarsEvent
	if err := r.scopedQuery(ctx, userID, cutoff).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) scopedQuery(ctx context.Context, userID uuid.UUID, cutoff *time.Time) *gorm.DB {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cutoff != nil {
		q = q.Where("created_at <= ?", *cutoff)
	}
	return q.Order("created_at ASC").Order("seq ASC")
}

func (r *repository) GetUserProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *repository) UpsertLifetimeTopup(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lifetime_topup", "balances_synced_at", "updated_at"}),
		}).
		Create(profile).Error
}
