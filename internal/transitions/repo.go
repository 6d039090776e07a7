package transitions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkspoint/perkspoint-backend/pkg/db/models"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
)

// Repository owns the wallet event status column and the audit log. The
// conditional update is the only mutation path for status; nothing else in the
// codebase may write it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetWalletEvent(ctx context.Context, eventID uuid.UUID) (*models.WalletEvent, error)
	// CompareAndSwapStatus atomically moves the event from `from` to `to`.
	// It reports false when another writer changed the status first.
	CompareAndSwapStatus(ctx context.Context, eventID uuid.UUID, from, to enums.WalletEventStatus, at time.Time) (bool, error)
	AppendAudit(ctx context.Context, entry *models.StatusAuditEntry) error
	ListAuditEntries(ctx context.Context, eventID uuid.UUID) ([]models.StatusAuditEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transitions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetWalletEvent(ctx context.Context, eventID uuid.UUID) (*models.WalletEvent, error) {
	var event models.WalletEvent
	err := r.db.WithContext(ctx).First(&event, "id = ?", eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) CompareAndSwapStatus(ctx context.Context, eventID uuid.UUID, from, to enums.WalletEventStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.WalletEvent{}).
		Where("id = ? AND status = ?", eventID, from).
		Updates(map[string]any{
			"status":            to,
			"status_updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) AppendAudit(ctx context.Context, entry *models.StatusAuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListAuditEntries(ctx context.Context, eventID uuid.UUID) ([]models.StatusAuditEntry, error) {
	var entries []models.StatusAuditEntry
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("attempted_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
