package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkspoint/perkspoint-backend/pkg/db/models"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
)

// Repository reads stuck wallet events and their payment confirmations. The
// reconciler never writes directly; all mutation goes through the transition
// service.
type Repository interface {
	ListStuckWalletEvents(ctx context.Context, olderThan time.Time, limit int) ([]models.WalletEvent, error)
	GetConfirmations(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]models.PaymentConfirmation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reconciler repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListStuckWalletEvents(ctx context.Context, olderThan time.Time, limit int) ([]models.WalletEvent, error) {
	var events []models.WalletEvent
	q := r.db.WithContext(ctx).
		Where("status IN ?", []enums.WalletEventStatus{
			enums.WalletEventStatusPending,
			enums.WalletEventStatusProcessing,
		}).
		Where("created_at < ?", olderThan).
		Order("created_at ASC").Order("seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) GetConfirmations(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]models.PaymentConfirmation, error) {
	confirmations := make(map[uuid.UUID]models.PaymentConfirmation, len(eventIDs))
	if len(eventIDs) == 0 {
		return confirmations, nil
	}
	var rows []models.PaymentConfirmation
	if err := r.db.WithContext(ctx).
		Where("event_id IN ?", eventIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		confirmations[row.EventID] = row
	}
	return confirmations, nil
}
