package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserProfile holds the single persisted balance projection. LifetimeTopup is
// a throwaway cache of the replayed value; wallet/bonus/stars balances are
// never stored and always re-derived from the event logs.
type UserProfile struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	LifetimeTopup    decimal.Decimal `gorm:"column:lifetime_topup;type:numeric(20,4);not null;default:0"`
	BalancesSyncedAt *time.Time      `gorm:"column:balances_synced_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
