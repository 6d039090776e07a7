package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/perkspoint/perkspoint-backend/pkg/enums"
)

// WalletEvent records an immutable money movement on a user's wallet ledger.
// Only the status column is ever mutated after append, and exclusively by the
// transition service. The seq column is assigned by the database at append
// time and provides a deterministic secondary sort key during replay.
type WalletEvent struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Seq             int64                   `gorm:"column:seq;->"`
	UserID          uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Type            enums.WalletEventType   `gorm:"column:type;type:wallet_event_type;not null"`
	Status          enums.WalletEventStatus `gorm:"column:status;type:wallet_event_status;not null;default:'pending'"`
	Amount          decimal.Decimal         `gorm:"column:amount;type:numeric(20,4);not null"`
	Metadata        json.RawMessage         `gorm:"column:metadata;type:jsonb"`
	StatusUpdatedAt *time.Time              `gorm:"column:status_updated_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}
