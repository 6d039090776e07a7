package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/perkspoint/perkspoint-backend/pkg/enums"
)

// BonusEvent records an immutable bonus-credit movement. Bonus events carry no
// status: every appended row is effective immediately.
type BonusEvent struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Seq       int64                `gorm:"column:seq;->"`
	UserID    uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.BonusEventType `gorm:"column:type;type:bonus_event_type;not null"`
	Amount    decimal.Decimal      `gorm:"column:amount;type:numeric(20,4);not null"`
	Metadata  json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}
