package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkspoint/perkspoint-backend/pkg/enums"
)

// StatusAuditEntry is an append-only record of one transition attempt on a
// wallet event. One entry is written per attempt, whether it applied, was an
// idempotent no-op, lost a race, or failed outright.
type StatusAuditEntry struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	EventID      uuid.UUID                `gorm:"column:event_id;type:uuid;not null;index"`
	OldStatus    enums.WalletEventStatus  `gorm:"column:old_status;type:wallet_event_status;not null"`
	NewStatus    enums.WalletEventStatus  `gorm:"column:new_status;type:wallet_event_status;not null"`
	TriggeredBy  string                   `gorm:"column:triggered_by;not null"`
	Success      bool                     `gorm:"column:success;not null"`
	Idempotent   bool                     `gorm:"column:idempotent;not null;default:false"`
	RaceDetected bool                     `gorm:"column:race_detected;not null;default:false"`
	ErrorCode    *string                  `gorm:"column:error_code"`
	ErrorMessage *string                  `gorm:"column:error_message"`
	AttemptedAt  time.Time                `gorm:"column:attempted_at;autoCreateTime"`
}
