package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/perkspoint/perkspoint-backend/pkg/enums"
)

// PaymentConfirmation mirrors the payment provider's verdict for a wallet
// event. Written by the payment-callback collaborator; the reconciler reads it
// to decide whether a stuck event can be auto-corrected.
type PaymentConfirmation struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventID     uuid.UUID                 `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	Outcome     enums.ConfirmationOutcome `gorm:"column:outcome;type:confirmation_outcome;not null"`
	ProviderRef string                    `gorm:"column:provider_ref"`
	RawPayload  json.RawMessage           `gorm:"column:raw_payload;type:jsonb"`
	ConfirmedAt *time.Time                `gorm:"column:confirmed_at"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
