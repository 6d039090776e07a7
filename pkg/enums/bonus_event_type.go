package enums

import "fmt"

// BonusEventType maps to the bonus_event_type enum in Postgres.
// spend and revoke reduce the bonus balance; everything else adds to it.
type BonusEventType string

const (
	BonusEventTypeTopupBonus BonusEventType = "topup_bonus"
	BonusEventTypeReward     BonusEventType = "reward"
	BonusEventTypeSpend      BonusEventType = "spend"
	BonusEventTypeRevoke     BonusEventType = "revoke"
)

var validBonusEventTypes = []BonusEventType{
	BonusEventTypeTopupBonus,
	BonusEventTypeReward,
	BonusEventTypeSpend,
	BonusEventTypeRevoke,
}

// IsValid reports whether the value matches the canonical bonus event enum.
func (t BonusEventType) IsValid() bool {
	for _, candidate := range validBonusEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsDebit reports whether the type reduces the bonus balance.
func (t BonusEventType) IsDebit() bool {
	return t == BonusEventTypeSpend || t == BonusEventTypeRevoke
}

// ParseBonusEventType converts raw input into BonusEventType.
func ParseBonusEventType(value string) (BonusEventType, error) {
	for _, candidate := range validBonusEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bonus event type %q", value)
}
