package enums

import "fmt"

// StarsEventType maps to the stars_event_type enum in Postgres.
type StarsEventType string

const (
	StarsEventTypeEarn   StarsEventType = "earn"
	StarsEventTypeSpend  StarsEventType = "spend"
	StarsEventTypeBonus  StarsEventType = "bonus"
	StarsEventTypeAdjust StarsEventType = "adjustment"
)

var validStarsEventTypes = []StarsEventType{
	StarsEventTypeEarn,
	StarsEventTypeSpend,
	StarsEventTypeBonus,
	StarsEventTypeAdjust,
}

// IsValid reports whether the value matches the canonical stars event enum.
func (t StarsEventType) IsValid() bool {
	for _, candidate := range validStarsEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsDebit reports whether the type reduces the stars balance.
func (t StarsEventType) IsDebit() bool {
	return t == StarsEventTypeSpend
}

// ParseStarsEventType converts raw input into StarsEventType.
func ParseStarsEventType(value string) (StarsEventType, error) {
	for _, candidate := range validStarsEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stars event type %q", value)
}
