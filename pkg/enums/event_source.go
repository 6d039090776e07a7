package enums

import "fmt"

// EventSource identifies which ledger an event belongs to.
type EventSource string

const (
	EventSourceWallet EventSource = "wallet"
	EventSourceBonus  EventSource = "bonus"
	EventSourceStars  EventSource = "stars"
)

var validEventSources = []EventSource{
	EventSourceWallet,
	EventSourceBonus,
	EventSourceStars,
}

// String implements fmt.Stringer.
func (s EventSource) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s EventSource) IsValid() bool {
	for _, candidate := range validEventSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// Rank returns the stable cross-ledger ordering used when both timestamp and
// sequence collide during replay. Lower ranks sort first.
func (s EventSource) Rank() int {
	switch s {
	case EventSourceWallet:
		return 0
	case EventSourceBonus:
		return 1
	case EventSourceStars:
		return 2
	default:
		return 3
	}
}

// ParseEventSource converts raw input into an EventSource.
func ParseEventSource(value string) (EventSource, error) {
	for _, candidate := range validEventSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event source %q", value)
}
