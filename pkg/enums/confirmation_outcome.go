package enums

import "fmt"

// ConfirmationOutcome is the provider-side verdict recorded on a payment
// confirmation. The reconciler maps completed/failed/cancelled onto wallet
// event statuses; unknown outcomes are never auto-corrected.
type ConfirmationOutcome string

const (
	ConfirmationOutcomeCompleted ConfirmationOutcome = "completed"
	ConfirmationOutcomeFailed    ConfirmationOutcome = "failed"
	ConfirmationOutcomeCancelled ConfirmationOutcome = "cancelled"
	ConfirmationOutcomeUnknown   ConfirmationOutcome = "unknown"
)

var validConfirmationOutcomes = []ConfirmationOutcome{
	ConfirmationOutcomeCompleted,
	ConfirmationOutcomeFailed,
	ConfirmationOutcomeCancelled,
	ConfirmationOutcomeUnknown,
}

// IsValid reports whether the value is known.
func (o ConfirmationOutcome) IsValid() bool {
	for _, candidate := range validConfirmationOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseConfirmationOutcome converts raw input into a ConfirmationOutcome.
func ParseConfirmationOutcome(value string) (ConfirmationOutcome, error) {
	for _, candidate := range validConfirmationOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid confirmation outcome %q", value)
}
