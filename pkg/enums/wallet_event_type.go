package enums

import "fmt"

// WalletEventType maps to the wallet_event_type enum in Postgres.
type WalletEventType string

const (
	WalletEventTypeTopup      WalletEventType = "topup"
	WalletEventTypeSpend      WalletEventType = "spend"
	WalletEventTypeRefund     WalletEventType = "refund"
	WalletEventTypeAdjustment WalletEventType = "adjustment"
)

var validWalletEventTypes = []WalletEventType{
	WalletEventTypeTopup,
	WalletEventTypeSpend,
	WalletEventTypeRefund,
	WalletEventTypeAdjustment,
}

// IsValid reports whether the value matches the canonical wallet event enum.
func (t WalletEventType) IsValid() bool {
	for _, candidate := range validWalletEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletEventType converts raw input into WalletEventType.
func ParseWalletEventType(value string) (WalletEventType, error) {
	for _, candidate := range validWalletEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet event type %q", value)
}
