package enums

import "fmt"

// WalletEventStatus maps to the wallet_event_status enum in Postgres.
// pending and processing are initial states; success, failed and cancelled are
// terminal and absorbing.
type WalletEventStatus string

const (
	WalletEventStatusPending    WalletEventStatus = "pending"
	WalletEventStatusProcessing WalletEventStatus = "processing"
	WalletEventStatusSuccess    WalletEventStatus = "success"
	WalletEventStatusFailed     WalletEventStatus = "failed"
	WalletEventStatusCancelled  WalletEventStatus = "cancelled"
)

var validWalletEventStatuses = []WalletEventStatus{
	WalletEventStatusPending,
	WalletEventStatusProcessing,
	WalletEventStatusSuccess,
	WalletEventStatusFailed,
	WalletEventStatusCancelled,
}

// String implements fmt.Stringer.
func (s WalletEventStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s WalletEventStatus) IsValid() bool {
	for _, candidate := range validWalletEventStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s WalletEventStatus) IsTerminal() bool {
	switch s {
	case WalletEventStatusSuccess, WalletEventStatusFailed, WalletEventStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseWalletEventStatus converts raw input into a WalletEventStatus.
func ParseWalletEventStatus(value string) (WalletEventStatus, error) {
	for _, candidate := range validWalletEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet event status %q", value)
}
