package enums

import "fmt"

// NegotiationStatus tracks a price negotiation between buyer and seller.
type NegotiationStatus string

const (
	NegotiationStatusPending   NegotiationStatus = "PENDING"
	NegotiationStatusCountered NegotiationStatus = "COUNTERED"
	NegotiationStatusAccepted  NegotiationStatus = "ACCEPTED"
	NegotiationStatusRejected  NegotiationStatus = "REJECTED"
	NegotiationStatusExpired   NegotiationStatus = "EXPIRED"
	NegotiationStatusCompleted NegotiationStatus = "COMPLETED"
)

var validNegotiationStatuses = []NegotiationStatus{
	NegotiationStatusPending,
	NegotiationStatusCountered,
	NegotiationStatusAccepted,
	NegotiationStatusRejected,
	NegotiationStatusExpired,
	NegotiationStatusCompleted,
}

// String implements fmt.Stringer.
func (n NegotiationStatus) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NegotiationStatus.
func (n NegotiationStatus) IsValid() bool {
	for _, candidate := range validNegotiationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNegotiationStatus converts raw input into a NegotiationStatus.
func ParseNegotiationStatus(value string) (NegotiationStatus, error) {
	for _, candidate := range validNegotiationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid negotiation status %q", value)
}
