package enums

import "fmt"

// DisputeStatus tracks an order dispute.
type DisputeStatus string

const (
	DisputeStatusOpen            DisputeStatus = "OPEN"
	DisputeStatusSellerResponded DisputeStatus = "SELLER_RESPONDED"
	DisputeStatusUnderReview     DisputeStatus = "UNDER_REVIEW"
	DisputeStatusResolved        DisputeStatus = "RESOLVED"
	DisputeStatusClosed          DisputeStatus = "CLOSED"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusSellerResponded,
	DisputeStatusUnderReview,
	DisputeStatusResolved,
	DisputeStatusClosed,
}

// String implements fmt.Stringer.
func (d DisputeStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeStatus.
func (d DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}
