package enums

import "fmt"

type ReturnReason string

const (
	ReturnReasonDefective      ReturnReason = "DEFECTIVE"
	ReturnReasonNotAsDescribed ReturnReason = "NOT_AS_DESCRIBED"
	ReturnReasonWrongItem      ReturnReason = "WRONG_ITEM"
	ReturnReasonChangedMind    ReturnReason = "CHANGED_MIND"
	ReturnReasonOther          ReturnReason = "OTHER"
)

var validReturnReasons = []ReturnReason{
	ReturnReasonDefective,
	ReturnReasonNotAsDescribed,
	ReturnReasonWrongItem,
	ReturnReasonChangedMind,
	ReturnReasonOther,
}

// String implements fmt.Stringer.
func (r ReturnReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnReason.
func (r ReturnReason) IsValid() bool {
	for _, candidate := range validReturnReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnReason converts raw input into a ReturnReason.
func ParseReturnReason(value string) (ReturnReason, error) {
	for _, candidate := range validReturnReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return reason %q", value)
}
