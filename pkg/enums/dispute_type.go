package enums

import "fmt"

type DisputeType string

const (
	DisputeTypeItemNotReceived DisputeType = "ITEM_NOT_RECEIVED"
	DisputeTypeNotAsDescribed  DisputeType = "NOT_AS_DESCRIBED"
	DisputeTypeDamaged         DisputeType = "DAMAGED"
	DisputeTypeWrongItem       DisputeType = "WRONG_ITEM"
	DisputeTypeOther           DisputeType = "OTHER"
)

var validDisputeTypes = []DisputeType{
	DisputeTypeItemNotReceived,
	DisputeTypeNotAsDescribed,
	DisputeTypeDamaged,
	DisputeTypeWrongItem,
	DisputeTypeOther,
}

// String implements fmt.Stringer.
func (d DisputeType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeType.
func (d DisputeType) IsValid() bool {
	for _, candidate := range validDisputeTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeType converts raw input into a DisputeType.
func ParseDisputeType(value string) (DisputeType, error) {
	for _, candidate := range validDisputeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute type %q", value)
}
