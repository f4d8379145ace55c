package enums

import "fmt"

// CartIssueType enumerates findings produced by cart validation.
type CartIssueType string

const (
	CartIssueTypeOutOfStock         CartIssueType = "OUT_OF_STOCK"
	CartIssueTypeProductUnavailable CartIssueType = "PRODUCT_UNAVAILABLE"
	CartIssueTypeLowStock           CartIssueType = "LOW_STOCK"
	CartIssueTypePriceChanged       CartIssueType = "PRICE_CHANGED"
	CartIssueTypeNegotiationInvalid CartIssueType = "NEGOTIATION_INVALID"
)

var validCartIssueTypes = []CartIssueType{
	CartIssueTypeOutOfStock,
	CartIssueTypeProductUnavailable,
	CartIssueTypeLowStock,
	CartIssueTypePriceChanged,
	CartIssueTypeNegotiationInvalid,
}

// String implements fmt.Stringer.
func (c CartIssueType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartIssueType.
func (c CartIssueType) IsValid() bool {
	for _, candidate := range validCartIssueTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// Blocking reports whether the issue prevents checkout.
func (c CartIssueType) Blocking() bool {
	switch c {
	case CartIssueTypeLowStock, CartIssueTypePriceChanged:
		return false
	default:
		return true
	}
}

// ParseCartIssueType converts raw input into a CartIssueType.
func ParseCartIssueType(value string) (CartIssueType, error) {
	for _, candidate := range validCartIssueTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart issue type %q", value)
}
