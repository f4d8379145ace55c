package enums

import "fmt"

// PaymentTransactionType distinguishes charges from refunds in the payment ledger.
type PaymentTransactionType string

const (
	PaymentTransactionTypeCharge PaymentTransactionType = "CHARGE"
	PaymentTransactionTypeRefund PaymentTransactionType = "REFUND"
)

var validPaymentTransactionTypes = []PaymentTransactionType{
	PaymentTransactionTypeCharge,
	PaymentTransactionTypeRefund,
}

// String implements fmt.Stringer.
func (p PaymentTransactionType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentTransactionType.
func (p PaymentTransactionType) IsValid() bool {
	for _, candidate := range validPaymentTransactionTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentTransactionType converts raw input into a PaymentTransactionType.
func ParsePaymentTransactionType(value string) (PaymentTransactionType, error) {
	for _, candidate := range validPaymentTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment transaction type %q", value)
}
