package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the error kind. Every rejected operation maps to exactly one.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
)

// Reason is the stable business code surfaced next to the kind.
type Reason string

const (
	ReasonProductUnavailable        Reason = "PRODUCT_UNAVAILABLE"
	ReasonSelfPurchase              Reason = "SELF_PURCHASE"
	ReasonInvalidQuantity           Reason = "INVALID_QUANTITY"
	ReasonInsufficientStock         Reason = "INSUFFICIENT_STOCK"
	ReasonOutOfStock                Reason = "OUT_OF_STOCK"
	ReasonNegotiationInvalid        Reason = "NEGOTIATION_INVALID"
	ReasonExceedsNegotiatedQuantity Reason = "EXCEEDS_NEGOTIATED_QUANTITY"
	ReasonMinimumOrderNotMet        Reason = "MINIMUM_ORDER_NOT_MET"
	ReasonEmptyCart                 Reason = "EMPTY_CART"
	ReasonInvalidStatusTransition   Reason = "INVALID_STATUS_TRANSITION"
	ReasonInvalidOrderState         Reason = "INVALID_ORDER_STATE"
	ReasonAlreadyPaid               Reason = "ALREADY_PAID"
	ReasonPaymentNotCompleted       Reason = "PAYMENT_NOT_COMPLETED"
	ReasonDisputeAlreadyOpen        Reason = "DISPUTE_ALREADY_OPEN"
	ReasonReturnWindowClosed        Reason = "RETURN_WINDOW_CLOSED"
	ReasonReturnAlreadyExists       Reason = "RETURN_ALREADY_EXISTS"
	ReasonConcurrentUpdate          Reason = "CONCURRENT_UPDATE"
	ReasonOrderNumberExhausted      Reason = "ORDER_NUMBER_EXHAUSTED"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "conflict detected",
		DetailsAllowed: true,
	},
	CodeInvalidState: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "operation not allowed in current state",
		DetailsAllowed: true,
	},
	CodeInvalidTransition: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
	},
	CodeInsufficientStock: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "insufficient stock",
		DetailsAllowed: true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	reason  Reason
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

// Reason falls back to the kind when no business reason was attached.
func (e *Error) Reason() Reason {
	if e == nil {
		return Reason(CodeInternal)
	}
	if e.reason == "" {
		return Reason(e.code)
	}
	return e.reason
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithReason(reason Reason) *Error {
	if e == nil {
		return nil
	}
	e.reason = reason
	return e
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.reason != "" {
		return fmt.Sprintf("%s(%s): %s", e.code, e.reason, e.message)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the kind of err, CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// ReasonOf returns the business reason of err, empty for untyped errors.
func ReasonOf(err error) Reason {
	if typed := As(err); typed != nil {
		return typed.Reason()
	}
	return ""
}

// Internalize re-raises untyped infrastructure failures as CodeInternal so
// callers only ever see taxonomy errors.
func Internalize(err error, message string) error {
	if err == nil {
		return nil
	}
	if As(err) != nil {
		return err
	}
	return Wrap(CodeInternal, err, message)
}
