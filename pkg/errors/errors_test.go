package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeInvalidState, status: http.StatusConflict, publicMsg: "operation not allowed in current state", detailsOK: true},
		{code: CodeInvalidTransition, status: http.StatusConflict, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		assert.Equal(t, tt.status, meta.HTTPStatus, tt.code)
		assert.Equal(t, tt.publicMsg, meta.PublicMessage, tt.code)
		assert.Equal(t, tt.retryable, meta.Retryable, tt.code)
		assert.Equal(t, tt.detailsOK, meta.DetailsAllowed, tt.code)
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	require.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestErrorReasonDefaultsToCode(t *testing.T) {
	err := New(CodeNotFound, "order not found")
	require.Equal(t, Reason(CodeNotFound), err.Reason())
	require.Equal(t, "NOT_FOUND: order not found", err.Error())

	err.WithReason(ReasonAlreadyPaid)
	require.Equal(t, ReasonAlreadyPaid, err.Reason())
	require.Equal(t, "NOT_FOUND(ALREADY_PAID): order not found", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, CodeConflict, wrapped.Code())
}

func TestCodeAndReasonOf(t *testing.T) {
	typed := New(CodeInsufficientStock, "short").WithReason(ReasonOutOfStock)
	require.Equal(t, CodeInsufficientStock, CodeOf(typed))
	require.Equal(t, ReasonOutOfStock, ReasonOf(typed))

	plain := stdErrors.New("driver exploded")
	require.Equal(t, CodeInternal, CodeOf(plain))
	require.Empty(t, ReasonOf(plain))
}

func TestInternalizeKeepsTypedErrors(t *testing.T) {
	typed := New(CodeForbidden, "no entry")
	require.Same(t, typed, Internalize(typed, "ignored"))

	plain := stdErrors.New("connection reset")
	out := Internalize(plain, "create order")
	require.Equal(t, CodeInternal, CodeOf(out))
	require.ErrorIs(t, out, plain)
	require.NoError(t, Internalize(nil, "noop"))
}
