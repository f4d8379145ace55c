package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

func TestTransitionTableIsTotal(t *testing.T) {
	for _, status := range enums.OrderStatuses() {
		_, ok := transitions[status]
		assert.True(t, ok, "missing row for %s", status)
	}
	assert.Empty(t, NextStatuses(enums.OrderStatusCancelled))
	assert.Empty(t, NextStatuses(enums.OrderStatusRefunded))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		want     bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusPending, enums.OrderStatusPaid, true},
		{enums.OrderStatusPending, enums.OrderStatusShipped, false},
		{enums.OrderStatusConfirmed, enums.OrderStatusProcessing, true},
		{enums.OrderStatusPaid, enums.OrderStatusRefunded, true},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered, true},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{enums.OrderStatusDelivered, enums.OrderStatusRefunded, true},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
		{enums.OrderStatusPending, enums.OrderStatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	next := NextStatuses(enums.OrderStatusPending)
	next[0] = enums.OrderStatusRefunded
	assert.Equal(t, enums.OrderStatusConfirmed, NextStatuses(enums.OrderStatusPending)[0])
}

func TestPermissionMatrixCoversEveryEdge(t *testing.T) {
	for _, role := range enums.UserRoles() {
		for from, targets := range transitions {
			for _, to := range targets {
				_, ok := permissionMatrix[permissionKey{role: role, from: from, to: to}]
				assert.True(t, ok, "%s %s -> %s", role, from, to)
			}
		}
	}
}

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name     string
		role     enums.UserRole
		from, to enums.OrderStatus
		code     pkgerrors.Code
		reason   pkgerrors.Reason
	}{
		{"admin anything on the graph", enums.UserRoleAdmin, enums.OrderStatusDelivered, enums.OrderStatusRefunded, "", ""},
		{"admin still bound by the graph", enums.UserRoleAdmin, enums.OrderStatusPending, enums.OrderStatusDelivered, pkgerrors.CodeInvalidTransition, pkgerrors.ReasonInvalidStatusTransition},
		{"seller ships", enums.UserRoleSeller, enums.OrderStatusProcessing, enums.OrderStatusShipped, "", ""},
		{"seller cancels", enums.UserRoleSeller, enums.OrderStatusShipped, enums.OrderStatusCancelled, "", ""},
		{"seller cannot mark paid", enums.UserRoleSeller, enums.OrderStatusConfirmed, enums.OrderStatusPaid, pkgerrors.CodeForbidden, ""},
		{"seller cannot refund", enums.UserRoleSeller, enums.OrderStatusDelivered, enums.OrderStatusRefunded, pkgerrors.CodeForbidden, ""},
		{"buyer cancels pending", enums.UserRoleBuyer, enums.OrderStatusPending, enums.OrderStatusCancelled, "", ""},
		{"buyer cancels paid", enums.UserRoleBuyer, enums.OrderStatusPaid, enums.OrderStatusCancelled, "", ""},
		{"buyer too late to cancel", enums.UserRoleBuyer, enums.OrderStatusProcessing, enums.OrderStatusCancelled, pkgerrors.CodeInvalidState, pkgerrors.ReasonInvalidOrderState},
		{"buyer cannot confirm", enums.UserRoleBuyer, enums.OrderStatusPending, enums.OrderStatusConfirmed, pkgerrors.CodeForbidden, ""},
		{"edge checked before role", enums.UserRoleBuyer, enums.OrderStatusRefunded, enums.OrderStatusCancelled, pkgerrors.CodeInvalidTransition, pkgerrors.ReasonInvalidStatusTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.role, tc.from, tc.to)
			if tc.code == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
			if tc.reason != "" {
				assert.Equal(t, tc.reason, pkgerrors.ReasonOf(err))
			}
		})
	}
}

func TestTransitionErrorListsAllowed(t *testing.T) {
	err := Authorize(enums.UserRoleAdmin, enums.OrderStatusPending, enums.OrderStatusShipped)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusPending, details["from"])
	assert.Equal(t, NextStatuses(enums.OrderStatusPending), details["allowed"])
}
