package orders

import (
	"fmt"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type verdict int

const (
	// verdictRoleDenied: the role may never drive the order to this status.
	verdictRoleDenied verdict = iota
	// verdictStateDenied: the role may reach this status, but not from here.
	verdictStateDenied
	verdictAllowed
)

type permissionKey struct {
	role enums.UserRole
	from enums.OrderStatus
	to   enums.OrderStatus
}

var buyerCancellableFrom = map[enums.OrderStatus]bool{
	enums.OrderStatusPending:   true,
	enums.OrderStatusConfirmed: true,
	enums.OrderStatusPaid:      true,
}

var sellerTargets = map[enums.OrderStatus]bool{
	enums.OrderStatusConfirmed:  true,
	enums.OrderStatusProcessing: true,
	enums.OrderStatusShipped:    true,
	enums.OrderStatusDelivered:  true,
	enums.OrderStatusCancelled:  true,
}

// permissionMatrix holds one verdict for every (role, edge) pair of the
// status graph.
var permissionMatrix = buildPermissionMatrix()

func buildPermissionMatrix() map[permissionKey]verdict {
	matrix := make(map[permissionKey]verdict)
	for _, role := range enums.UserRoles() {
		for from, targets := range transitions {
			for _, to := range targets {
				matrix[permissionKey{role: role, from: from, to: to}] = decide(role, from, to)
			}
		}
	}
	return matrix
}

func decide(role enums.UserRole, from, to enums.OrderStatus) verdict {
	switch role {
	case enums.UserRoleAdmin:
		return verdictAllowed
	case enums.UserRoleSeller:
		if sellerTargets[to] {
			return verdictAllowed
		}
		return verdictRoleDenied
	case enums.UserRoleBuyer:
		if to != enums.OrderStatusCancelled {
			return verdictRoleDenied
		}
		if buyerCancellableFrom[from] {
			return verdictAllowed
		}
		return verdictStateDenied
	default:
		return verdictRoleDenied
	}
}

// Authorize checks a requested status change for an actor whose role has
// already been resolved against the order. The status graph is consulted
// first, then the role matrix. from == to is never passed here.
func Authorize(role enums.UserRole, from, to enums.OrderStatus) error {
	if !CanTransition(from, to) {
		return transitionError(from, to)
	}
	switch permissionMatrix[permissionKey{role: role, from: from, to: to}] {
	case verdictAllowed:
		return nil
	case verdictStateDenied:
		return pkgerrors.New(pkgerrors.CodeInvalidState,
			fmt.Sprintf("%s cannot move an order to %s once it is %s", role, to, from)).
			WithReason(pkgerrors.ReasonInvalidOrderState).
			WithDetails(map[string]any{"from": from, "to": to, "role": role})
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden,
			fmt.Sprintf("%s may not move orders to %s", role, to))
	}
}
