package orders

import (
	"fmt"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// transitions is the complete order status graph. Statuses missing from the
// map, or mapped to nothing, are terminal.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusPaid, enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:       {enums.OrderStatusProcessing, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusDelivered:  {enums.OrderStatusRefunded},
	enums.OrderStatusCancelled:  {},
	enums.OrderStatusRefunded:   {},
}

// CanTransition reports whether from -> to is an edge of the status graph.
// A self-transition is not an edge.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from the given one.
func NextStatuses(from enums.OrderStatus) []enums.OrderStatus {
	next := transitions[from]
	out := make([]enums.OrderStatus, len(next))
	copy(out, next)
	return out
}

func transitionError(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithReason(pkgerrors.ReasonInvalidStatusTransition).
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": NextStatuses(from),
		})
}
