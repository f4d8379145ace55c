package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// Actor is a caller whose role has been resolved against one order. A nil
// ID is the system (cron jobs).
type Actor struct {
	ID   *uuid.UUID
	Role enums.UserRole
}

var systemActor = Actor{Role: enums.UserRoleAdmin}

// EffectiveRole resolves the role user plays on order: admins are admins,
// sellers with an item in the order act as seller, the purchaser acts as
// buyer. Anyone else has no business with the order.
func EffectiveRole(order *models.Order, user *models.User) (enums.UserRole, error) {
	switch {
	case user.Role == enums.UserRoleAdmin:
		return enums.UserRoleAdmin, nil
	case user.Role == enums.UserRoleSeller && HasSeller(order, user.ID):
		return enums.UserRoleSeller, nil
	case order.UserID == user.ID:
		return enums.UserRoleBuyer, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this order")
}

// ResolveActor is EffectiveRole packaged as an Actor.
func ResolveActor(order *models.Order, user *models.User) (Actor, error) {
	role, err := EffectiveRole(order, user)
	if err != nil {
		return Actor{}, err
	}
	id := user.ID
	return Actor{ID: &id, Role: role}, nil
}

// HasSeller reports whether any item of order is sold by sellerID.
func HasSeller(order *models.Order, sellerID uuid.UUID) bool {
	for _, item := range order.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// SellerIDs lists the distinct sellers of an order.
func SellerIDs(order *models.Order) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, item := range order.Items {
		if !seen[item.SellerID] {
			seen[item.SellerID] = true
			ids = append(ids, item.SellerID)
		}
	}
	return ids
}
