package disputes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

var returnTransitions = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusRequested: {enums.ReturnStatusApproved, enums.ReturnStatusRejected},
	enums.ReturnStatusApproved:  {enums.ReturnStatusCompleted},
	enums.ReturnStatusRejected:  {},
	enums.ReturnStatusCompleted: {},
}

func canMoveReturn(from, to enums.ReturnStatus) bool {
	for _, next := range returnTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequestReturn records the buyer's return request for a delivered order
// whose return window is still open.
func (s *service) RequestReturn(ctx context.Context, input RequestReturnInput) (*models.OrderReturn, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	order, actor, err := s.loadOrder(ctx, input.ActorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can request a return")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "only delivered orders can be returned").
			WithReason(pkgerrors.ReasonInvalidOrderState).
			WithDetails(map[string]any{"status": order.Status})
	}
	now := s.now()
	if !order.CanReturn || order.ReturnDeadline == nil || now.After(*order.ReturnDeadline) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "the return window for this order is closed").
			WithReason(pkgerrors.ReasonReturnWindowClosed).
			WithDetails(map[string]any{"return_deadline": order.ReturnDeadline})
	}

	ret := &models.OrderReturn{
		OrderID:     order.ID,
		RequesterID: *actor.ID,
		Reason:      input.Reason,
		Details:     input.Details,
		Status:      enums.ReturnStatusRequested,
	}
	if err := s.repo.CreateReturn(ctx, ret); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":  order.ID.String(),
		"return_id": ret.ID.String(),
		"reason":    ret.Reason,
	}), "return requested")
	s.emit(ctx, enums.NotificationEventReturnRequested, kindReturn, ret.ID, order, ret.Status.String(), "", actor)
	return ret, nil
}

// UpdateReturn approves, rejects or completes a return. Sellers of the order
// and admins may review; only admins set the refund amount.
func (s *service) UpdateReturn(ctx context.Context, input UpdateReturnInput) (*models.OrderReturn, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	ret, err := s.repo.FindReturn(ctx, input.ReturnID)
	if err != nil {
		return nil, err
	}
	order, actor, err := s.loadOrder(ctx, input.ActorID, ret.OrderID)
	if err != nil {
		return nil, err
	}
	if actor.Role == enums.UserRoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyers cannot review their own return")
	}
	if input.RefundAmountCents != nil && actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can set a refund amount")
	}
	if err := checkRefundAmount(input.RefundAmountCents, order); err != nil {
		return nil, err
	}

	from, to := ret.Status, input.Status
	if !canMoveReturn(from, to) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move return from %s to %s", from, to)).
			WithReason(pkgerrors.ReasonInvalidStatusTransition).
			WithDetails(map[string]any{"from": from, "to": to, "allowed": returnTransitions[from]})
	}

	now := s.now()
	updates := map[string]any{"status": to, "updated_at": now}
	switch to {
	case enums.ReturnStatusApproved, enums.ReturnStatusRejected:
		updates["reviewed_by"] = *actor.ID
		updates["reviewed_at"] = now
		if input.Note != nil {
			updates["review_note"] = *input.Note
		}
	case enums.ReturnStatusCompleted:
		updates["completed_at"] = now
	}
	if input.RefundAmountCents != nil {
		updates["refund_amount_cents"] = *input.RefundAmountCents
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).UpdateReturn(ctx, ret.ID, from, updates)
	})
	if err != nil {
		return nil, pkgerrors.Internalize(err, "update return")
	}

	updated, err := s.repo.FindReturn(ctx, ret.ID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"return_id": ret.ID.String(),
		"from":      from,
		"to":        to,
		"role":      actor.Role,
	}), "return updated")
	s.emit(ctx, enums.NotificationEventReturnUpdated, kindReturn, ret.ID, order, to.String(), from.String(), actor)
	return updated, nil
}

func (s *service) GetReturn(ctx context.Context, actorID, returnID uuid.UUID) (*models.OrderReturn, error) {
	ret, err := s.repo.FindReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.loadOrder(ctx, actorID, ret.OrderID); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *service) ListReturns(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderReturn, error) {
	if _, _, err := s.loadOrder(ctx, actorID, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListReturns(ctx, orderID)
}
