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

var disputableOrderStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusPaid:       true,
	enums.OrderStatusProcessing: true,
	enums.OrderStatusShipped:    true,
	enums.OrderStatusDelivered:  true,
}

var disputeTransitions = map[enums.DisputeStatus][]enums.DisputeStatus{
	enums.DisputeStatusOpen: {
		enums.DisputeStatusSellerResponded, enums.DisputeStatusUnderReview,
		enums.DisputeStatusResolved, enums.DisputeStatusClosed,
	},
	enums.DisputeStatusSellerResponded: {
		enums.DisputeStatusUnderReview, enums.DisputeStatusResolved, enums.DisputeStatusClosed,
	},
	enums.DisputeStatusUnderReview: {
		enums.DisputeStatusSellerResponded, enums.DisputeStatusResolved, enums.DisputeStatusClosed,
	},
	enums.DisputeStatusResolved: {},
	enums.DisputeStatusClosed:   {},
}

func canMoveDispute(from, to enums.DisputeStatus) bool {
	for _, next := range disputeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func disputeFinal(status enums.DisputeStatus) bool {
	return status == enums.DisputeStatusResolved || status == enums.DisputeStatusClosed
}

// OpenDispute lets the buyer raise a dispute on a paid order. The order's
// has_dispute flag is claimed in the same transaction, so only one dispute
// can be open at a time.
func (s *service) OpenDispute(ctx context.Context, input OpenDisputeInput) (*models.OrderDispute, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	order, actor, err := s.loadOrder(ctx, input.ActorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can open a dispute")
	}
	if !disputableOrderStatuses[order.Status] {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState,
			fmt.Sprintf("orders in status %s cannot be disputed", order.Status)).
			WithReason(pkgerrors.ReasonInvalidOrderState).
			WithDetails(map[string]any{"status": order.Status})
	}
	if order.HasDispute {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has an open dispute").
			WithReason(pkgerrors.ReasonDisputeAlreadyOpen)
	}

	dispute := &models.OrderDispute{
		OrderID:     order.ID,
		InitiatorID: *actor.ID,
		Type:        input.Type,
		Status:      enums.DisputeStatusOpen,
		Description: input.Description,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).SetDisputeFlag(ctx, order.ID, true); err != nil {
			return err
		}
		return s.repo.WithTx(tx).CreateDispute(ctx, dispute)
	})
	if err != nil {
		return nil, pkgerrors.Internalize(err, "open dispute")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":   order.ID.String(),
		"dispute_id": dispute.ID.String(),
		"type":       dispute.Type,
	}), "dispute opened")
	s.emit(ctx, enums.NotificationEventDisputeOpened, kindDispute, dispute.ID, order, dispute.Status.String(), "", actor)
	return dispute, nil
}

// UpdateDispute moves a dispute along its workflow. Sellers may only answer;
// resolving or closing is reserved to admins and releases the order's
// dispute flag.
func (s *service) UpdateDispute(ctx context.Context, input UpdateDisputeInput) (*models.OrderDispute, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	dispute, err := s.repo.FindDispute(ctx, input.DisputeID)
	if err != nil {
		return nil, err
	}
	order, actor, err := s.loadOrder(ctx, input.ActorID, dispute.OrderID)
	if err != nil {
		return nil, err
	}

	from, to := dispute.Status, input.Status
	if !canMoveDispute(from, to) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move dispute from %s to %s", from, to)).
			WithReason(pkgerrors.ReasonInvalidStatusTransition).
			WithDetails(map[string]any{"from": from, "to": to, "allowed": disputeTransitions[from]})
	}

	now := s.now()
	updates := map[string]any{"status": to, "updated_at": now}
	switch actor.Role {
	case enums.UserRoleAdmin:
		if err := checkRefundAmount(input.RefundAmountCents, order); err != nil {
			return nil, err
		}
		if input.RefundAmountCents != nil {
			updates["refund_amount_cents"] = *input.RefundAmountCents
		}
		if input.Resolution != nil {
			updates["resolution"] = *input.Resolution
		}
		if to == enums.DisputeStatusResolved && input.Resolution == nil && dispute.Resolution == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution is required to resolve a dispute")
		}
	case enums.UserRoleSeller:
		if to != enums.DisputeStatusSellerResponded {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sellers can only respond to a dispute")
		}
		if input.Resolution != nil || input.RefundAmountCents != nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can set a resolution or refund amount")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyers cannot change the dispute status")
	}
	if to == enums.DisputeStatusSellerResponded {
		if input.SellerResponse == nil || *input.SellerResponse == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller_response is required")
		}
		updates["seller_response"] = *input.SellerResponse
	}
	if disputeFinal(to) {
		updates["resolved_by"] = *actor.ID
		updates["resolved_at"] = now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateDispute(ctx, dispute.ID, from, updates); err != nil {
			return err
		}
		if disputeFinal(to) {
			return s.orders.WithTx(tx).SetDisputeFlag(ctx, order.ID, false)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Internalize(err, "update dispute")
	}

	updated, err := s.repo.FindDispute(ctx, dispute.ID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"dispute_id": dispute.ID.String(),
		"from":       from,
		"to":         to,
		"role":       actor.Role,
	}), "dispute updated")
	s.emit(ctx, enums.NotificationEventDisputeUpdated, kindDispute, dispute.ID, order, to.String(), from.String(), actor)
	return updated, nil
}

func (s *service) GetDispute(ctx context.Context, actorID, disputeID uuid.UUID) (*models.OrderDispute, error) {
	dispute, err := s.repo.FindDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.loadOrder(ctx, actorID, dispute.OrderID); err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *service) ListDisputes(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderDispute, error) {
	if _, _, err := s.loadOrder(ctx, actorID, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListDisputes(ctx, orderID)
}
