package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const (
	paymentReferencePrefix = "PAY-"
	refundReferencePrefix  = "REF-"
)

// ProcessPayment records a simulated capture of the order total. Only the
// purchaser or an admin may pay. Paying twice yields ALREADY_PAID and
// leaves the ledger untouched.
func (s *service) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*PaymentResult, error) {
	order, _, actor, err := s.load(ctx, input.ActorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if actor.Role == enums.UserRoleSeller {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer or an admin can pay for an order")
	}
	return s.pay(ctx, order, actor, input.MethodRef, nil)
}

// RefundPayment reverses a completed payment. Refunds are admin only.
func (s *service) RefundPayment(ctx context.Context, input RefundPaymentInput) (*PaymentResult, error) {
	order, _, actor, err := s.load(ctx, input.ActorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can refund payments")
	}
	return s.refund(ctx, order, actor, input.Reason)
}

func (s *service) pay(ctx context.Context, order *models.Order, actor Actor, methodRef, note *string) (*PaymentResult, error) {
	if order.PaymentStatus == enums.PaymentStatusCompleted {
		return nil, alreadyPaid(order)
	}
	from := order.Status
	if !CanTransition(from, enums.OrderStatusPaid) {
		return nil, transitionError(from, enums.OrderStatusPaid)
	}

	now := s.now()
	expected := order.PaymentStatus
	txn := &models.PaymentTransaction{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Type:        enums.PaymentTransactionTypeCharge,
		AmountCents: order.TotalCents,
		Status:      models.PaymentTransactionStatusSucceeded,
		Method:      order.PaymentMethod,
		MethodRef:   methodRef,
		Reference:   paymentReferencePrefix + uuid.NewString(),
		ProcessedAt: now,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		err := repo.CompareAndSwap(ctx, order.ID, Guard{Status: from, PaymentStatus: &expected}, map[string]any{
			"status":         enums.OrderStatusPaid,
			"payment_status": enums.PaymentStatusCompleted,
			"updated_at":     now,
		})
		if err != nil {
			if pkgerrors.ReasonOf(err) == pkgerrors.ReasonConcurrentUpdate {
				if current, lookupErr := repo.FindByID(ctx, order.ID); lookupErr == nil &&
					current.PaymentStatus == enums.PaymentStatusCompleted {
					return alreadyPaid(current)
				}
			}
			return err
		}
		if err := repo.InsertPayment(ctx, txn); err != nil {
			return err
		}
		return repo.AppendHistory(ctx, historyEntry(order.ID, &from, enums.OrderStatusPaid, actor, note, now))
	})
	if err != nil {
		return nil, pkgerrors.Internalize(err, "process payment")
	}

	updated, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(from.String(), enums.OrderStatusPaid.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":  order.ID.String(),
		"reference": txn.Reference,
		"amount":    txn.AmountCents,
	}), "payment recorded")
	s.emit(ctx, enums.NotificationEventOrderPaid, newOrderEvent(updated, &from, actor, note, now))
	return &PaymentResult{Order: updated, Transaction: txn}, nil
}

func (s *service) refund(ctx context.Context, order *models.Order, actor Actor, reason *string) (*PaymentResult, error) {
	if order.PaymentStatus != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "payment has not been completed").
			WithReason(pkgerrors.ReasonPaymentNotCompleted).
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}
	from := order.Status
	if err := Authorize(actor.Role, from, enums.OrderStatusRefunded); err != nil {
		return nil, err
	}

	now := s.now()
	completed := enums.PaymentStatusCompleted
	txn := refundTransaction(order, reason, now)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		err := repo.CompareAndSwap(ctx, order.ID, Guard{Status: from, PaymentStatus: &completed}, map[string]any{
			"status":         enums.OrderStatusRefunded,
			"payment_status": enums.PaymentStatusRefunded,
			"can_return":     false,
			"updated_at":     now,
		})
		if err != nil {
			return err
		}
		if err := repo.InsertPayment(ctx, txn); err != nil {
			return err
		}
		return repo.AppendHistory(ctx, historyEntry(order.ID, &from, enums.OrderStatusRefunded, actor, reason, now))
	})
	if err != nil {
		return nil, pkgerrors.Internalize(err, "refund payment")
	}

	updated, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(from.String(), enums.OrderStatusRefunded.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":  order.ID.String(),
		"reference": txn.Reference,
		"amount":    txn.AmountCents,
	}), "payment refunded")
	s.emit(ctx, enums.NotificationEventOrderRefunded, newOrderEvent(updated, &from, actor, reason, now))
	return &PaymentResult{Order: updated, Transaction: txn}, nil
}

// refundTransaction is the negative mirror of the captured total.
func refundTransaction(order *models.Order, reason *string, at time.Time) *models.PaymentTransaction {
	return &models.PaymentTransaction{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Type:        enums.PaymentTransactionTypeRefund,
		AmountCents: -order.TotalCents,
		Status:      models.PaymentTransactionStatusSucceeded,
		Method:      order.PaymentMethod,
		Reference:   refundReferencePrefix + uuid.NewString(),
		Reason:      reason,
		ProcessedAt: at,
	}
}

func alreadyPaid(order *models.Order) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "order is already paid").
		WithReason(pkgerrors.ReasonAlreadyPaid).
		WithDetails(map[string]any{"order_number": order.OrderNumber})
}
