package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/inventory"
	"github.com/angelmondragon/bazaar-backend/internal/negotiations"
	"github.com/angelmondragon/bazaar-backend/internal/pricing"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

const defaultReturnWindow = 30 * 24 * time.Hour

// Service defines the order lifecycle: creation, status transitions,
// payments and read models.
type Service interface {
	CreateFromCart(ctx context.Context, input CreateFromCartInput) (*models.Order, error)
	CreateFromQuote(ctx context.Context, input CreateFromQuoteInput) (*models.Order, error)
	Get(ctx context.Context, actorID, orderID uuid.UUID) (*OrderView, error)
	GetByNumber(ctx context.Context, actorID uuid.UUID, number string) (*OrderView, error)
	List(ctx context.Context, actorID uuid.UUID, filter ListFilter, params pagination.Params) (pagination.Page[models.Order], error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Cancel(ctx context.Context, actorID, orderID uuid.UUID, reason *string) (*models.Order, error)
	ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*PaymentResult, error)
	RefundPayment(ctx context.Context, input RefundPaymentInput) (*PaymentResult, error)
	History(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderStatusEvent, error)
	Payments(ctx context.Context, actorID, orderID uuid.UUID) ([]models.PaymentTransaction, error)
	Stats(ctx context.Context, actorID uuid.UUID, filter StatsFilter) (*Stats, error)
	ExpirePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
	CloseReturnWindows(ctx context.Context) (int64, error)
}

type ServiceParams struct {
	Repo                 Repository
	Tx                   txRunner
	Cart                 cart.Repository
	Checker              *cart.Checker
	Ledger               inventory.Ledger
	Negotiations         negotiations.Repository
	NegotiationValidator *negotiations.Validator
	Identity             IdentityProvider
	Policy               pricing.Policy
	Notifier             Notifier
	Metrics              *metrics.OrderMetrics
	Logger               *logger.Logger
	Clock                func() time.Time
	OrderNumberPrefix    string
	NumberRetries        int
	ReturnWindow         time.Duration
}

type service struct {
	repo          Repository
	tx            txRunner
	cart          cart.Repository
	checker       *cart.Checker
	ledger        inventory.Ledger
	negotiations  negotiations.Repository
	negValidator  *negotiations.Validator
	identity      IdentityProvider
	policy        pricing.Policy
	notifier      Notifier
	metrics       *metrics.OrderMetrics
	logg          *logger.Logger
	clock         func() time.Time
	numberPrefix  string
	numberRetries int
	returnWindow  time.Duration
}

// NewService builds the order service with the required dependencies.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if p.Checker == nil {
		return nil, fmt.Errorf("cart checker required")
	}
	if p.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if p.Negotiations == nil || p.NegotiationValidator == nil {
		return nil, fmt.Errorf("negotiation provider required")
	}
	if p.Identity == nil {
		return nil, fmt.Errorf("identity provider required")
	}
	if len(p.OrderNumberPrefix) != 2 {
		return nil, fmt.Errorf("order number prefix must be 2 characters")
	}
	if p.Notifier == nil {
		p.Notifier = nopNotifier{}
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.NumberRetries <= 0 {
		p.NumberRetries = 1
	}
	if p.ReturnWindow <= 0 {
		p.ReturnWindow = defaultReturnWindow
	}
	return &service{
		repo:          p.Repo,
		tx:            p.Tx,
		cart:          p.Cart,
		checker:       p.Checker,
		ledger:        p.Ledger,
		negotiations:  p.Negotiations,
		negValidator:  p.NegotiationValidator,
		identity:      p.Identity,
		policy:        p.Policy,
		notifier:      p.Notifier,
		metrics:       p.Metrics,
		logg:          p.Logger,
		clock:         p.Clock,
		numberPrefix:  p.OrderNumberPrefix,
		numberRetries: p.NumberRetries,
		returnWindow:  p.ReturnWindow,
	}, nil
}

func (s *service) now() time.Time {
	return s.clock().UTC()
}

// load fetches the order and resolves the caller's role on it.
func (s *service) load(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, *models.User, Actor, error) {
	user, err := s.identity.GetUser(ctx, actorID)
	if err != nil {
		return nil, nil, Actor{}, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, Actor{}, err
	}
	actor, err := ResolveActor(order, user)
	if err != nil {
		return nil, nil, Actor{}, err
	}
	return order, user, actor, nil
}

func (s *service) Get(ctx context.Context, actorID, orderID uuid.UUID) (*OrderView, error) {
	order, user, actor, err := s.load(ctx, actorID, orderID)
	if err != nil {
		return nil, err
	}
	return newOrderView(order, actor.Role, user.ID), nil
}

func (s *service) GetByNumber(ctx context.Context, actorID uuid.UUID, number string) (*OrderView, error) {
	if !IsOrderNumber(number) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed order number")
	}
	user, err := s.identity.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	role, err := EffectiveRole(order, user)
	if err != nil {
		return nil, err
	}
	return newOrderView(order, role, user.ID), nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID, filter ListFilter, params pagination.Params) (pagination.Page[models.Order], error) {
	user, err := s.identity.GetUser(ctx, actorID)
	if err != nil {
		return pagination.Page[models.Order]{}, err
	}
	q := Query{Status: filter.Status, From: filter.From, To: filter.To}
	switch filter.Scope {
	case ListScopeBuyer, "":
		q.BuyerID = &user.ID
	case ListScopeSeller:
		if user.Role != enums.UserRoleSeller {
			return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodeForbidden, "seller listing requires a seller account")
		}
		q.SellerID = &user.ID
	case ListScopeAll:
		if user.Role != enums.UserRoleAdmin {
			return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodeForbidden, "listing all orders requires an admin account")
		}
		q.SellerID = filter.SellerID
		q.BuyerID = filter.BuyerID
	default:
		return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown list scope %q", filter.Scope))
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	return s.repo.List(ctx, q, params)
}

func (s *service) History(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderStatusEvent, error) {
	if _, _, _, err := s.load(ctx, actorID, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, orderID)
}

func (s *service) Payments(ctx context.Context, actorID, orderID uuid.UUID) ([]models.PaymentTransaction, error) {
	_, _, actor, err := s.load(ctx, actorID, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role == enums.UserRoleSeller {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment ledger is visible to the buyer and admins only")
	}
	return s.repo.ListPayments(ctx, orderID)
}

// Stats scopes the aggregates to the caller: buyers see their purchases,
// sellers their sales, admins everything or one seller.
func (s *service) Stats(ctx context.Context, actorID uuid.UUID, filter StatsFilter) (*Stats, error) {
	user, err := s.identity.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	q := Query{From: filter.From, To: filter.To}
	switch user.Role {
	case enums.UserRoleAdmin:
		q.SellerID = filter.SellerID
	case enums.UserRoleSeller:
		q.SellerID = &user.ID
	default:
		q.BuyerID = &user.ID
	}
	return s.repo.Stats(ctx, q)
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": input.Status})
	}
	order, _, actor, err := s.load(ctx, input.ActorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, actor, input.Status, transitionOpts{
		note:              input.Note,
		trackingNumber:    input.TrackingNumber,
		estimatedDelivery: input.EstimatedDelivery,
	})
}

func (s *service) Cancel(ctx context.Context, actorID, orderID uuid.UUID, reason *string) (*models.Order, error) {
	return s.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: orderID,
		ActorID: actorID,
		Status:  enums.OrderStatusCancelled,
		Note:    reason,
	})
}

type transitionOpts struct {
	note              *string
	trackingNumber    *string
	estimatedDelivery *time.Time
}

// transition authorizes and applies one status change. The write is a
// compare-and-swap on the status read by the caller, so a concurrent change
// surfaces as CONCURRENT_UPDATE instead of being overwritten.
func (s *service) transition(ctx context.Context, order *models.Order, actor Actor, to enums.OrderStatus, opts transitionOpts) (*models.Order, error) {
	from := order.Status
	if from == to {
		return order, nil
	}
	if err := Authorize(actor.Role, from, to); err != nil {
		return nil, err
	}
	switch to {
	case enums.OrderStatusPaid:
		res, err := s.pay(ctx, order, actor, nil, opts.note)
		if err != nil {
			return nil, err
		}
		return res.Order, nil
	case enums.OrderStatusRefunded:
		res, err := s.refund(ctx, order, actor, opts.note)
		if err != nil {
			return nil, err
		}
		return res.Order, nil
	}

	now := s.now()
	updates := map[string]any{"status": to, "updated_at": now}
	guard := Guard{Status: from}
	refundDue := false

	switch to {
	case enums.OrderStatusShipped:
		updates["delivery_status"] = enums.DeliveryStatusShipped
		if opts.trackingNumber != nil {
			updates["tracking_number"] = *opts.trackingNumber
		}
		if opts.estimatedDelivery != nil {
			updates["estimated_delivery"] = opts.estimatedDelivery.UTC()
		}
	case enums.OrderStatusDelivered:
		updates["delivery_status"] = enums.DeliveryStatusDelivered
		updates["actual_delivery"] = now
		updates["return_deadline"] = now.Add(s.returnWindow)
		updates["can_return"] = !order.ReturnsDisabled
	case enums.OrderStatusCancelled:
		updates["delivery_status"] = enums.DeliveryStatusCancelled
		updates["cancelled_at"] = now
		updates["can_return"] = false
		if opts.note != nil {
			updates["cancellation_reason"] = *opts.note
		}
		paymentStatus := order.PaymentStatus
		guard.PaymentStatus = &paymentStatus
		if paymentStatus == enums.PaymentStatusCompleted {
			refundDue = true
			updates["payment_status"] = enums.PaymentStatusRefunded
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CompareAndSwap(ctx, order.ID, guard, updates); err != nil {
			return err
		}
		if to == enums.OrderStatusCancelled {
			if err := s.restock(ctx, tx, order); err != nil {
				return err
			}
			if refundDue {
				if err := repo.InsertPayment(ctx, refundTransaction(order, opts.note, now)); err != nil {
					return err
				}
			}
		}
		return repo.AppendHistory(ctx, historyEntry(order.ID, &from, to, actor, opts.note, now))
	})
	if err != nil {
		return nil, pkgerrors.Internalize(err, "apply order transition")
	}

	updated, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(from.String(), to.String())
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"from":     from,
		"to":       to,
		"role":     actor.Role,
	})
	s.logg.Info(logCtx, "order status changed")

	s.emit(ctx, enums.NotificationEventOrderStatusChanged, newOrderEvent(updated, &from, actor, opts.note, now))
	if refundDue {
		s.emit(ctx, enums.NotificationEventOrderRefunded, newOrderEvent(updated, &from, actor, opts.note, now))
	}
	return updated, nil
}

// restock returns every catalog-backed item to inventory. Made-to-order
// items never took stock.
func (s *service) restock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	ledger := s.ledger.WithTx(tx)
	for _, item := range order.Items {
		if item.IsCustomOrder {
			continue
		}
		if err := ledger.Increment(ctx, item.ProductID, item.VariantID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ExpirePending cancels PENDING orders older than olderThan on behalf of the
// system, restoring their stock. Failures on one order do not stop the rest.
func (s *service) ExpirePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	ids, err := s.repo.ListStalePending(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}
	note := fmt.Sprintf("expired: unpaid after %s", olderThan)
	expired := 0
	var errs error
	for _, id := range ids {
		order, err := s.repo.FindByID(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, err := s.transition(ctx, order, systemActor, enums.OrderStatusCancelled, transitionOpts{note: &note}); err != nil {
			if pkgerrors.ReasonOf(err) == pkgerrors.ReasonConcurrentUpdate {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
			continue
		}
		expired++
	}
	return expired, errs
}

func (s *service) CloseReturnWindows(ctx context.Context) (int64, error) {
	return s.repo.CloseReturnWindows(ctx, s.now())
}

func historyEntry(orderID uuid.UUID, from *enums.OrderStatus, to enums.OrderStatus, actor Actor, note *string, at time.Time) *models.OrderStatusEvent {
	return &models.OrderStatusEvent{
		OrderID:    orderID,
		FromStatus: from,
		Status:     to,
		Note:       note,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		CreatedAt:  at,
	}
}
