package disputes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	kindDispute = "Dispute"
	kindReturn  = "Return"
)

// Service runs the dispute and return sub-ledgers hanging off an order.
type Service interface {
	OpenDispute(ctx context.Context, input OpenDisputeInput) (*models.OrderDispute, error)
	UpdateDispute(ctx context.Context, input UpdateDisputeInput) (*models.OrderDispute, error)
	GetDispute(ctx context.Context, actorID, disputeID uuid.UUID) (*models.OrderDispute, error)
	ListDisputes(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderDispute, error)

	RequestReturn(ctx context.Context, input RequestReturnInput) (*models.OrderReturn, error)
	UpdateReturn(ctx context.Context, input UpdateReturnInput) (*models.OrderReturn, error)
	GetReturn(ctx context.Context, actorID, returnID uuid.UUID) (*models.OrderReturn, error)
	ListReturns(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderReturn, error)
}

type ServiceParams struct {
	Repo     Repository
	Orders   orders.Repository
	Tx       txRunner
	Identity orders.IdentityProvider
	Notifier orders.Notifier
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	repo     Repository
	orders   orders.Repository
	tx       txRunner
	identity orders.IdentityProvider
	notifier orders.Notifier
	logg     *logger.Logger
	clock    func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Identity == nil {
		return nil, fmt.Errorf("identity provider required")
	}
	if p.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &service{
		repo:     p.Repo,
		orders:   p.Orders,
		tx:       p.Tx,
		identity: p.Identity,
		notifier: p.Notifier,
		logg:     p.Logger,
		clock:    p.Clock,
	}, nil
}

func (s *service) now() time.Time {
	return s.clock().UTC()
}

// loadOrder resolves the caller's role on the order.
func (s *service) loadOrder(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, orders.Actor, error) {
	user, err := s.identity.GetUser(ctx, actorID)
	if err != nil {
		return nil, orders.Actor{}, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, orders.Actor{}, err
	}
	actor, err := orders.ResolveActor(order, user)
	if err != nil {
		return nil, orders.Actor{}, err
	}
	return order, actor, nil
}

func (s *service) emit(ctx context.Context, event enums.NotificationEvent, kind string, id uuid.UUID, order *models.Order, status, previous string, actor orders.Actor) {
	s.notifier.Notify(ctx, event, Event{
		ID:          id,
		Kind:        kind,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		BuyerID:     order.UserID,
		SellerIDs:   orders.SellerIDs(order),
		Status:      status,
		Previous:    previous,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		OccurredAt:  s.now(),
	})
}
