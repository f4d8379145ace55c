package orders

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	internalorders "github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable")
}

// actorAndOrder reads the authenticated user and the {orderId} path param.
func actorAndOrder(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	actorID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return actorID, orderID, nil
}

func buildListFilter(r *http.Request, scope internalorders.ListScope) (internalorders.ListFilter, error) {
	filter := internalorders.ListFilter{Scope: scope}
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("scope")); raw != "" && scope == "" {
		switch s := internalorders.ListScope(strings.ToLower(raw)); s {
		case internalorders.ListScopeBuyer, internalorders.ListScopeSeller, internalorders.ListScopeAll:
			filter.Scope = s
		default:
			return filter, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid scope %q", raw))
		}
	}

	status, err := parseOrderStatusParam(q.Get("status"))
	if err != nil {
		return filter, err
	}
	filter.Status = status

	if filter.From, err = parseDateParam(q.Get("from"), "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseDateParam(q.Get("to"), "to"); err != nil {
		return filter, err
	}
	if filter.SellerID, err = validators.ParseQueryUUID(r, "seller_id"); err != nil {
		return filter, err
	}
	if filter.BuyerID, err = validators.ParseQueryUUID(r, "buyer_id"); err != nil {
		return filter, err
	}
	return filter, nil
}

func buildStatsFilter(r *http.Request) (internalorders.StatsFilter, error) {
	var filter internalorders.StatsFilter
	var err error
	q := r.URL.Query()
	if filter.From, err = parseDateParam(q.Get("from"), "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseDateParam(q.Get("to"), "to"); err != nil {
		return filter, err
	}
	if filter.SellerID, err = validators.ParseQueryUUID(r, "seller_id"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseOrderStatusParam(raw string) (*enums.OrderStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	status, err := enums.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid status %q", raw))
	}
	return &status, nil
}

func parseDateParam(value, field string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t, err = time.Parse(time.DateOnly, value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid %s", field))
		}
	}
	return &t, nil
}
