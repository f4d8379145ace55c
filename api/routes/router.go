package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/cart"
	disputecontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/disputes"
	ordercontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/orders"
	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/disputes"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// Dependencies are the collaborators the HTTP surface is built from. Nil
// services answer with an internal error; a nil IdempotencyStore disables
// replay protection.
type Dependencies struct {
	Readiness        map[string]controllers.Pinger
	IdempotencyStore pkgredis.IdempotencyStore
	Gatherer         prometheus.Gatherer

	Cart          cart.Service
	Orders        orders.Service
	Disputes      disputes.Service
	Notifications notifications.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Fetch(deps.Cart, logg))
			r.Delete("/", cartcontrollers.Clear(deps.Cart, logg))
			r.Post("/validate", cartcontrollers.Validate(deps.Cart, logg))
			r.Post("/resync", cartcontrollers.ResyncPrices(deps.Cart, logg))
			r.Post("/items", cartcontrollers.AddItem(deps.Cart, logg))
			r.Patch("/items/{itemId}", cartcontrollers.UpdateItem(deps.Cart, logg))
			r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(deps.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, "", logg))
			r.Post("/", ordercontrollers.CreateFromCart(deps.Orders, logg))
			r.Post("/quote", ordercontrollers.CreateFromQuote(deps.Orders, logg))
			r.Get("/stats", ordercontrollers.Stats(deps.Orders, logg))
			r.Get("/number/{orderNumber}", ordercontrollers.DetailByNumber(deps.Orders, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(deps.Orders, logg))
				r.Get("/history", ordercontrollers.History(deps.Orders, logg))
				r.Post("/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
				r.Post("/cancel", ordercontrollers.Cancel(deps.Orders, logg))
				r.Get("/payments", ordercontrollers.Payments(deps.Orders, logg))
				r.Post("/payment", ordercontrollers.ProcessPayment(deps.Orders, logg))
				r.Post("/refunds", ordercontrollers.Refund(deps.Orders, logg))

				r.Get("/disputes", disputecontrollers.ListDisputes(deps.Disputes, logg))
				r.Post("/disputes", disputecontrollers.OpenDispute(deps.Disputes, logg))
				r.Get("/returns", disputecontrollers.ListReturns(deps.Disputes, logg))
				r.Post("/returns", disputecontrollers.RequestReturn(deps.Disputes, logg))
			})
		})

		r.Route("/disputes/{disputeId}", func(r chi.Router) {
			r.Get("/", disputecontrollers.GetDispute(deps.Disputes, logg))
			r.Patch("/", disputecontrollers.UpdateDispute(deps.Disputes, logg))
		})

		r.Route("/returns/{returnId}", func(r chi.Router) {
			r.Get("/", disputecontrollers.GetReturn(deps.Disputes, logg))
			r.Patch("/", disputecontrollers.UpdateReturn(deps.Disputes, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Get("/ping", controllers.AdminPing())
			r.Get("/orders", ordercontrollers.List(deps.Orders, orders.ListScopeAll, logg))
		})
	})

	return r
}
