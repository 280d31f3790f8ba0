package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Rajput612/mandihouse-backend/api/controllers"
	"github.com/Rajput612/mandihouse-backend/api/middleware"
	"github.com/Rajput612/mandihouse-backend/internal/allocation"
	"github.com/Rajput612/mandihouse-backend/internal/ledger"
	"github.com/Rajput612/mandihouse-backend/internal/notifications"
	"github.com/Rajput612/mandihouse-backend/internal/orders"
	"github.com/Rajput612/mandihouse-backend/pkg/config"
	"github.com/Rajput612/mandihouse-backend/pkg/db"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
	"github.com/Rajput612/mandihouse-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	ledgerService ledger.Service,
	ordersService orders.Service,
	allocationRepo allocation.Repository,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var dbPinger db.Pinger
	if dbClient != nil {
		dbPinger = dbClient
	}
	var redisPinger redis.Pinger
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		redisPinger = redisClient
		idemStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ActorContext(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.SubmitOrder(ordersService, logg))
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(ordersService, logg))
			r.Post("/{orderId}/complete", controllers.CompleteOrder(ordersService, logg))
		})

		r.Route("/allocations", func(r chi.Router) {
			r.Get("/", controllers.SellerAllocationQueue(allocationRepo, logg))
			r.Post("/{allocationId}/accept", controllers.AcceptAllocation(ordersService, logg))
			r.Post("/{allocationId}/reject", controllers.RejectAllocation(ordersService, logg))
		})

		r.Put("/inventory", controllers.UpsertStock(dbClient, ledgerService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
