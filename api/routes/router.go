package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sahilverma-dev/threadcart-backend/api/controllers"
	"github.com/sahilverma-dev/threadcart-backend/api/middleware"
	"github.com/sahilverma-dev/threadcart-backend/internal/notifications"
	"github.com/sahilverma-dev/threadcart-backend/internal/orders"
	"github.com/sahilverma-dev/threadcart-backend/internal/requests"
	"github.com/sahilverma-dev/threadcart-backend/internal/wallet"
	"github.com/sahilverma-dev/threadcart-backend/pkg/config"
	"github.com/sahilverma-dev/threadcart-backend/pkg/db"
	"github.com/sahilverma-dev/threadcart-backend/pkg/logger"
	"github.com/sahilverma-dev/threadcart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	ordersService orders.Service,
	walletService wallet.Service,
	requestsService requests.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// Typed nils must not leak into the interface parameters downstream.
	var redisP redis.Pinger
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		redisP = redisClient
		idemStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(ordersService, logg))
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderGet(ordersService, logg))
			r.Get("/{orderId}/activity", controllers.OrderActivity(ordersService, logg))
			r.Post("/{orderId}/payment/verify", controllers.OrderConfirmPayment(ordersService, logg))
			r.Post("/{orderId}/cancel-request", controllers.OrderCancelRequest(requestsService, logg))
			r.Post("/{orderId}/return-request", controllers.OrderReturnRequest(requestsService, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletGet(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(notificationsService, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(notificationsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(ordersService, logg))
			r.Post("/{orderId}/status", controllers.AdminOrderUpdateStatus(ordersService, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/{requestId}/resolve", controllers.AdminRequestResolve(requestsService, logg))
		})

		r.Route("/wallets/{userId}", func(r chi.Router) {
			r.Get("/", controllers.AdminWalletGet(walletService, logg))
			r.Get("/transactions", controllers.AdminWalletTransactions(walletService, logg))
			r.Post("/credit", controllers.AdminWalletCredit(walletService, logg))
			r.Post("/debit", controllers.AdminWalletDebit(walletService, logg))
		})
	})

	return r
}
