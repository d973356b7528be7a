package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gaslink-africa/gaslink-backend/api/controllers"
	cartcontrollers "github.com/gaslink-africa/gaslink-backend/api/controllers/cart"
	ordercontrollers "github.com/gaslink-africa/gaslink-backend/api/controllers/orders"
	paymentcontrollers "github.com/gaslink-africa/gaslink-backend/api/controllers/payments"
	"github.com/gaslink-africa/gaslink-backend/api/middleware"
	internalcart "github.com/gaslink-africa/gaslink-backend/internal/cart"
	"github.com/gaslink-africa/gaslink-backend/internal/checkout"
	internalorders "github.com/gaslink-africa/gaslink-backend/internal/orders"
	internalpayments "github.com/gaslink-africa/gaslink-backend/internal/payments"
	"github.com/gaslink-africa/gaslink-backend/pkg/config"
	"github.com/gaslink-africa/gaslink-backend/pkg/db"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
	"github.com/gaslink-africa/gaslink-backend/pkg/metrics"
	"github.com/gaslink-africa/gaslink-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	checkoutSvc *checkout.Service,
	ordersSvc *internalorders.Service,
	paymentsSvc *internalpayments.Service,
	cartRepo internalcart.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// The simulated gateway authenticates itself out of band, not with
		// a user token.
		r.Post("/payments/mpesa/callback", paymentcontrollers.MpesaCallback(paymentsSvc, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Get("/orders", ordercontrollers.List(ordersSvc, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(ordersSvc, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleCustomer, logg))
				r.Get("/cart", cartcontrollers.List(cartRepo, logg))
				r.Post("/orders", ordercontrollers.Place(checkoutSvc, logg))
				r.Put("/orders/customer/{orderId}/cancel", ordercontrollers.CustomerCancel(checkoutSvc, logg))
				r.Post("/orders/{orderId}/rating", ordercontrollers.Rate(ordersSvc, logg))

				r.Post("/payments/initiate", paymentcontrollers.Initiate(paymentsSvc, logg))
				r.Post("/payments/verify", paymentcontrollers.Verify(paymentsSvc, logg))
				r.Post("/payments/resend", paymentcontrollers.Resend(paymentsSvc, logg))
				r.Get("/payments/status", paymentcontrollers.Status(paymentsSvc, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleAgent, logg))
				r.Put("/orders/agent/{orderId}/status", ordercontrollers.AgentUpdateStatus(ordersSvc, logg))
			})
		})
	})

	return r
}
