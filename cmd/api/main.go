package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaslink-africa/gaslink-backend/api/routes"
	"github.com/gaslink-africa/gaslink-backend/internal/cart"
	"github.com/gaslink-africa/gaslink-backend/internal/catalog"
	"github.com/gaslink-africa/gaslink-backend/internal/checkout"
	"github.com/gaslink-africa/gaslink-backend/internal/inventory"
	"github.com/gaslink-africa/gaslink-backend/internal/orders"
	"github.com/gaslink-africa/gaslink-backend/internal/payments"
	"github.com/gaslink-africa/gaslink-backend/internal/wallet"
	"github.com/gaslink-africa/gaslink-backend/pkg/config"
	"github.com/gaslink-africa/gaslink-backend/pkg/db"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
	"github.com/gaslink-africa/gaslink-backend/pkg/metrics"
	"github.com/gaslink-africa/gaslink-backend/pkg/migrate"
	"github.com/gaslink-africa/gaslink-backend/pkg/outbox"
	"github.com/gaslink-africa/gaslink-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	paymentMetrics := metrics.NewPaymentMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	gormDB := dbClient.DB()
	orderRepo := orders.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	inventorySvc := inventory.NewService(inventory.NewRepository(gormDB), logg)
	walletSvc := wallet.NewService(wallet.NewRepository(gormDB), logg)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	checkoutSvc := checkout.NewService(dbClient, orderRepo, catalogRepo, cartRepo, inventorySvc, outboxSvc, logg)
	ordersSvc := orders.NewService(dbClient, orderRepo, inventorySvc, walletSvc, outboxSvc, logg)
	paymentsSvc := payments.NewService(
		dbClient,
		payments.NewRepository(gormDB),
		orderRepo,
		checkoutSvc,
		outboxSvc,
		redisClient,
		paymentMetrics,
		cfg.Payments,
		logg,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			httpMetrics,
			metricsHandler,
			checkoutSvc,
			ordersSvc,
			paymentsSvc,
			cartRepo,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
