package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/amineouhani/blanes-backend/api/routes"
	"github.com/amineouhani/blanes-backend/internal/booking"
	"github.com/amineouhani/blanes-backend/internal/cancellation"
	"github.com/amineouhani/blanes-backend/internal/capacity"
	"github.com/amineouhani/blanes-backend/internal/commission"
	"github.com/amineouhani/blanes-backend/internal/gateway"
	"github.com/amineouhani/blanes-backend/internal/ledger"
	"github.com/amineouhani/blanes-backend/internal/notifications"
	"github.com/amineouhani/blanes-backend/internal/revenue"
	"github.com/amineouhani/blanes-backend/internal/settlement"
	"github.com/amineouhani/blanes-backend/internal/vendors"
	"github.com/amineouhani/blanes-backend/pkg/config"
	"github.com/amineouhani/blanes-backend/pkg/db"
	"github.com/amineouhani/blanes-backend/pkg/logger"
	"github.com/amineouhani/blanes-backend/pkg/metrics"
	"github.com/amineouhani/blanes-backend/pkg/migrate"
	"github.com/amineouhani/blanes-backend/pkg/redis"
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
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	gormDB := dbClient.DB()

	settings, err := commission.LoadSettings(context.Background(), gormDB)
	if err != nil {
		logg.Error(context.Background(), "failed to load commission settings", err)
		os.Exit(1)
	}
	engine, err := commission.NewEngine(commission.NewRepository(gormDB), settings)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission engine", err)
		os.Exit(1)
	}

	notifSvc, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	adapter, err := gateway.NewAdapter(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway adapter", err)
		os.Exit(1)
	}

	bookingSvc, err := booking.NewService(
		dbClient,
		booking.NewRepository(gormDB),
		capacity.NewRepository(gormDB),
		vendors.NewResolver(gormDB, logg),
		notifSvc,
		adapter,
		logg,
		bookingMetrics,
		cfg.Booking,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	cancelSvc, err := cancellation.NewService(dbClient, cancellation.NewRepository(gormDB), notifSvc, logg, cfg.Cancellation)
	if err != nil {
		logg.Error(context.Background(), "failed to create cancellation service", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledger.NewService(dbClient, ledger.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	revenueSvc, err := revenue.NewService(revenue.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create revenue service", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(
		dbClient,
		settlement.NewRepository(gormDB),
		adapter,
		engine,
		ledgerSvc,
		notifSvc,
		redisClient,
		logg,
		bookingMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

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
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Registry:   registry,
			Booking:    bookingSvc,
			Cancel:     cancelSvc,
			Settlement: settlementSvc,
			Ledger:     ledgerSvc,
			Revenue:    revenueSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
