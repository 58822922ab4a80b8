package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stockroomhq/stockroom-backend/api/routes"
	"github.com/stockroomhq/stockroom-backend/internal/availability"
	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/internal/orderflow"
	"github.com/stockroomhq/stockroom-backend/internal/vouchers"
	"github.com/stockroomhq/stockroom-backend/internal/warehouses"
	pkgauth "github.com/stockroomhq/stockroom-backend/pkg/auth"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/metrics"
	"github.com/stockroomhq/stockroom-backend/pkg/migrate"
	"github.com/stockroomhq/stockroom-backend/pkg/outbox"
	"github.com/stockroomhq/stockroom-backend/pkg/redis"
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

	tokens, err := pkgauth.NewTokenManager(cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create token manager", err)
		os.Exit(1)
	}

	stockMetrics := metrics.NewStockMetrics(prometheus.DefaultRegisterer)
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	warehouseRepo := warehouses.NewRepository(dbClient.DB())
	warehouseSvc, err := warehouses.NewService(warehouseRepo, cfg.Inventory)
	if err != nil {
		logg.Error(context.Background(), "failed to create warehouse service", err)
		os.Exit(1)
	}

	reservationRepo := orderflow.NewRepository(dbClient.DB())
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), warehouseRepo, reservationRepo, dbClient, stockMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	voucherSvc, err := vouchers.NewService(
		vouchers.NewRepository(dbClient.DB()),
		warehouseRepo,
		vouchers.NewNopResolver(),
		ledgerSvc,
		events,
		dbClient,
		stockMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create voucher service", err)
		os.Exit(1)
	}

	orderFlowSvc, err := orderflow.NewService(reservationRepo, ledgerSvc, events, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order-flow service", err)
		os.Exit(1)
	}

	availabilitySvc, err := availability.NewService(availability.NewRepository(dbClient.DB()), ledgerSvc, reservationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, tokens, routes.Services{
			Warehouses:   warehouseSvc,
			Vouchers:     voucherSvc,
			Ledger:       ledgerSvc,
			Availability: availabilitySvc,
			OrderFlow:    orderFlowSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
