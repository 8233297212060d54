package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/delacruzbakes/bakeshop-backend/api/routes"
	"github.com/delacruzbakes/bakeshop-backend/internal/cart"
	"github.com/delacruzbakes/bakeshop-backend/internal/customcakes"
	"github.com/delacruzbakes/bakeshop-backend/internal/notifications"
	"github.com/delacruzbakes/bakeshop-backend/internal/orders"
	"github.com/delacruzbakes/bakeshop-backend/internal/payments"
	"github.com/delacruzbakes/bakeshop-backend/internal/stock"
	"github.com/delacruzbakes/bakeshop-backend/pkg/config"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
	"github.com/delacruzbakes/bakeshop-backend/pkg/migrate"
	"github.com/delacruzbakes/bakeshop-backend/pkg/paymongo"
	"github.com/delacruzbakes/bakeshop-backend/pkg/redis"
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

	paymongoOpts := []paymongo.Option{paymongo.WithTimeout(cfg.PayMongo.RequestTimeout)}
	if cfg.PayMongo.BaseURL != "" {
		paymongoOpts = append(paymongoOpts, paymongo.WithBaseURL(cfg.PayMongo.BaseURL))
	}
	processor, err := paymongo.NewClient(cfg.PayMongo.SecretKey, paymongoOpts...)
	if err != nil {
		logg.Error(context.Background(), "failed to create paymongo client", err)
		os.Exit(1)
	}

	publisher := notifications.NewPublisher(cfg.Kafka, logg)
	defer func() {
		if err := publisher.Close(); err != nil {
			logg.Error(context.Background(), "error closing event publisher", err)
		}
	}()

	stockRepo := stock.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	cakesRepo := customcakes.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())

	stockService, err := stock.NewService(stockRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	cakesService, err := customcakes.NewService(cakesRepo, stockRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create custom cakes service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, stockRepo, cakesRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, cartRepo, stockRepo, dbClient, cartService, publisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:      paymentsRepo,
		Orders:    ordersRepo,
		Settler:   ordersService,
		Cakes:     cakesService,
		Processor: processor,
		Tokens:    redisClient,
		Tx:        dbClient,
		Notifier:  publisher,
		PayMongo:  cfg.PayMongo,
		TokenTTL:  cfg.Checkout.TokenTTL,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
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
			stockService,
			cartService,
			ordersService,
			cakesService,
			paymentsService,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
