package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-storefront/internal/config"
	"github.com/flicky/go-storefront/internal/event"
	"github.com/flicky/go-storefront/internal/handler"
	"github.com/flicky/go-storefront/internal/repository"
	"github.com/flicky/go-storefront/internal/service"
	"github.com/flicky/go-storefront/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DB.AutoMigrate {
		if err := repository.Migrate(cfg.DB.DSN()); err != nil {
			log.Error("apply migrations", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ: one channel for publishing, one for the worker.
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	pubCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer pubCh.Close()

	if err := event.DeclareTopology(pubCh); err != nil {
		log.Error("declare RabbitMQ topology", "error", err)
		os.Exit(1)
	}

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer consumeCh.Close()
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	checkoutRepo := repository.NewCheckoutRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	analyticsRepo := repository.NewAnalyticsRepository(dbPool)

	// Services
	publisher := event.NewPublisher(pubCh, cfg.Breaker, log)
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	catalogSvc := service.NewCatalogService(productRepo, categoryRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	orderSvc := service.NewOrderService(orderRepo)
	checkoutSvc := service.NewCheckoutService(
		cartRepo, checkoutRepo,
		service.NewOrderNumberGenerator(cfg.Checkout.OrderNumberPrefix), cfg.Checkout.OrderNumberRetries,
		publisher, catalogSvc, log,
	)
	analyticsLoc, err := cfg.Analytics.Location()
	if err != nil {
		log.Error("analytics timezone", "error", err)
		os.Exit(1)
	}
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cfg.Analytics.TopProducts, cfg.Analytics.LowStockThreshold, analyticsLoc)

	// Worker
	orderWorker := worker.NewOrderWorker(consumeCh, orderSvc, catalogSvc, redisClient, log)

	healthH := handler.NewHealthHandler(map[string]handler.Check{
		"postgres": dbPool.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"rabbitmq": func(context.Context) error {
			if amqpConn.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		},
		"events": publisher.Check,
	})

	router := handler.NewRouter(handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Product:   handler.NewProductHandler(catalogSvc),
		Cart:      handler.NewCartHandler(cartSvc),
		Order:     handler.NewOrderHandler(orderSvc, checkoutSvc),
		Analytics: handler.NewAnalyticsHandler(analyticsSvc),
		Health:    healthH,
	}, cfg.JWT.Secret)

	if err := orderWorker.Start(ctx); err != nil {
		log.Error("start order worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	orderWorker.Stop()
	cancel()
	log.Info("server stopped")
}
