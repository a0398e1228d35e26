package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/catalog"
	"github.com/fjod/go_shop/internal/config"
	"github.com/fjod/go_shop/internal/events"
	h "github.com/fjod/go_shop/internal/http"
	"github.com/fjod/go_shop/internal/logger"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/service"
	"github.com/fjod/go_shop/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Telemetry.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("shop service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// Set up MongoDB connection
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	mongoDB, err := repository.ConnectMongoDB(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout)
	cancel()
	if err != nil {
		return err
	}
	defer func() { _ = mongoDB.Client().Disconnect(context.Background()) }()
	log.Info("connected to MongoDB", "database", cfg.Mongo.Database)

	if err := repository.CreateIndexes(ctx, mongoDB); err != nil {
		return err
	}

	var cartCache cache.CartCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, cart cache disabled", "error", err)
		} else {
			cartCache = cache.NewRedisCache(redisClient, cfg.Redis.CartTTL)
			log.Info("redis ping succeeded")
		}
	}

	var publisher interface {
		service.OrderPublisher
		Close() error
	} = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers, log)
	}
	defer publisher.Close()

	lookup := catalog.NewBreakerLookup(
		catalog.NewStoreLookup(repository.NewMongoProductRepository(mongoDB)),
		catalog.BreakerSettings{
			Name:         "catalog",
			Timeout:      cfg.Catalog.Timeout,
			MaxFailures:  cfg.Catalog.CBMaxFailures,
			ResetTimeout: cfg.Catalog.CBResetTimeout,
		},
	)
	resolver := catalog.NewResolver(lookup, cfg.Cart.FallbackImagePath, log)

	cartService := service.NewCartService(
		repository.NewMongoCartRepository(mongoDB),
		cartCache,
		resolver,
		service.CartConfig{
			DefaultCurrency:   cfg.Cart.DefaultCurrency,
			FallbackImagePath: cfg.Cart.FallbackImagePath,
			StoreTimeout:      cfg.Store.Timeout,
		},
		log,
	)
	orderService := service.NewOrderService(
		cartService,
		repository.NewMongoOrderRepository(mongoDB),
		publisher,
		service.OrderConfig{
			DefaultCurrency: cfg.Cart.DefaultCurrency,
			CodeAttempts:    cfg.Order.CodeAttempts,
			StoreTimeout:    cfg.Store.Timeout,
		},
		log,
	)

	router := h.NewRouter(
		h.RouterConfig{RequestTimeout: cfg.HTTP.RequestTimeout},
		h.NewCartHandler(cartService, cfg.HTTP.RequestTimeout, cfg.HTTP.MaxRequestBodySize, log),
		h.NewOrdersHandler(orderService, cfg.HTTP.RequestTimeout, cfg.HTTP.MaxRequestBodySize, log),
		h.NewAuthenticator(cfg.Auth.JWTSecret),
		log,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      otelhttp.NewHandler(router, cfg.Telemetry.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("shop service listening", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}

	log.Info("shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}
