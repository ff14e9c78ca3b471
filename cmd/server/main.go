package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/auth"
	"storefront-service/internal/broker"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/wishlist"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront-service", cfg.Observ.JaegerEndpoint, cfg.Observ.TraceSampleRatio)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL, cfg.Business.CheckoutTxAttempts)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicOrder))

	eventPublisher := broker.NewEventPublisher(producer)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	catalogStore := catalog.NewStore(db)
	if err := catalogStore.Reload(workerCtx); err != nil {
		// readiness stays false until Refresh gets a snapshot in
		logger.Error("Failed to load catalog", zap.Error(err))
	}
	go func() {
		_ = catalogStore.Refresh(workerCtx, cfg.Business.CatalogRetryDelay, cfg.Business.CatalogRefresh)
	}()

	cartService := cart.NewService(redisClient, cfg.Business.CartMaxQuantity)
	cartService.StartSweeper(workerCtx, cfg.Business.SessionSweepInterval, cfg.Business.SessionIdleTTL)

	syncer := wishlist.NewSyncer(db, cfg.Business.WishlistQueueSize, cfg.Business.WishlistSyncAttempts, cfg.Business.WishlistSyncBackoff)
	syncer.Start(workerCtx)
	wishlistService := wishlist.NewService(redisClient, db, syncer)
	wishlistService.StartSweeper(workerCtx, cfg.Business.SessionSweepInterval, cfg.Business.SessionIdleTTL)

	reconciler := checkout.NewReconciler(db, redisClient, eventPublisher, cfg.Business.CheckoutLockTTL, cfg.Business.IdempotencyTTL)
	orderService := service.NewOrderService(db)
	adminService := service.NewAdminService(db, catalogStore)
	inventoryService := service.NewInventoryService(db, catalogStore)
	profileService := service.NewProfileService(db)

	authProvider := auth.NewProvider(auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
	authProvider.OnAuthStateChanged(func(ctx context.Context, change auth.StateChange) error {
		if change.SignedIn() {
			return wishlistService.Hydrate(ctx, change.UserID)
		}
		return wishlistService.Forget(ctx, change.UserID)
	})

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	orderWorker := worker.NewOrderWorker(orderConsumer, inventoryService)
	go func() {
		if err := orderWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Order worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	handler := api.NewHandler(api.Deps{
		Catalog:   catalogStore,
		Carts:     cartService,
		Wishlists: wishlistService,
		Checkout:  reconciler,
		Orders:    orderService,
		Admin:     adminService,
		Profiles:  profileService,
		Auth:      authProvider,
		Users:     db,
		Readiness: map[string]api.Pinger{
			"database": db.Ping,
			"redis":    redisClient.Ping,
		},
	})
	handler.SetupRoutes(router, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// drain queued wishlist writes before the database goes away
	syncer.Close()
	workerCancel()
	if err := orderWorker.Stop(); err != nil {
		logger.Error("Failed to stop order worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
