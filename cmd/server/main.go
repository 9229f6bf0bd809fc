package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	orderapp "github.com/orderdesk/backend/internal/application/order"
	trackingapp "github.com/orderdesk/backend/internal/application/tracking"
	"github.com/orderdesk/backend/internal/domain/integration"
	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/infrastructure/cache"
	"github.com/orderdesk/backend/internal/infrastructure/carrier"
	"github.com/orderdesk/backend/internal/infrastructure/commerce"
	"github.com/orderdesk/backend/internal/infrastructure/config"
	"github.com/orderdesk/backend/internal/infrastructure/logger"
	"github.com/orderdesk/backend/internal/infrastructure/persistence"
	"github.com/orderdesk/backend/internal/infrastructure/scheduler"
	"github.com/orderdesk/backend/internal/interfaces/http/handler"
	"github.com/orderdesk/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting order reconciliation backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	repo, err := buildRepository(cfg)
	if err != nil {
		log.Fatal("Failed to open order repository", zap.Error(err))
	}
	log.Info("Order repository ready", zap.String("driver", cfg.Database.Driver))

	store := orderapp.NewReconcileStore(repo, log,
		orderapp.WithLockTimeout(cfg.Engine.LockTimeout),
	)

	var carrierAdapter integration.Carrier
	if cfg.Carrier.BaseURL != "" {
		ekart, err := carrier.NewEkartAdapter(&carrier.EkartConfig{
			BaseURL:        cfg.Carrier.BaseURL,
			APIKey:         cfg.Carrier.APIKey,
			TimeoutSeconds: cfg.Carrier.TimeoutSeconds,
			MaxConcurrency: cfg.Carrier.MaxConcurrency,
		})
		if err != nil {
			log.Fatal("Failed to initialize carrier adapter", zap.Error(err))
		}
		carrierAdapter = ekart
	} else {
		log.Warn("No carrier configured, return and tracking endpoints will be unavailable")
	}

	var commerceAdapter integration.CommerceSource
	if cfg.Commerce.ShopDomain != "" {
		shopify, err := commerce.NewShopifyAdapter(&commerce.ShopifyConfig{
			ShopDomain:     cfg.Commerce.ShopDomain,
			AccessToken:    cfg.Commerce.AccessToken,
			APIVersion:     cfg.Commerce.APIVersion,
			TimeoutSeconds: cfg.Commerce.TimeoutSeconds,
			PageSize:       cfg.Commerce.PageSize,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize commerce adapter", zap.Error(err))
		}
		commerceAdapter = shopify
	} else {
		log.Warn("No commerce platform configured, sync endpoint will be unavailable")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	statusCache, err := cache.NewStatusCache(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize status cache", zap.Error(err))
	}
	defer func() {
		if err := statusCache.Close(); err != nil {
			log.Error("Error closing status cache", zap.Error(err))
		}
	}()

	orderService := orderapp.NewOrderService(store, commerceAdapter, log)
	trackingService := trackingapp.NewService(store, carrierAdapter, log,
		trackingapp.WithStatusCache(statusCache, cfg.Engine.StatusCacheTTL),
	)

	var syncScheduler *scheduler.SyncScheduler
	if cfg.Scheduler.Enabled && commerceAdapter != nil {
		syncScheduler = scheduler.NewSyncScheduler(
			cfg.Scheduler.SyncInterval,
			scheduler.SyncExecutorFunc(func(ctx context.Context) (int, error) {
				recs, err := orderService.SyncFromCommerceSource(ctx)
				return len(recs), err
			}),
			log,
		)
		syncScheduler.Start(ctx)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.GinMiddleware(log), logger.Recovery(log))

	router.NewRouter(engine).
		Register(handler.NewOrderHandler(orderService)).
		Register(handler.NewTrackingHandler(trackingService)).
		Register(handler.NewSystemHandler(syncScheduler)).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if syncScheduler != nil {
		if err := syncScheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler shutdown error", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}

// buildRepository opens the configured order document store
func buildRepository(cfg *config.Config) (order.Repository, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return persistence.OpenSQLite(cfg.Database.SQLitePath)
	case "postgres":
		return persistence.OpenPostgres(cfg.Database.PostgresDSN())
	default:
		return persistence.NewInMemoryOrderRepository(), nil
	}
}
