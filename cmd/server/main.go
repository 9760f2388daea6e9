package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cashapp "github.com/aserradero/backend/internal/application/cash"
	financeapp "github.com/aserradero/backend/internal/application/finance"
	salesapp "github.com/aserradero/backend/internal/application/sales"
	stockapp "github.com/aserradero/backend/internal/application/stock"
	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/aserradero/backend/internal/infrastructure/auth"
	"github.com/aserradero/backend/internal/infrastructure/cache"
	"github.com/aserradero/backend/internal/infrastructure/config"
	"github.com/aserradero/backend/internal/infrastructure/logger"
	"github.com/aserradero/backend/internal/infrastructure/persistence"
	"github.com/aserradero/backend/internal/interfaces/http/handler"
	"github.com/aserradero/backend/internal/interfaces/http/middleware"
	"github.com/aserradero/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Sawmill Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Idempotency store for deferred cash entry applies. Redis keeps the
	// processed-markers shared across instances; a single-instance dev setup
	// falls back to the in-memory store when Redis is unreachable.
	var idempotencyStore shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("Redis unreachable, using in-memory idempotency store", zap.Error(err))
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
	} else {
		idempotencyStore = redisStore
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		log.Info("Redis connected successfully")
	}

	// Initialize repositories
	lotRepo := persistence.NewGormLotRepository(db.DB)
	shiftRepo := persistence.NewGormShiftRepository(db.DB)
	cashMovementRepo := persistence.NewGormCashMovementRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	pendingCashEntryRepo := persistence.NewGormPendingCashEntryRepository(db.DB)
	expenseRepo := persistence.NewGormExpenseRepository(db.DB)

	// Transaction scopes
	txTimeout := cfg.Database.TxTimeout
	stockScope := persistence.NewGormStockTransactionScope(db.DB, txTimeout)
	cashScope := persistence.NewGormCashTransactionScope(db.DB, txTimeout)
	salesScope := persistence.NewGormSalesTransactionScope(db.DB, txTimeout)
	financeScope := persistence.NewGormFinanceTransactionScope(db.DB, txTimeout)

	// Sale behavior policy from config
	policy := salesapp.Policy{
		Cancellation: salesapp.CancellationPolicy(cfg.Sales.CancellationPolicy),
		CashEntry:    salesapp.CashEntryMode(cfg.Sales.CashEntryMode),
	}

	// Initialize application services
	stockService := stockapp.NewService(stockScope, lotRepo, log)
	shiftService := cashapp.NewService(cashScope, shiftRepo, cashMovementRepo, saleRepo, log)
	saleService := salesapp.NewService(salesScope, saleRepo, lotRepo, pendingCashEntryRepo, idempotencyStore, policy, log)
	saleCompensator := salesapp.NewCompensator(salesScope, policy, log)
	expenseService := financeapp.NewService(financeScope, expenseRepo, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// Background reconciler for deferred cash entries. It sweeps the queue
	// site by site; entries for sites with no open shift stay queued.
	reconcilerCtx, stopReconciler := context.WithCancel(context.Background())
	defer stopReconciler()
	if policy.CashEntry == salesapp.CashEntryModeDeferred {
		go runCashEntryReconciler(reconcilerCtx, saleService, shiftRepo, cfg.Sales, log)
		log.Info("Deferred cash entry reconciler started",
			zap.Duration("interval", cfg.Sales.ReconcileInterval),
			zap.Int("batch_size", cfg.Sales.ReconcileBatchSize),
		)
	}

	// Initialize HTTP handlers
	stockHandler := handler.NewStockHandler(stockService)
	shiftHandler := handler.NewShiftHandler(shiftService)
	saleHandler := handler.NewSaleHandler(saleService, saleCompensator)
	expenseHandler := handler.NewExpenseHandler(expenseService)
	systemHandler := handler.NewSystemHandler(db, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register custom binding validators for domain enums
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Liveness and readiness probes outside API versioning
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	r.Register(stockHandler).
		Register(shiftHandler).
		Register(saleHandler).
		Register(expenseHandler).
		Register(systemHandler)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopReconciler()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runCashEntryReconciler periodically applies queued cash entries for every
// site that currently has an open shift.
func runCashEntryReconciler(
	ctx context.Context,
	saleService *salesapp.Service,
	shiftRepo cash.ShiftRepository,
	cfg config.SalesConfig,
	log *zap.Logger,
) {
	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sites, err := shiftRepo.FindOpenSites(ctx)
			if err != nil {
				log.Error("Failed to list open sites", zap.Error(err))
				continue
			}
			for _, siteID := range sites {
				applied, err := saleService.ReconcilePendingCashEntries(ctx, siteID, cfg.ReconcileBatchSize)
				if err != nil {
					log.Error("Cash entry reconcile pass failed",
						zap.String("site_id", siteID.String()),
						zap.Error(err))
					continue
				}
				if applied > 0 {
					log.Info("Applied deferred cash entries",
						zap.String("site_id", siteID.String()),
						zap.Int("applied", applied))
				}
			}
		}
	}
}
