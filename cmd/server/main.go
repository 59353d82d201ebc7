package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/wms/backend/internal/application/billing"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/infrastructure/resilience"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("starting warehouse billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("close database", zap.Error(err))
		}
	}()
	log.Info("database connected")

	billingHandler := buildBillingHandler(cfg, db, log)
	engine := buildEngine(cfg, db, log, billingHandler)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// buildBillingHandler wires the repositories and application services
// behind the billing HTTP handler.
func buildBillingHandler(cfg *config.Config, db *persistence.Database, log *zap.Logger) *handler.BillingHandler {
	rateRepo := persistence.NewGormCostRateRepository(db.DB)
	txRepo := persistence.NewGormInventoryTransactionRepository(db.DB)
	ledgerRepo := persistence.NewGormStorageLedgerRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	reconRepo := persistence.NewGormReconciliationRepository(db.DB)
	auditLogger := persistence.NewGormAuditLogger(db.DB, log)

	costService := appbilling.NewCostAggregationService(rateRepo, txRepo, ledgerRepo, log)
	reconService := appbilling.NewReconciliationService(invoiceRepo, reconRepo, costService, auditLogger, log)
	autoService := appbilling.NewAutoReconcileService(invoiceRepo, reconRepo, auditLogger, log)

	return handler.NewBillingHandler(costService, reconService, autoService, cfg.Resilience.OperationTimeout)
}

// buildEngine assembles the gin engine: middleware stack, health probe and
// the versioned API routes.
func buildEngine(cfg *config.Config, db *persistence.Database, log *zap.Logger, billingHandler *handler.BillingHandler) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request ID must exist before the logger runs, and
	// recovery has to sit above everything that can panic.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		limiter := resilience.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine.GET("/health", healthHandler(db))

	api := engine.Group("/api/v1")
	{
		warehouses := api.Group("/warehouses")
		warehouses.GET("/:id/costs", billingHandler.GetCosts)
		warehouses.GET("/:id/costs/summary", billingHandler.GetCostsSummary)
		warehouses.POST("/:id/auto-reconcile", billingHandler.AutoReconcile)

		invoices := api.Group("/invoices")
		invoices.GET("/:id", billingHandler.GetInvoice)
		invoices.POST("/:id/matching", billingHandler.PrepareMatching)
		invoices.GET("/:id/variance", billingHandler.GetVariance)

		reconciliations := api.Group("/reconciliations")
		reconciliations.PUT("/:id/status", billingHandler.UpdateReconciliationStatus)
	}

	return engine
}

// healthHandler reports liveness including database reachability.
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
