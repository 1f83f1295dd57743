package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"clinic_app_echo/internal/billing"
	"clinic_app_echo/internal/config"
	"clinic_app_echo/internal/handlers"
	"clinic_app_echo/internal/logger"
	"clinic_app_echo/internal/metrics"
	"clinic_app_echo/internal/middleware"
	"clinic_app_echo/internal/services"
)

func main() {
	cfg := config.Load()

	log, err := logger.Init(logger.Options{
		Production: cfg.IsProduction(),
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	policy, err := billing.ParseVVIPPolicy(cfg.VVIPPolicy)
	if err != nil {
		log.Fatal("invalid billing configuration", zap.Error(err))
	}

	// Initialize Database
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, !cfg.IsProduction())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatal("failed to run database migrations", zap.Error(err))
	}
	if _, err := services.NormalizePatientRoles(db); err != nil {
		log.Fatal("failed to normalize patient roles", zap.Error(err))
	}

	// Redis is optional, without it option lists are read live and
	// idempotency keys are not enforced
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", zap.Error(err))
			cache = nil
		} else {
			defer func() { _ = cache.Close() }()
		}
	}

	m := metrics.NewClinicMetrics(nil)
	engine := billing.NewEngine(services.NewBillingStore(db), policy, m)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.JSONErrorHandler
	e.Validator = middleware.NewRequestValidator()

	e.Use(middleware.RequestContext())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Recover())

	handlers.Handlers{
		Dashboard: handlers.NewDashboardHandler(services.NewReportService(db, m)),
		Patients:  handlers.NewPatientHandler(db),
		Catalog:   handlers.NewCatalogHandler(db, cache),
		Expenses:  handlers.NewExpenseHandler(db),
		Visits:    handlers.NewVisitHandler(db),
		Records:   handlers.NewRecordHandler(db, cache, engine, cfg.CatalogCacheTTL),
	}.Register(e)

	e.GET("/healthz", func(c echo.Context) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		log.Info("server starting", zap.String("port", cfg.Port), zap.String("vvip_policy", string(policy)))
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
