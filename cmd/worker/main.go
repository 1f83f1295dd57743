package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"clinic_app_echo/internal/config"
	"clinic_app_echo/internal/logger"
	"clinic_app_echo/internal/metrics"
	"clinic_app_echo/internal/services"
	"clinic_app_echo/internal/tasks"
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

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, false)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	delivery := tasks.SummaryDelivery{
		Email:      services.NewEmailService(cfg),
		EmailTo:    cfg.SummaryEmailTo,
		WhatsAppTo: cfg.SummaryWhatsAppTo,
	}
	if cfg.WAHABaseURL != "" {
		delivery.WhatsApp = services.NewWahaService(cfg)
	}
	tasks.DefineTasks(delivery)

	runner := tasks.NewRunner(db, tasks.GlobalRegistry, metrics.NewClinicMetrics(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tick := func() {
		if err := runner.ProcessDue(ctx); err != nil {
			log.Error("processing scheduled tasks failed", zap.Error(err))
		}
	}

	// one run at a time, a slow tick delays the next instead of overlapping it
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.WorkerSchedule, tick); err != nil {
		log.Fatal("invalid WORKER_SCHEDULE", zap.String("schedule", cfg.WorkerSchedule), zap.Error(err))
	}

	log.Info("worker started",
		zap.String("schedule", cfg.WorkerSchedule),
		zap.Strings("tasks", tasks.GlobalRegistry.Names()),
	)
	tick()
	c.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down worker")
	cancel()
	<-c.Stop().Done()
}
