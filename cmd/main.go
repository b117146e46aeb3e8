package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chainvest-service/chainvest_service/internal/api/routes"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/config"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/database"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/di"
	"github.com/chainvest-service/chainvest_service/pkg/graceful"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
	"github.com/chainvest-service/chainvest_service/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	if cfg.Tracing.Enabled {
		tracingShutdown, err := tracing.InitTracer(context.Background(), tracing.Config{
			Enabled:      cfg.Tracing.Enabled,
			CollectorURL: cfg.Tracing.CollectorURL,
			Environment:  cfg.Environment,
			SampleRate:   cfg.Tracing.SampleRate,
			Insecure:     cfg.Tracing.Insecure,
		}, log.Zap())
		if err != nil {
			log.Fatal("Failed to initialize tracing", "error", err)
		}
		defer tracingShutdown(context.Background())
		log.Info("OpenTelemetry tracing initialized", "collector_url", cfg.Tracing.CollectorURL)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	container, err := di.NewContainer(context.Background(), cfg, db, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	router := routes.SetupRoutes(container)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if err := container.StartWorkers(workerCtx); err != nil {
		log.Fatal("Failed to start background workers", "error", err)
	}
	log.Info("Background workers started",
		"sweep_cron", cfg.Workers.SweepCronSpec,
		"reap_interval_minutes", cfg.Verification.ReapIntervalMinutes)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	shutdownManager := graceful.NewShutdownManager(server, db.DB, log)
	shutdownManager.Register(container)

	go func() {
		log.Info("Starting server",
			"addr", server.Addr,
			"environment", cfg.Environment,
			"version", container.Version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	shutdownManager.WaitForShutdown()
}
