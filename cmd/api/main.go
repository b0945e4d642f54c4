package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vidgrab/vidgrab/internal/config"
	"github.com/vidgrab/vidgrab/internal/database"
	"github.com/vidgrab/vidgrab/internal/logging"
	"github.com/vidgrab/vidgrab/internal/metrics"
	"github.com/vidgrab/vidgrab/internal/middleware"
	"github.com/vidgrab/vidgrab/internal/queue"
	"github.com/vidgrab/vidgrab/pkg/models"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	api := &API{
		store:  repo,
		health: db,
		log:    logger,
	}

	// Lifecycle events from the bot feed the live counters; the API stays up
	// without them.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	if q, err := queue.New(cfg.Queue); err != nil {
		logger.WithError(err).Warn("event bus unavailable, live counters disabled")
	} else {
		defer q.Close()
		go consumeEvents(consumerCtx, q, logger)
	}

	metricsServer := metrics.NewServer(cfg.Metrics.Port)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.WithError(err).Error("metrics server failed")
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	router := setupRouter(api, limiter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("starting reporting API on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("metrics server shutdown failed")
	}

	logger.Info("server stopped")
}

// consumeEvents drains lifecycle events into the event counters.
func consumeEvents(ctx context.Context, q *queue.Queue, logger *logging.Logger) {
	handler := func(event *models.DownloadEvent) error {
		metrics.EventsConsumedTotal.WithLabelValues(event.Event).Inc()
		logger.WithDownloadID(event.DownloadID).
			WithField("event", event.Event).
			Debug("lifecycle event consumed")
		return nil
	}

	if err := q.ConsumeEvents(ctx, handler); err != nil {
		logger.WithError(err).Error("event consumer stopped")
	}
}
