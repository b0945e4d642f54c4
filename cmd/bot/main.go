package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vidgrab/vidgrab/internal/bot"
	"github.com/vidgrab/vidgrab/internal/cache"
	"github.com/vidgrab/vidgrab/internal/config"
	"github.com/vidgrab/vidgrab/internal/database"
	"github.com/vidgrab/vidgrab/internal/delivery"
	"github.com/vidgrab/vidgrab/internal/download"
	"github.com/vidgrab/vidgrab/internal/downloader"
	"github.com/vidgrab/vidgrab/internal/janitor"
	"github.com/vidgrab/vidgrab/internal/logging"
	"github.com/vidgrab/vidgrab/internal/metrics"
	"github.com/vidgrab/vidgrab/internal/queue"
	"github.com/vidgrab/vidgrab/internal/session"
	"github.com/vidgrab/vidgrab/internal/storage"
	"github.com/vidgrab/vidgrab/internal/tracing"
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

	_, traceCloser, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
	} else {
		defer traceCloser.Close()
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// The metadata cache and the event bus are optional; the bot degrades to
	// direct fetches and no events when they are unreachable.
	var metaCache bot.MetadataCache
	if c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL); err != nil {
		logger.WithError(err).Warn("metadata cache unavailable")
	} else {
		metaCache = c
		defer c.Close()
	}

	var events *queue.Queue
	if q, err := queue.New(cfg.Queue); err != nil {
		logger.WithError(err).Warn("event bus unavailable")
	} else {
		events = q
		defer q.Close()
	}

	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	tool, err := downloader.NewClient(cfg.Downloader)
	if err != nil {
		logger.Fatalf("Failed to initialize downloader: %v", err)
	}

	store := session.NewStore(cfg.Session.MaxEntries, cfg.Session.TTL, cfg.Session.SweepInterval)
	store.Start()
	defer store.Stop()

	channel := delivery.NewConsole(os.Stdout)

	var orchEvents download.Publisher
	var botEvents bot.Publisher
	if events != nil {
		orchEvents = events
		botEvents = events
	}

	orch := download.New(tool, stor, repo, channel, orchEvents, store, logger)
	handler := bot.NewHandler(store, channel, tool, metaCache, repo, orch, botEvents, logger)

	if cfg.Janitor.Enabled {
		j := janitor.New(cfg.Janitor, cfg.Downloader.DownloadsDir, logger)
		j.Start()
		defer j.Stop()
	}

	metricsServer := metrics.NewServer(cfg.Metrics.Port)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.WithError(err).Error("metrics server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consoleLoop(ctx, handler, channel, logger)

	logger.Info("bot started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down, waiting for in-flight downloads")
	cancel()
	orch.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("metrics server shutdown failed")
	}

	logger.Info("bot stopped")
}

// consoleLoop drives the handler from stdin: slash commands, media URLs and
// raw callback tokens (as printed next to console buttons) each dispatch the
// same way a transport adapter would.
func consoleLoop(ctx context.Context, handler *bot.Handler, channel *delivery.Console, logger *logging.Logger) {
	userID := os.Getenv("USER")
	if userID == "" {
		userID = "console"
	}

	scanner := bufio.NewScanner(os.Stdin)
	interaction := 0

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch {
		case line == "/start":
			err = handler.HandleStart(ctx, bot.IncomingUser{PlatformID: userID, Username: userID})
		case line == "/help":
			err = handler.HandleHelp(ctx, userID)
		case line == "/stats":
			err = handler.HandleStats(ctx, userID)
		case isCallbackToken(line):
			interaction++
			ref := delivery.InteractionRef(fmt.Sprintf("console-cb-%d", interaction))
			err = handler.HandleCallback(ctx, userID, ref, channel.LastRef(), line)
		default:
			err = handler.HandleText(ctx, userID, line)
		}

		if err != nil {
			logger.WithError(err).Error("failed to handle input")
		}
	}
}

func isCallbackToken(line string) bool {
	if _, err := delivery.ParseAction(line); err != nil {
		return false
	}
	return true
}
