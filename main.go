package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/mahjong-club/internal/chat"
	"github.com/mauv0809/mahjong-club/internal/config"
	"github.com/mauv0809/mahjong-club/internal/database"
	server "github.com/mauv0809/mahjong-club/internal/http"
	"github.com/mauv0809/mahjong-club/internal/identity"
	"github.com/mauv0809/mahjong-club/internal/ledger"
	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
	"github.com/mauv0809/mahjong-club/internal/namecache"
	"github.com/mauv0809/mahjong-club/internal/notifier/slack"
	"github.com/mauv0809/mahjong-club/internal/player"
	"github.com/mauv0809/mahjong-club/internal/pubsub"
	"github.com/redis/go-redis/v9"
)

const playerNameTTL = 10 * time.Minute

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken, cfg.MigrationsDir)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	broker := livequery.New(metricsSvc, 0)

	var names namecache.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		names = namecache.NewRedis(rdb, playerNameTTL)
		log.Info("Using redis player name cache", "addr", cfg.Redis.Addr)
	} else {
		names = namecache.NewMemory(playerNameTTL)
	}
	defer names.Close()

	players := player.NewDirectory(player.NewStore(db), names, broker, metricsSvc)
	sessions := identity.NewEvents()
	player.Bootstrap(sessions, players)
	nameSync := player.SyncNames(broker, names)
	defer nameSync.Close()
	verifier := identity.NewVerifier(cfg.Auth.JWTSecret)

	notifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc)
	var announcer ledger.Announcer
	if cfg.Slack.Token != "" {
		announcer = notifier
	} else {
		log.Warn("SLACK_BOT_TOKEN not set, match standings will not be announced")
	}
	ledgerSvc := ledger.New(ledger.NewStore(db), players, announcer, broker, metricsSvc, cfg.Ledger.MaxAttempts)
	reconciler, err := ledger.StartReconciler(ledgerSvc, cfg.Ledger.ReconcileInterval)
	if err != nil {
		log.Fatalf("Failed to start pending match reconciler: %s", err)
	}
	defer func() {
		if err := reconciler.Shutdown(); err != nil {
			log.Error("Failed to stop reconciler", "error", err)
		}
	}()

	chatSvc := chat.NewService(chat.NewStore(db), players, broker, metricsSvc)

	var bridge *pubsub.Bridge
	if cfg.ProjectID != "" {
		pubsubClient := pubsub.New(cfg.ProjectID)
		defer pubsubClient.Close()
		bridge = pubsub.NewBridge(pubsubClient, cfg.PubSubTopic, broker)
		log.Info("Relaying changes through Pub/Sub", "project", cfg.ProjectID, "topic", cfg.PubSubTopic)
	}

	s := server.NewServer(
		players,
		ledgerSvc,
		chatSvc,
		verifier,
		sessions,
		broker,
		bridge,
		notifier,
		metricsSvc,
		metricsHandler,
		cfg,
	)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Open chat streams only end when their client leaves, so bound the wait.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
