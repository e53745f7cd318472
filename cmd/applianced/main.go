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

	"appliance-reserve-backend/config"
	"appliance-reserve-backend/internal/api"
	"appliance-reserve-backend/internal/db"
	"appliance-reserve-backend/internal/notification"
	"appliance-reserve-backend/internal/notify"
	"appliance-reserve-backend/internal/reserve"
	"appliance-reserve-backend/internal/store"
	"appliance-reserve-backend/internal/sweeper"
	"appliance-reserve-backend/internal/timesrc"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := log.New(os.Stdout, "appliance-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled {
		if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
			logger.Fatalf("push is enabled but VAPID keys are not configured")
		}
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	clock := timesrc.System()
	origin := notify.NewOriginID()
	logger.Printf("event origin id: %s", origin)

	hub := notify.NewHub(16)
	publishers := notify.Fanout{hub}

	// Optional cross-process broadcast over Redis. Events accepted off the
	// wire are replayed into the local hub so SSE observers of this
	// process see changes made by its peers.
	if cfg.Broadcast.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Broadcast.RedisAddr})
		medium := notify.NewRedisMedium(client, cfg.Broadcast.RedisChannel)
		broadcaster := notify.NewSharedBroadcaster(medium, "")
		publishers = append(publishers, broadcaster)

		guard := notify.NewSyncGuard(origin)
		stopListen, err := broadcaster.Listen(ctx, guard, hub.Publish)
		if err != nil {
			logger.Fatalf("failed to subscribe to broadcast channel: %v", err)
		}
		defer stopListen()
		logger.Printf("cross-process broadcast enabled via %s", cfg.Broadcast.RedisAddr)
	}

	mutator := reserve.NewMutator(appStore, clock, publishers, origin, cfg.Reservation.MaxMinutes)

	sweepSvc := sweeper.New(appStore, clock, publishers, origin, cfg.Sweeper.Interval)
	go sweepSvc.Run(ctx)

	if cfg.Push.Enabled {
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		workerPool.Start(ctx)
		events, _ := hub.Subscribe()
		go workerPool.Watch(ctx, events)
		logger.Println("web push notification pool started")
	}

	handler := api.NewHandler(appStore, mutator, hub, clock, webpushOptions)
	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
