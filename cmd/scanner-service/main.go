package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-scanning/internal/auth"
	"ms-scanning/internal/config"
	"ms-scanning/internal/connectivity"
	"ms-scanning/internal/kafka"
	"ms-scanning/internal/logger"
	"ms-scanning/internal/models"
	"ms-scanning/internal/scan"
	"ms-scanning/internal/scan/batch"
	"ms-scanning/internal/scan/debounce"
	"ms-scanning/internal/scan/offline"
	"ms-scanning/internal/scan/override"
	"ms-scanning/internal/scan/rules"
	"ms-scanning/internal/scan/scan_api"
	"ms-scanning/internal/scan/verifier"
	"ms-scanning/internal/sse"
	"ms-scanning/internal/store"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	migrate := flag.Bool("migrate", false, "bootstrap database tables and exit")
	flag.Parse()

	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Scanner Gate Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()

	// a gate that cannot verify signatures must not open at all
	if cfg.Scan.SigningSecret == "" {
		logger.Fatal("CONFIG", "SCAN_SIGNING_SECRET not set")
	}
	if cfg.Scan.DeviceKey == "" {
		logger.Fatal("CONFIG", "SCAN_DEVICE_KEY not set")
	}

	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if *migrate {
		if err := runMigrations(ctx, bunDB); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
		}
		logger.Info("DATABASE", "✅ Migration complete")
		return
	}

	var producer *kafka.Producer
	switch {
	case !cfg.Kafka.Enabled:
		logger.Warn("KAFKA", "Kafka disabled, audit fan-out is database only")
	case cfg.Kafka.MockMode:
		producer = kafka.NewMockProducer()
		logger.Warn("KAFKA", "Kafka mock mode enabled, audit events are serialized but not published")
	default:
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.ScanResults, cfg.Kafka.Topics.OverrideAudit)
		defer producer.Close()
		logger.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Kafka.Brokers))
	}

	credVerifier, err := verifier.New(cfg.Scan.SigningSecret)
	if err != nil {
		logger.Fatal("CONFIG", fmt.Sprintf("Verifier init failed: %v", err))
	}

	queue, err := offline.Open(cfg.Sync.QueuePath, cfg.Sync.MaxRetries)
	if err != nil {
		logger.Fatal("SYNC", fmt.Sprintf("Failed to open offline queue: %v", err))
	}
	defer queue.Close()
	logger.Info("SYNC", fmt.Sprintf("Offline queue ready at %s", cfg.Sync.QueuePath))

	monitor := connectivity.NewMonitor(cfg.Sync.Interval, cfg.Scan.RemoteTimeout, logger,
		connectivity.PingerFunc(func(ctx context.Context) error { return bunDB.DB.PingContext(ctx) }),
		connectivity.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	)

	emitter := sse.NewGateEventEmitter()
	session := override.NewSession(cfg.Scan.OverrideTTL, emitter.OverrideChanged)
	capacity := store.NewCapacity(bunDB, redisClient)
	engine := rules.NewEngine(capacity, session, models.ReentryMode(cfg.Scan.ReentryMode))

	coordinator := scan.NewCoordinator(cfg.Scan, scan.Deps{
		Verifier:     credVerifier,
		Guard:        debounce.New(cfg.Scan.DebounceWindow),
		Engine:       engine,
		Session:      session,
		Queue:        queue,
		Batch:        batch.NewCollector(),
		Store:        &store.DB{Bun: bunDB},
		Capacity:     capacity,
		Audit:        store.NewAudit(bunDB, producer, logger),
		Connectivity: monitor,
		Notifier:     emitter,
		Logger:       logger,
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	go monitor.Run(runCtx)

	worker := offline.NewWorker(queue, coordinator.SyncProcessor(), cfg.Sync.Interval, monitor.Online, monitor.Subscribe(), logger)
	worker.OnSummary = emitter.SyncCompleted
	go worker.Run(runCtx)
	logger.Info("SYNC", fmt.Sprintf("Background sync worker started (every %s)", cfg.Sync.Interval))

	handler := scan_api.NewHandler(coordinator, emitter, monitor, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Scan.DeviceKey))
		logger.Info("AUTH", "Device token middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			handler.RegisterRoutes(r)
		})
		logger.Info("ROUTER", "Scan gate routes registered under /api")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Scanner Gate Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Scanner Gate Service shutdown complete")
	}
}
