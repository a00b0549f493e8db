package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-catalog/internal/adapters/driven/algolia"
	"github.com/custodia-labs/sercha-catalog/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-catalog/internal/adapters/driven/postgres"
	postgresqueue "github.com/custodia-labs/sercha-catalog/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/sercha-catalog/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/sercha-catalog/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-catalog/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-catalog/internal/config"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-catalog/internal/core/services"
	"github.com/custodia-labs/sercha-catalog/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API only",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), modeAPI)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the export worker only",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), modeWorker)
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run the HTTP API and the export worker in one process",
	RunE:  runAll,
}

func runAll(cmd *cobra.Command, args []string) error {
	return run(cmd.Context(), modeAll)
}

type mode string

const (
	modeAPI    mode = "api"
	modeWorker mode = "worker"
	modeAll    mode = "all"
)

// app holds the wired adapters and services shared by every mode
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db          *postgres.DB
	redisClient *redis.Client
	index       *algolia.Client
	taskQueue   driven.TaskQueue

	authService   driving.AuthService
	indexService  driving.IndexService
	exportService driving.ExportService
}

func run(parent context.Context, m mode) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	log.Printf("sercha-catalog %s starting in %s mode", version, m)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	switch m {
	case modeAPI:
		return a.runAPI(ctx, nil)
	case modeWorker:
		w, err := a.startWorker(ctx)
		if err != nil {
			return err
		}
		<-ctx.Done()
		log.Println("Stopping worker...")
		w.Stop()
		log.Println("Worker stopped")
		return nil
	default:
		w, err := a.startWorker(ctx)
		if err != nil {
			return err
		}
		defer w.Stop()
		return a.runAPI(ctx, w)
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, logger: slog.Default()}

	// ===== PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db

	if err := db.InitSchema(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	// ===== Redis (optional) =====
	if cfg.UsesRedis() {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.Database.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		a.redisClient = redis.NewClient(opts)
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Println("Redis connected")
	}

	// ===== Hosted search index =====
	a.index, err = algolia.NewClient(cfg.AlgoliaClientConfig())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to configure search backend: %w", err)
	}
	if err := a.index.HealthCheck(ctx); err != nil {
		log.Printf("Warning: search backend health check failed: %v (requests may fail)", err)
	} else {
		log.Println("Search backend reachable")
	}

	// ===== Task Queue and Lock (Redis if available, otherwise PostgreSQL) =====
	var lock driven.DistributedLock
	if a.redisClient != nil {
		q, err := redisqueue.NewQueue(ctx, a.redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to create task queue: %w", err)
		}
		a.taskQueue = q
		lock = redisadapter.NewLock(a.redisClient)
		log.Println("Using Redis task queue and lock")
	} else {
		a.taskQueue = postgresqueue.NewQueue(db.DB)
		lock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL task queue and advisory lock")
	}

	clients := cfg.APIClients()
	if len(clients) == 0 {
		log.Println("Warning: no API clients configured, token requests will be rejected")
	}

	// ===== Services =====
	a.authService = services.NewAuthService(clients, auth.NewAdapter(cfg.Auth.JWTSecret), cfg.TokenTTL())
	a.indexService = services.NewIndexService(a.index, a.logger)
	a.exportService = services.NewExportService(services.ExportServiceConfig{
		Indexes:   a.indexService,
		Store:     postgres.NewExportStore(db),
		TaskQueue: a.taskQueue,
		Lock:      lock,
		Logger:    a.logger,
		PageSize:  cfg.Export.PageSize,
		LockTTL:   cfg.ExportLockTTL(),
	})

	return a, nil
}

func (a *app) close() {
	if a.taskQueue != nil {
		_ = a.taskQueue.Close()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// runAPI serves until ctx is cancelled. w is checked by /ready when not nil.
func (a *app) runAPI(ctx context.Context, w *worker.Worker) error {
	cfg := http.DefaultConfig()
	cfg.Host = a.cfg.Server.Host
	cfg.Port = a.cfg.Server.Port
	cfg.Version = version
	cfg.Logger = a.logger

	readiness := map[string]http.Pinger{
		"search":   http.PingFunc(a.index.HealthCheck),
		"database": a.db,
		"queue":    a.taskQueue,
	}
	if w != nil {
		readiness["worker"] = http.PingFunc(func(ctx context.Context) error {
			if h := w.Health(ctx); !h.Running {
				return errors.New("worker not running")
			}
			return nil
		})
	}

	server := http.NewServer(cfg, http.Services{
		Auth:   a.authService,
		Index:  a.indexService,
		Export: a.exportService,
	}, readiness)

	log.Printf("API server starting on %s:%d", cfg.Host, cfg.Port)
	return server.Start(ctx)
}

func (a *app) startWorker(ctx context.Context) (*worker.Worker, error) {
	log.Println("Starting worker...")
	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      a.taskQueue,
		Exporter:       a.exportService,
		Logger:         a.logger,
		Concurrency:    a.cfg.Worker.Concurrency,
		DequeueTimeout: a.cfg.Worker.DequeueTimeout,
	})
	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	log.Printf("Worker started with %d processors", a.cfg.Worker.Concurrency)
	return w, nil
}
