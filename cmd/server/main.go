package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/saeid-a/FitOnboardBack/internal/config"
	"github.com/saeid-a/FitOnboardBack/internal/database"
	"github.com/saeid-a/FitOnboardBack/internal/logger"
	"github.com/saeid-a/FitOnboardBack/internal/metrics"
	"github.com/saeid-a/FitOnboardBack/internal/middleware"
	"github.com/saeid-a/FitOnboardBack/internal/onboarding"
	"github.com/saeid-a/FitOnboardBack/internal/routes"
	"github.com/saeid-a/FitOnboardBack/internal/snapshot"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.New(logger.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		Debug: cfg.IsDevelopment(),
	})
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("Server stopped", zap.Error(err))
	}
}

// run owns every resource it opens, so its defers complete before main
// decides how to exit.
func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	// 2. Step table
	steps := onboarding.DefaultStepTable()
	if cfg.StepTableFile != "" {
		var err error
		steps, err = onboarding.LoadStepTable(cfg.StepTableFile)
		if err != nil {
			return fmt.Errorf("load step table %s: %w", cfg.StepTableFile, err)
		}
		zlog.Info("Loaded step table", zap.String("file", cfg.StepTableFile), zap.Int("steps", steps.TotalSteps()))
	}

	// 3. Connect to Database
	if cfg.DBUrl == "" {
		return errors.New("DB_URL is required")
	}
	db, err := database.ConnectDB(ctx, cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	var store snapshot.Store
	switch cfg.SnapshotBackend {
	case "redis":
		client, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer func() { _ = client.Close() }()
		store = snapshot.NewRedisStore(client, cfg.SnapshotTTL)
	case "postgres":
		store = snapshot.NewPostgresStore(db)
	default:
		store = snapshot.NewMemoryStore()
	}
	zlog.Info("Snapshot store ready", zap.String("backend", cfg.SnapshotBackend))

	var registry *prometheus.Registry
	if cfg.EnableMetrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if err := metrics.Register(registry); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	// 4. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	if cfg.EnableMetrics {
		app.Use(middleware.Metrics())
	}

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	hub := routes.RegisterRoutes(app, routes.Dependencies{
		Config:    cfg,
		DB:        db,
		Snapshots: store,
		Steps:     steps,
		Logger:    zlog,
		Registry:  registry,
	})
	defer hub.Stop()

	// 5. Start Server
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zlog.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
	if err := app.Listen(":" + cfg.Port); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("listen on %s: %w", cfg.Port, err)
	}
	return nil
}
