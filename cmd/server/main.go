package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/auditfix/auditfix-gateway/internal/api"
	"github.com/auditfix/auditfix-gateway/internal/server"
	"github.com/auditfix/auditfix-gateway/internal/service"
	"github.com/auditfix/auditfix-gateway/pkg/config"
	"github.com/auditfix/auditfix-gateway/pkg/logging"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile    = flag.String("env-file", ".env", "Path to dotenv file, ignored if missing")
	version    = "dev"
	buildTime  = "unknown"
)

func main() {
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting AuditFix gateway",
		zap.String("version", version),
		zap.String("build_time", buildTime),
		zap.String("backend", cfg.Backend.URL),
		zap.String("cache", cfg.Cache.Type),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services := service.NewServices(ctx, cfg, logger)
	defer func() { _ = services.Close() }()

	mgr := server.NewManager(cfg, logger)
	mgr.AddProvider(api.NewHandlers(services, cfg, logger))

	if err := mgr.Start(ctx); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()

	if err := mgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
