package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fleetsight/fleetsight/internal/behavior"
	"github.com/fleetsight/fleetsight/internal/config"
	"github.com/fleetsight/fleetsight/internal/demand"
	"github.com/fleetsight/fleetsight/internal/event"
	"github.com/fleetsight/fleetsight/internal/ingest"
	"github.com/fleetsight/fleetsight/internal/ledger"
	"github.com/fleetsight/fleetsight/internal/registry"
	"github.com/fleetsight/fleetsight/internal/server"
	"github.com/fleetsight/fleetsight/internal/store"
	"github.com/fleetsight/fleetsight/internal/version"
	"github.com/fleetsight/fleetsight/internal/ws"
	"github.com/fleetsight/fleetsight/pkg/module"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Short())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	// Initialize logger from configuration.
	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("FleetSight server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	// Open database
	dsn := viperCfg.GetString("database.dsn")
	if dsn == "" {
		dsn = "fleetsight.db"
	}
	db, err := store.New(dsn)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		logger.Fatal("database version check failed", zap.Error(err))
	}

	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("dsn", dsn),
	)

	// Create shared services
	bus := event.NewBus(logger.Named("event"))
	logger.Info("event bus created", zap.String("component", "event"))

	// Create module registry
	reg := registry.New(logger.Named("registry"))
	logger.Info("module registry created", zap.String("component", "registry"))

	// Register all modules (compile-time composition)
	modules := []module.Module{
		ingest.New(),
		ledger.New(),
		demand.New(),
		behavior.New(),
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			logger.Fatal("failed to register module", zap.Error(err))
		}
	}

	// Validate dependency graph and API versions
	if err := reg.Validate(); err != nil {
		logger.Fatal("module validation failed", zap.Error(err))
	}

	// Initialize all modules with dependencies
	if err := reg.InitAll(ctx, func(name string) module.Dependencies {
		moduleCfg := cfg.Sub("modules." + name)
		return module.Dependencies{
			Config:  moduleCfg,
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Modules: reg,
		}
	}); err != nil {
		logger.Fatal("failed to initialize modules", zap.Error(err))
	}

	// Create WebSocket handler for real-time fleet events. Subscribes before
	// StartAll so training and ingest events reach connected dashboards.
	wsHandler := ws.NewHandler(bus, logger.Named("ws"))
	logger.Info("websocket handler initialized", zap.String("component", "ws"))

	// Start modules. Ingest loads and publishes datasets; the analytics
	// modules train synchronously on what they captured.
	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start modules", zap.Error(err))
	}

	// Create and start HTTP server
	addr := viperCfg.GetString("server.host") + ":" + viperCfg.GetString("server.port")
	if addr == ":" {
		addr = "0.0.0.0:8080"
	}
	logger.Info("HTTP server configured",
		zap.String("component", "server"),
		zap.String("addr", addr),
	)
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	srv := server.New(addr, reg, logger, readyCheck, wsHandler)

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("FleetSight server ready", zap.String("addr", addr))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	reg.StopAll(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("FleetSight server stopped")
}
