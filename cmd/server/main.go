// Aegis - DeFi risk monitoring with proof-before-action automated responses
package main

import (
	"context"
	"os"
	"time"

	"github.com/aegis-guard/aegis/internal/config"
	"github.com/aegis-guard/aegis/internal/logging"
	"github.com/aegis-guard/aegis/internal/server"
	"github.com/aegis-guard/aegis/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Create logger
	logger := logging.New("info", "text")

	logger.Info("starting aegis",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"il_threshold_bps", cfg.ILThresholdBps,
		"health_factor_threshold_bps", cfg.HealthFactorThresholdBps,
	)

	// Initialize tracing (no-op without OTLP_ENDPOINT)
	shutdownTraces, err := traces.Init(context.Background(), cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTraces(ctx); err != nil {
			logger.Error("trace shutdown failed", "error", err)
		}
	}()

	// Create and run server
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
