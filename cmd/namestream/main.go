// Package main implements the entry point for the namestream service.
// Namestream combines two streams of (name, id) pairs into full names,
// matching on shared IDs with bounded memory regardless of payload size.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/namestream/config"
	gateway "github.com/c360/namestream/gateway/http"
	"github.com/c360/namestream/metric"
	"github.com/c360/namestream/service"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "namestream"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	// Setup core infrastructure
	metricsRegistry := metric.NewMetricsRegistry()
	combiner := service.NewCombiner(cfg.Spill, metricsRegistry, logger)

	gw, err := gateway.NewGateway(cfg.Gateway, combiner, metricsRegistry, logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	// Run servers with signal handling
	return runWithSignalHandling(cfg, gw, metricsRegistry, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting namestream (streaming name combiner)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads and validates configuration
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	var cfg *config.Config
	if cliCfg.ConfigPath == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.NewLoader().LoadFile(cliCfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// runWithSignalHandling starts the HTTP and metrics servers and handles
// shutdown signals
func runWithSignalHandling(
	cfg *config.Config,
	gw *gateway.Gateway,
	metricsRegistry *metric.MetricsRegistry,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := gw.Start(signalCtx); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}

	mux := http.NewServeMux()
	gw.RegisterHTTPHandlers(mux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	var metricsServer *metric.Server
	if cfg.Metrics.Port > 0 {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
	}

	group, groupCtx := errgroup.WithContext(signalCtx)

	group.Go(func() error {
		slog.Info("HTTP server listening", "addr", httpServer.Addr, "route", gateway.CombinePath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		group.Go(func() error {
			slog.Info("Metrics server listening", "address", metricsServer.Address())
			return metricsServer.Start()
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		slog.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown failed", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				slog.Error("Metrics server shutdown failed", "error", err)
			}
		}
		return gw.Stop(shutdownTimeout)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("namestream shutdown complete")
	return nil
}
