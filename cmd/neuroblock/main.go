// Package main implements the entry point for the NeuroBlock server.
// NeuroBlock is a visual machine-learning pipeline builder: the server
// manages the pipeline graph and drives training against the Python ML
// service on behalf of the browser UI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Mohammedsanin/NeuroBlock/config"
	"github.com/Mohammedsanin/NeuroBlock/document"
	"github.com/Mohammedsanin/NeuroBlock/explain"
	"github.com/Mohammedsanin/NeuroBlock/health"
	"github.com/Mohammedsanin/NeuroBlock/metric"
	"github.com/Mohammedsanin/NeuroBlock/mlsvc"
	"github.com/Mohammedsanin/NeuroBlock/service"
	"github.com/Mohammedsanin/NeuroBlock/session"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "neuroblock"
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
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	slog.Info("Starting NeuroBlock (visual ML pipeline builder)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	if cliCfg.WriteConfig != "" {
		if err := cfg.SaveToFile(cliCfg.WriteConfig); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		slog.Info("Wrote effective configuration", "path", cliCfg.WriteConfig)
		return nil
	}

	deps, err := buildDependencies(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := service.New(service.Config{
		Addr:           cfg.Server.Addr,
		Session:        deps.sess,
		Monitor:        deps.monitor,
		Metrics:        deps.registry,
		Logger:         logger,
		AllowedOrigin:  cfg.Server.AllowedOrigin,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	return runWithSignalHandling(context.Background(), srv, deps.monitor, cfg)
}

// initializeCLI parses and validates flags
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	return cliCfg, false, nil
}

// initializeConfiguration loads the config file and applies flag overrides
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg, err := config.NewLoader().LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyFlagOverrides(cfg, cliCfg)

	// Flags may carry invalid values the loader never saw.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// dependencies bundles everything the HTTP server is wired with.
type dependencies struct {
	registry *metric.Registry
	sess     *session.Session
	monitor  *health.Monitor
}

// buildDependencies creates the metrics registry, the ML backend
// client, the session, and the health monitor.
func buildDependencies(cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	registry := metric.NewRegistry()
	metrics := registry.Core()

	backend, err := mlsvc.NewClient(mlsvc.Config{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout.Std(),
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create ML backend client: %w", err)
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithMetrics(metrics),
	}

	if explainer := buildExplainer(cfg, logger, metrics); explainer != nil {
		opts = append(opts, session.WithExplainer(explainer))
	}

	if cfg.Library.Dir != "" {
		docs, err := document.NewStore(cfg.Library.Dir,
			document.WithLogger(logger),
			document.WithMetrics(metrics))
		if err != nil {
			return nil, fmt.Errorf("open pipeline library: %w", err)
		}
		opts = append(opts, session.WithDocumentStore(docs))
		slog.Info("Pipeline library opened", "dir", cfg.Library.Dir)
	} else {
		slog.Info("Pipeline library disabled (no directory configured)")
	}

	sess := session.New(backend, opts...)

	monitor := health.NewMonitor(
		health.WithLogger(logger),
		health.WithMetrics(metrics),
	)
	monitor.RegisterCheck("ml-backend", func(ctx context.Context) health.Status {
		return health.FromError("ml-backend", backend.Health(ctx))
	})

	return &dependencies{
		registry: registry,
		sess:     sess,
		monitor:  monitor,
	}, nil
}

// buildExplainer creates the language model explainer, or returns nil
// to fall back to the static texts.
func buildExplainer(cfg *config.Config, logger *slog.Logger, metrics *metric.Metrics) *explain.Service {
	if !cfg.Explain.Enabled {
		return nil
	}

	apiKey := ""
	if cfg.Explain.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.Explain.APIKeyEnv)
	}
	if apiKey == "" && cfg.Explain.BaseURL == "" {
		slog.Warn("Explanation model enabled but no API key set; serving static texts",
			"api_key_env", cfg.Explain.APIKeyEnv)
		return nil
	}

	slog.Info("Explanation model enabled",
		"model", cfg.Explain.Model,
		"base_url", cfg.Explain.BaseURL)

	return explain.NewService(explain.Config{
		BaseURL:           cfg.Explain.BaseURL,
		APIKey:            apiKey,
		Model:             cfg.Explain.Model,
		RequestsPerMinute: cfg.Explain.RequestsPerMinute,
		Logger:            logger,
		Metrics:           metrics,
	})
}

// runWithSignalHandling starts the server and stops it on SIGINT or
// SIGTERM. The health monitor probes the ML backend until shutdown.
func runWithSignalHandling(
	ctx context.Context,
	srv *service.Server,
	monitor *health.Monitor,
	cfg *config.Config,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := srv.Start(signalCtx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.Info("NeuroBlock started", "addr", srv.Addr())

	g, gCtx := errgroup.WithContext(signalCtx)

	g.Go(func() error {
		monitor.Watch(gCtx, appName, cfg.Backend.HealthInterval.Std())
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Received shutdown signal")
		if err := srv.Stop(cfg.Server.ShutdownTimeout.Std()); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("NeuroBlock shutdown complete")
	return nil
}
