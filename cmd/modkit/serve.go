package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/modkit/modkit/pkg/api"
	"github.com/modkit/modkit/pkg/config"
	"github.com/modkit/modkit/pkg/events"
	"github.com/modkit/modkit/pkg/gate"
	"github.com/modkit/modkit/pkg/log"
	"github.com/modkit/modkit/pkg/metrics"
	"github.com/modkit/modkit/pkg/registry"
	"github.com/modkit/modkit/pkg/router"
	"github.com/modkit/modkit/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the module engine",
	Long: `Run the module engine: open the record store, register the built-in
modules, rebuild the route snapshot and serve gated traffic on the configured
listen address. The admin API is mounted under /module/ and Prometheus
metrics under /module/metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file")
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")
	serveCmd.Flags().String("data-dir", "", "Data directory for the record store (overrides config; empty means in-memory)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	logger := log.WithComponent("serve")

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer store.Close()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	reg := registry.NewRegistry(registry.Config{
		Store:            store,
		Broker:           broker,
		ResetOnUninstall: cfg.ResetOnUninstall,
	})

	for _, descriptor := range builtinModules() {
		if err := reg.Register(descriptor); err != nil {
			return fmt.Errorf("failed to register module %s: %w", descriptor.ID, err)
		}
	}

	if err := reg.Reconcile(); err != nil {
		logger.Warn().Err(err).Msg("startup reconcile failed")
	}

	snapshots := router.NewBuilder(reg)

	admin := api.NewServer(api.Config{
		Registry:           reg,
		Snapshots:          snapshots,
		Broker:             broker,
		Version:            Version,
		RateLimitPerSecond: cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:     cfg.RateLimit.Burst,
	})

	hostMux := http.NewServeMux()
	hostMux.Handle("/module/metrics", metrics.Handler())
	hostMux.Handle("/module/", http.StripPrefix("/module", admin.Handler()))
	hostMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	engine := gate.New(gate.Config{
		Registry:         reg,
		Store:            store,
		Snapshots:        snapshots,
		AvailableModules: cfg.AvailableModules,
		CorePaths:        cfg.CorePaths,
	})

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      engine.Middleware(hostMux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Listen).Msg("engine listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("engine server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	// Flags win over the config file.
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}
	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.DataDir == "" {
		log.Warn("no data directory configured, module records will not survive restarts")
		return storage.NewMemStore(), nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return storage.NewBoltStore(cfg.DataDir)
}
