// Command oracled runs the price oracle service: it aggregates quotes from
// independent feeds, signs the reconciled prices and serves them over HTTP
// and WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"oracle-pricefeed/pkg/config"
	"oracle-pricefeed/pkg/logging"
	"oracle-pricefeed/pkg/metrics"
	"oracle-pricefeed/pkg/oracle"
	"oracle-pricefeed/pkg/oracle/aggregator"
	"oracle-pricefeed/pkg/oracle/attestor"
	"oracle-pricefeed/pkg/oracle/health"
	"oracle-pricefeed/pkg/oracle/sources"
	"oracle-pricefeed/pkg/oracle/store"
	"oracle-pricefeed/pkg/server/api"
	"oracle-pricefeed/pkg/version"

	// Import adapters to register them
	_ "oracle-pricefeed/pkg/oracle/sources/cex"
	_ "oracle-pricefeed/pkg/oracle/sources/index"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("oracled version %s\n", version.Version)
		os.Exit(0)
	}

	// Load .env if present; environment wins over file values.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting oracled", "version", version.Version)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service failed", "error", err.Error())
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The attestation key is environment-only: never in config files, never
	// logged. Rotation requires a restart.
	secret := os.Getenv(cfg.Oracle.Attestor.SecretEnv)
	if secret == "" {
		return fmt.Errorf("attestation key environment variable %s is not set", cfg.Oracle.Attestor.SecretEnv)
	}
	att, err := attestor.New([]byte(secret))
	if err != nil {
		return fmt.Errorf("create attestor: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	adapters, err := buildAdapters(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("Configured source adapters", "count", len(adapters), "registered", sources.List())

	var snapshots store.SnapshotStore
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			pingCancel()
			return fmt.Errorf("redis ping: %w", err)
		}
		pingCancel()
		snapshots = store.NewRedisSnapshots(redisClient, cfg.Redis.SnapshotTTL.ToDuration())
		logger.Info("Snapshot persistence enabled", "addr", cfg.Redis.Addr)
		defer redisClient.Close()
	}

	st := store.New(cfg.Oracle.HistoryCap, snapshots, logger)
	st.Warm(ctx, cfg.Oracle.WatchedSymbols)

	agg, err := aggregator.New(adapters, cfg.Oracle.Deadline.ToDuration(), cfg.Oracle.VarianceAlertPct, logger)
	if err != nil {
		return fmt.Errorf("create aggregator: %w", err)
	}

	svc := oracle.NewService(agg, att, st, cfg.Oracle.CacheTTL.ToDuration(), logger)

	monitor := health.NewMonitor(st, health.Thresholds{
		MinSourceRatio:   cfg.Oracle.Health.MinSourceRatio,
		MaxAlerts:        cfg.Oracle.Health.MaxAlerts,
		MinSources:       cfg.Oracle.Health.MinSources,
		VarianceAlertPct: cfg.Oracle.VarianceAlertPct,
	}, logger)

	var hub *api.Hub
	if cfg.Server.WebSocket.Enabled {
		hub = api.NewHub(logger)
		svc.SetListener(hub.Broadcast)
		go hub.Run(ctx)
	}

	apiServer := api.NewServer(cfg.Server.HTTP.Addr, svc, monitor, att, cfg.Oracle.WatchedSymbols, hub, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- apiServer.Start()
	}()

	scheduler := cron.New()
	refreshSpec := "@every " + cfg.Oracle.RefreshInterval.ToDuration().String()
	if _, err := scheduler.AddFunc(refreshSpec, func() {
		refreshCtx, refreshCancel := context.WithTimeout(ctx, 2*cfg.Oracle.Deadline.ToDuration())
		defer refreshCancel()
		svc.Refresh(refreshCtx, cfg.Oracle.WatchedSymbols)
	}); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	if _, err := scheduler.AddFunc("@every 1m", func() {
		status := monitor.Status(cfg.Oracle.WatchedSymbols)
		logger.Info("Health sweep",
			"healthy", status.IsHealthy,
			"active_sources", status.ActiveSources,
			"total_sources", status.TotalSources,
			"alerts", len(status.Alerts))
		for _, alert := range status.Alerts {
			logger.Warn("Health alert", "alert", alert)
		}
	}); err != nil {
		return fmt.Errorf("schedule health sweep: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Prime the cache so the first callers are served immediately.
	go svc.Refresh(ctx, cfg.Oracle.WatchedSymbols)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down gracefully...")
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	logger.Info("Shutdown complete")
	return nil
}

// buildAdapters instantiates every enabled source from config.
func buildAdapters(cfg *config.Config, logger *logging.Logger) ([]sources.Adapter, error) {
	var adapters []sources.Adapter
	for _, sourceCfg := range cfg.Sources {
		if !sourceCfg.Enabled {
			logger.Info("Skipping disabled source", "type", sourceCfg.Type, "name", sourceCfg.Name)
			continue
		}

		adapterCfg := make(map[string]interface{}, len(sourceCfg.Config)+1)
		for k, v := range sourceCfg.Config {
			adapterCfg[k] = v
		}
		adapterCfg["logger"] = logger

		adapter, err := sources.Create(sourceCfg.Type, sourceCfg.Name, adapterCfg)
		if err != nil {
			return nil, fmt.Errorf("create source %s.%s: %w", sourceCfg.Type, sourceCfg.Name, err)
		}
		adapters = append(adapters, adapter)
		logger.Info("Source adapter ready", "source", adapter.Name(), "type", string(adapter.Type()))
	}
	return adapters, nil
}
