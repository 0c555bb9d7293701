package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/api"
	"github.com/industryrunners/pulse/internal/archive"
	"github.com/industryrunners/pulse/internal/breadth"
	"github.com/industryrunners/pulse/internal/cache"
	"github.com/industryrunners/pulse/internal/config"
	"github.com/industryrunners/pulse/internal/llm"
	"github.com/industryrunners/pulse/internal/llm/factory"
	"github.com/industryrunners/pulse/internal/logger"
	"github.com/industryrunners/pulse/internal/marketdata"
	"github.com/industryrunners/pulse/internal/metrics"
	"github.com/industryrunners/pulse/internal/screener"
	"github.com/industryrunners/pulse/internal/sector"
	"github.com/industryrunners/pulse/internal/summary"
	"github.com/industryrunners/pulse/internal/warmer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Pulse server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize logger
	log := logger.Must(debug)
	defer log.Sync()

	// Load config
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("starting Pulse server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	reg := metrics.NewRegistry()

	// Cold storage for snapshots aging out of the cache.
	var evict cache.EvictFunc
	if cfg.Archive.Enabled {
		backend, err := newArchiveBackend(cfg.Archive)
		if err != nil {
			return fmt.Errorf("creating archive backend: %w", err)
		}
		evict = archive.New(backend, log).EvictHook()
	}

	store := newCacheStore(cfg.Cache, evict, log)

	// Upstream market data client. Without an API key the services stay
	// up and answer with CONFIG_MISSING.
	var mdOpts []marketdata.Option
	if cfg.MarketData.BaseURL != "" {
		mdOpts = append(mdOpts, marketdata.WithBaseURL(cfg.MarketData.BaseURL))
	}
	if cfg.MarketData.BatchLimit > 0 {
		mdOpts = append(mdOpts, marketdata.WithBatchLimit(cfg.MarketData.BatchLimit))
	}
	market := marketdata.New(cfg.MarketData.APIKey, log, reg, mdOpts...)

	breadthAgg := breadth.New(market, store, log, reg)
	sectors := sector.New(market, store, log, reg)

	var scrOpts []screener.Option
	if cfg.Screener.BaseURL != "" {
		scrOpts = append(scrOpts, screener.WithBaseURL(cfg.Screener.BaseURL))
	}
	scr := screener.New(store, log, reg, scrOpts...)

	deps := api.Dependencies{
		Breadth:  breadthAgg,
		Screener: scr,
		Sectors:  sectors,
		Market:   market,
		Metrics:  reg,
	}

	// AI market summaries are optional.
	var summaryStore *summary.Store
	if cfg.Summary.Enabled {
		var provider llm.Provider
		if cfg.LLM.Provider != "" {
			provider, err = factory.New(cfg.LLM)
			if err != nil {
				return fmt.Errorf("creating LLM provider: %w", err)
			}
			log.Info("LLM provider configured", zap.String("provider", provider.Name()))
		}
		summaryStore, err = summary.NewStore(cfg.Summary.DBPath)
		if err != nil {
			return fmt.Errorf("opening summary store: %w", err)
		}
		defer summaryStore.Close()
		deps.Summary = summary.NewService(summaryStore, provider, log, reg)
	}

	server, err := api.NewServer(api.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		APIKeys:       cfg.Server.APIKeys,
		GenerationKey: cfg.Summary.GenerationKey,
		MetricsPath:   cfg.Metrics.Path,
	}, deps, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	var warm *warmer.Warmer
	if cfg.Warmer.Enabled && market.Ready() == nil {
		warm = warmer.New(breadthAgg, sectors, scr, log, reg)
		if err := warm.Register(cfg.Warmer.IntradayCron, cfg.Warmer.DailyCron); err != nil {
			return fmt.Errorf("registering warmer: %w", err)
		}
		warm.Start()
	}

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down Pulse server")

	if warm != nil {
		warm.Stop()
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}

func newCacheStore(cfg config.CacheConfig, evict cache.EvictFunc, log *zap.Logger) cache.Store {
	switch cfg.Backend {
	case "redis":
		var opts []cache.RedisOption
		if evict != nil {
			opts = append(opts, cache.WithRedisEvict(evict))
		}
		return cache.NewRedis(cfg.Addr, cfg.Password, cfg.DB, log, opts...)
	case "none":
		log.Warn("caching disabled, all reads compute live")
		return cache.Noop{}
	default:
		var opts []cache.MemoryOption
		if evict != nil {
			opts = append(opts, cache.WithMemoryEvict(evict))
		}
		return cache.NewMemory(opts...)
	}
}

func newArchiveBackend(cfg config.ArchiveConfig) (archive.Backend, error) {
	switch cfg.Type {
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		}), nil
	default:
		return archive.NewLocalFS(cfg.Path)
	}
}
