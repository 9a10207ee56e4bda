package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rickgao/artblocks-activity/internal/activity"
	"github.com/rickgao/artblocks-activity/internal/api"
	"github.com/rickgao/artblocks-activity/internal/config"
	"github.com/rickgao/artblocks-activity/internal/database"
	"github.com/rickgao/artblocks-activity/internal/dedup"
	"github.com/rickgao/artblocks-activity/internal/metadata"
	"github.com/rickgao/artblocks-activity/internal/metrics"
	"github.com/rickgao/artblocks-activity/internal/model"
	"github.com/rickgao/artblocks-activity/internal/notify"
	"github.com/rickgao/artblocks-activity/internal/poller"
	"github.com/rickgao/artblocks-activity/internal/stream"
	"github.com/rickgao/artblocks-activity/internal/version"
	"github.com/rickgao/artblocks-activity/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/activitybot.local.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logger until the configured one is available
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	logger = newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting activitybot",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Sinks
	dispatcher := notify.NewDispatcher(m, logger)
	var closers []func(context.Context)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i](shutdownCtx)
		}
	}()

	httpClient := &http.Client{Timeout: cfg.Discord.Timeout}

	if cfg.Discord.Enabled() {
		dispatcher.Add(notify.NewDiscordSink(notify.DiscordConfig{
			SaleWebhooks:    cfg.Discord.SaleWebhooks,
			ListingWebhooks: cfg.Discord.ListingWebhooks,
			Username:        cfg.Discord.Username,
			Timeout:         cfg.Discord.Timeout,
		}, httpClient, logger))
		logger.Info("discord sink enabled",
			"sale_webhooks", len(cfg.Discord.SaleWebhooks),
			"listing_webhooks", len(cfg.Discord.ListingWebhooks),
		)
	}

	if cfg.NATS.Enabled() {
		sink, closeNATS, err := setupNATS(ctx, cfg.NATS, logger)
		if err != nil {
			logger.Error("failed to set up nats", "error", err)
			os.Exit(1)
		}
		closers = append(closers, closeNATS)
		dispatcher.Add(sink)
	}

	var hub *stream.Hub
	if cfg.Stream.Enabled {
		streamCfg := stream.DefaultConfig()
		streamCfg.BufferSize = cfg.Stream.BufferSize
		streamCfg.PingInterval = cfg.Stream.PingInterval
		hub = stream.NewHub(streamCfg, logger)
		closers = append(closers, func(context.Context) { hub.Close() })
		dispatcher.Add(hub)
		logger.Info("live stream enabled", "path", cfg.Stream.Path)
	}

	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		closers = append(closers, func(context.Context) { pool.Close() })

		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}

		archive := writer.NewArchiveWriter(writer.WriterConfig{
			BatchSize:     cfg.Writers.BatchSize,
			FlushInterval: cfg.Writers.FlushInterval,
			BufferSize:    cfg.Writers.BufferSize,
		}, pool, logger)
		if err := archive.Start(ctx); err != nil {
			logger.Error("failed to start archive writer", "error", err)
			os.Exit(1)
		}
		closers = append(closers, func(ctx context.Context) { archive.Stop(ctx) })
		dispatcher.Add(archive)
		logger.Info("database connected")
	}

	// Clients
	feedClient := api.NewClient(
		cfg.API.RestURL,
		cfg.API.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.Retries(), cfg.API.RetryBackoff),
		api.WithUserAgent(version.UserAgent()),
	)
	feed := api.NewFeed(feedClient, api.GetEventsOptions{
		Limit:          cfg.API.PageSize,
		EventType:      cfg.API.EventType,
		CollectionSlug: cfg.API.CollectionSlug,
		ContractAddr:   cfg.API.ContractAddress,
	}, cfg.API.MaxPages)

	metaClient := metadata.NewClient(
		cfg.Metadata.URL,
		metadata.WithLogger(logger),
		metadata.WithTimeout(cfg.Metadata.Timeout),
		metadata.WithUserAgent(version.UserAgent()),
	)

	bans := notify.NewBanList(cfg.Filter.BannedAddresses)
	processor := activity.NewProcessor(metaClient, dispatcher, bans, m, logger)

	// Poller
	startAfter, _ := cfg.Poller.StartAfterTime() // validated above
	if startAfter.IsZero() {
		startAfter = time.Now()
	}

	p := poller.New(
		poller.Config{
			Interval:      cfg.Poller.Interval,
			Concurrency:   cfg.Poller.Concurrency,
			Timeout:       cfg.Poller.Timeout,
			HandleTimeout: cfg.Poller.HandleTimeout,
		},
		poller.Feed[[]api.APIAssetEvent, model.Event]{
			Fetcher:   feed,
			Parse:     api.ParseEvents,
			Timestamp: api.EventTimestamp,
		},
		processor,
		dedup.FromTime(startAfter),
		m,
		logger,
	)

	// Start HTTP server
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHandler(handlerDeps{
			cfg:        cfg,
			poller:     p,
			pool:       pool,
			hub:        hub,
			registry:   reg,
			dispatcher: dispatcher,
			bans:       bans,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting http server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	logger.Info("activitybot running",
		"sinks", dispatcher.Sinks(),
		"banned_addresses", bans.Len(),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("poller stop timed out", "error", err)
	}
	server.Shutdown(shutdownCtx)

	logger.Info("activitybot stopped", "watermark", p.Watermark().Time())
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// setupNATS connects to NATS, ensures the notification stream exists and
// returns the sink with a function that drains the connection.
func setupNATS(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (*notify.NATSSink, func(context.Context), error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("activitybot"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream: %w", err)
	}

	if err := notify.EnsureStream(ctx, js, cfg.Stream, cfg.SubjectPrefix, cfg.MaxAge); err != nil {
		nc.Close()
		return nil, nil, err
	}

	logger.Info("nats sink enabled", "url", cfg.URL, "stream", cfg.Stream, "subject_prefix", cfg.SubjectPrefix)

	closeFn := func(context.Context) {
		if err := nc.Drain(); err != nil {
			logger.Warn("nats drain failed", "error", err)
		}
	}
	return notify.NewNATSSink(js, cfg.SubjectPrefix, logger), closeFn, nil
}
