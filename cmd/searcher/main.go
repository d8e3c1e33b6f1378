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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/app"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/workpool"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	fresh := flag.Bool("fresh", false, "drop checkpoints and rebuild every index")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting book search service", "port", cfg.Server.Port, "catalog", cfg.Catalog.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	pool, err := workpool.New(cfg.Search.Workers)
	if err != nil {
		slog.Error("failed to create worker pool", "error", err)
		os.Exit(1)
	}
	defer pool.Release()

	catalog, err := app.OpenCatalog(ctx, cfg)
	if err != nil {
		slog.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}
	defer catalog.Close()

	store, err := app.OpenCheckpoints(cfg.Checkpoint)
	if err != nil {
		slog.Error("failed to open checkpoint store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	snap, err := app.BuildSnapshot(ctx, cfg, catalog, store, app.BuildOptions{Fresh: *fresh, Pool: pool, Metrics: m})
	if err != nil {
		slog.Error("failed to build indexes", "error", err)
		os.Exit(1)
	}

	svc := service.New(snap,
		service.WithPool(pool),
		service.WithMetrics(m),
		service.WithTimeout(cfg.Search.QueryTimeout),
		service.WithSuggestionsPerBook(cfg.Search.SuggestionsPerBook),
	)

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis, snap.BuiltAt.Format("20060102T150405.000000000"), m)
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		publisher = producer
	}
	collector := analytics.NewCollector(publisher, aggregator, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
	collector.Start(ctx)
	defer collector.Close()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d books, %d ranked", len(snap.Library), len(snap.Closeness)),
		}
	})
	if catalog.Postgres != nil {
		checker.Register("postgres", health.Ping(true, catalog.Postgres.Ping))
	}
	if redisClient != nil {
		checker.Register("redis", health.Ping(true, redisClient.Ping))
	}

	h := handler.New(svc, queryCache, collector, cfg.Search.MaxSuggestions)
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, time.Minute)
		go limiter.Run(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter, "/api/", time.Minute)(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("book search service listening", "addr", server.Addr, "books", len(snap.Library))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("book search service stopped")
}
