package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ecomdash/internal/amqp"
	"ecomdash/internal/cache"
	"ecomdash/internal/cli"
	"ecomdash/internal/config"
	"ecomdash/internal/core"
	apphttp "ecomdash/internal/http"
	applog "ecomdash/internal/log"
	"ecomdash/internal/query"
	"ecomdash/internal/storage"
	"ecomdash/internal/worker"
)

const (
	redisKeyPrefix  = "ecomdash:query"
	cleanupInterval = time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)

	logger.Info("Starting ecomdash dashboard",
		applog.FieldOperation, applog.OpStartup,
		applog.FieldDBPath, cfg.DBPath,
		"cache_backend", cfg.CacheBackend)

	opts := storage.DefaultOptions()
	opts.MaxOpenConns = cfg.QueryConcurrency
	db, err := storage.Open(cfg.DBPath, opts)
	if err != nil {
		logger.Error("Failed to open database", applog.FieldError, err, applog.FieldDBPath, cfg.DBPath)
		os.Exit(1)
	}
	defer db.Close()

	// A missing database is not fatal: panels render as failed until the loader runs.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
	if err := storage.Ping(pingCtx, db); err != nil {
		logger.Warn("Database not reachable yet", applog.FieldError, err, applog.FieldDBPath, cfg.DBPath)
	}
	pingCancel()

	cacheManager := cache.NewManager()
	results := newResultCache(cfg, logger, cacheManager)
	cacheManager.StartCleanup(cleanupInterval)

	cached := query.NewCachedExecutor(query.NewSQLExecutor(db, cfg.QueryTimeout), results)
	builder := query.NewBuilder(query.Options{
		Thresholds: core.Thresholds{
			VIP:     cfg.SegmentVIP,
			Premium: cfg.SegmentPremium,
			Regular: cfg.SegmentRegular,
		},
		TopProducts:  cfg.TopProductsLimit,
		TopCountries: cfg.TopCountriesLimit,
		TopCustomers: cfg.TopCustomersLimit,
		RecentOrders: cfg.RecentOrdersLimit,
	})
	dashboard := query.NewDashboard(query.NewAnalytics(cached, builder), cfg.QueryConcurrency)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Dashboard: dashboard,
		Cache:     cached,
		Ready: func(ctx context.Context) error {
			return storage.Ping(ctx, db)
		},
		Formatter: core.NewFormatter(cfg.CurrencySymbol),
		Logger:    logger,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
	})

	if cfg.AMQPEnabled() {
		w := worker.NewInvalidationWorker(func(ctx context.Context) (worker.Consumer, error) {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return nil, err
			}
			return client, nil
		}, cached)
		go func() {
			_ = w.Run(ctx)
		}()
		logger.Info("Cache invalidation worker started",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, cache invalidation only via TTL and /api/cache/purge")
	}

	logger.Info("HTTP server listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}

// newResultCache picks the query result store. An unreachable Redis falls back
// to the in-process LRU so the dashboard still serves.
func newResultCache(cfg *config.Config, logger *applog.Logger, manager *cache.Manager) cache.Cache[query.Entry] {
	if cfg.CacheBackend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err == nil {
			logger.Info("Using Redis query cache", "ttl", cfg.CacheTTL)
			return cache.NewRedisCache[query.Entry](client, redisKeyPrefix, cfg.CacheTTL)
		}
		logger.Warn("Redis unavailable, falling back to in-memory cache", applog.FieldError, err)
	}

	lru := cache.NewLRUCache[query.Entry](cfg.CacheSize, cfg.CacheTTL)
	manager.Register(lru)
	logger.Info("Using in-memory query cache", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	return lru
}
