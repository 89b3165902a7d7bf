package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-energy/meridian-docs/internal/app"
	"github.com/meridian-energy/meridian-docs/internal/derivation"
	derivationhttp "github.com/meridian-energy/meridian-docs/internal/derivation/http"
	"github.com/meridian-energy/meridian-docs/internal/docstore"
	moneyhttp "github.com/meridian-energy/meridian-docs/internal/money/http"
	"github.com/meridian-energy/meridian-docs/internal/numbering"
	numberinghttp "github.com/meridian-energy/meridian-docs/internal/numbering/http"
	"github.com/meridian-energy/meridian-docs/internal/observability"
	"github.com/meridian-energy/meridian-docs/internal/platform/cache"
	"github.com/meridian-energy/meridian-docs/internal/platform/db"
	"github.com/meridian-energy/meridian-docs/internal/reporting"
	reportinghttp "github.com/meridian-energy/meridian-docs/internal/reporting/http"
	"github.com/meridian-energy/meridian-docs/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPingTimeout)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	store := docstore.NewPostgresStore(pool)

	var counters docstore.CounterStore
	switch cfg.CounterBackend {
	case "redis":
		counters = docstore.NewRedisCounterStore(redisClient)
	default:
		counters = docstore.NewPostgresCounterStore(pool)
	}

	allocator := numbering.NewAllocator(counters, logger,
		numbering.WithRetryAttempts(cfg.AllocRetries),
		numbering.WithRetryBackoff(cfg.AllocRetryBackoff),
	)

	reportCache := reporting.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := reporting.NewService(store, reportCache)

	derivationService := derivation.NewService(store, allocator, cfg.DefaultTaxRate, logger,
		derivation.WithCacheInvalidator(reportCache),
	)

	metrics := observability.NewMetrics()

	numberingHandler := numberinghttp.NewHandler(logger, allocator, metrics)
	derivationHandler := derivationhttp.NewHandler(logger, derivationService, metrics)
	reportingHandler := reportinghttp.NewHandler(logger, reportService)
	totalsHandler := moneyhttp.NewHandler(logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		NumberingHandler:  numberingHandler,
		DerivationHandler: derivationHandler,
		TotalsHandler:     totalsHandler,
		ReportingHandler:  reportingHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
