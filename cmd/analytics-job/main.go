package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfiz-analytics/internal/repository"
	"github.com/noah-isme/tahfiz-analytics/internal/service"
	"github.com/noah-isme/tahfiz-analytics/pkg/cache"
	"github.com/noah-isme/tahfiz-analytics/pkg/config"
	"github.com/noah-isme/tahfiz-analytics/pkg/database"
	"github.com/noah-isme/tahfiz-analytics/pkg/jobs"
	"github.com/noah-isme/tahfiz-analytics/pkg/logger"
)

func main() {
	var (
		dateFlag  = flag.String("date", "", "run date as YYYY-MM-DD, default today")
		scopeFlag = flag.String("scope", "", "optional institution scope")
		exportF   = flag.Bool("export", false, "write report artifacts even when disabled in config")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	runDate := time.Now().UTC()
	if *dateFlag != "" {
		runDate, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			logr.Sugar().Fatalw("invalid -date", "value", *dateFlag, "error", err)
		}
	}
	if *exportF {
		cfg.Reports.Enabled = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connect failed", "error", err)
	}
	defer db.Close()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Analytics.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close()
		}
	}

	metrics := service.NewMetricsService()
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Warnw("metrics server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	aggregation := service.NewAggregationService(service.AggregationServiceParams{
		Loader:   repository.NewContextRepository(db),
		Store:    repository.NewSummaryRepository(db),
		Alerts:   repository.NewAlertRepository(db),
		Students: service.NewStudentMetricsService(cfg.Analytics, logr),
		Teachers: service.NewTeacherMetricsService(cfg.Analytics, logr),
		Classes:  service.NewClassMetricsService(logr),
		Program:  service.NewProgramMetricsService(cfg.Analytics, logr),
		Rules:    service.NewAlertService(cfg.Analytics, logr),
		Cache:    service.NewCacheService(cacheRepo, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled),
		Metrics:  metrics,
		Logger:   logr,
	})
	exporter := service.NewExportService(cfg.Reports, logr)

	runner := jobs.NewRunner("daily-analytics", func(ctx context.Context) error {
		result, err := aggregation.Run(ctx, runDate, *scopeFlag)
		if err != nil {
			return err
		}
		if paths, err := exporter.WriteRunArtifacts(result); err != nil {
			logr.Warn("report export failed", zap.Error(err))
		} else if len(paths) > 0 {
			logr.Info("reports written", zap.Strings("paths", paths))
		}
		return nil
	}, jobs.RunnerConfig{
		MaxRetries: cfg.Job.MaxRetries,
		RetryDelay: cfg.Job.RetryDelay,
		Logger:     logr,
	})

	logr.Sugar().Infow("aggregation starting",
		"date", runDate.Format("2006-01-02"),
		"scope", *scopeFlag,
		"env", cfg.Env)
	if err := runner.Run(ctx); err != nil {
		logr.Sugar().Fatalw("aggregation failed", "error", err)
	}
}
