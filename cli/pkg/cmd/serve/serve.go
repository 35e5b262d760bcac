package serve

import (
	"context"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"net/http"
	"nodeconductor/cli/internal/app"
	"nodeconductor/cli/internal/cmdutil"
	"nodeconductor/internal/backup"
	"nodeconductor/internal/metrics"
	"nodeconductor/internal/storage"
	"nodeconductor/internal/tasks"
	"nodeconductor/logger"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 30 * time.Second

func NewServeCmd(loader *app.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the backup scheduler and task workers",
		Long:  "Fire due backup schedules, run backup, restoration and deletion tasks and record their results until interrupted",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := loader.Get()
			if err != nil {
				cmdutil.PrintE(err.Error())
				return
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if err := run(ctx, a); err != nil {
				logger.Error("server stopped", zap.Error(err))
				cmdutil.PrintE(err.Error())
			}
		},
	}
}

func run(ctx context.Context, a *app.App) error {
	cfg := a.Config

	store, storageType, err := storage.New(cfg.Storage, cfg.BackupDir)
	if err != nil {
		return err
	}
	if err := store.Ping(ctx); err != nil {
		return errors.Wrap(err, "backup storage is not reachable")
	}
	logger.Info("backup storage ready", zap.String("type", storageType.String()))

	pool := tasks.NewPool(a.Queue, cfg.Workers, time.Second)
	backup.NewHandlers(store).Register(pool)

	scheduler, err := backup.NewScheduler(a.Executor, a.Lifecycle, pool, backup.Intervals{
		Trigger:   cfg.TriggerInterval,
		Poll:      cfg.PollInterval,
		ResultTTL: cfg.ResultTTL,
	})
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(a.Backups)
	registry := prometheus.NewRegistry()
	if err := collector.Register(registry); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pool.Run(ctx)
	})
	g.Go(func() error {
		collector.Run(ctx, a.Bus)
		return nil
	})
	g.Go(func() error {
		return refresh(ctx, collector, cfg.PollInterval)
	})

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, registry)
		g.Go(func() error {
			logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	logger.Info("nodeconductor started",
		zap.Int("workers", cfg.Workers),
		zap.Duration("trigger_interval", cfg.TriggerInterval),
		zap.Duration("poll_interval", cfg.PollInterval))

	<-ctx.Done()
	logger.Info("shutting down...")
	if err := scheduler.Shutdown(); err != nil {
		logger.Error("scheduler shutdown failed", zap.Error(err))
	}
	return g.Wait()
}

func refresh(ctx context.Context, collector *metrics.Collector, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = collector.Refresh(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
