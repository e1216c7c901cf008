package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akio-byte/navaltutka/internal/config"
	"github.com/akio-byte/navaltutka/internal/logging"
	"github.com/akio-byte/navaltutka/internal/server"
	"github.com/akio-byte/navaltutka/internal/service"
	"github.com/akio-byte/navaltutka/internal/storage"
)

const logCleanupInterval = 6 * time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load env if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := server.Options{Logger: logger}

	if cfg.Redis.Enabled() {
		redis, err := storage.NewRedis(cfg.Redis.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer redis.Close()
		opts.Redis = redis
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.GetRedisAddr()))
	}

	if cfg.Database.DSN != "" {
		postgres, err := storage.NewPostgres(cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer postgres.Close()
		if err := postgres.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate request logs: %w", err)
		}
		opts.Postgres = postgres
		logger.Info("connected to database")
	}

	srv, err := server.New(cfg, opts)
	if err != nil {
		return err
	}
	st := srv.State()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(":" + cfg.Server.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return st.Checker.Run(gctx)
	})

	if cfg.Snapshot.Watch {
		g.Go(func() error {
			return st.Snapshots.Watch(gctx)
		})
	}

	if st.RequestLogs != nil {
		g.Go(func() error {
			return st.RequestLogs.Run(gctx)
		})
		g.Go(func() error {
			return cleanupLoop(gctx, st.Analytics, cfg.RequestLog.Retention, logger)
		})
	}

	err = g.Wait()
	logger.Info("relay exited")
	return err
}

func cleanupLoop(ctx context.Context, analytics *service.AnalyticsService, retention time.Duration, logger *zap.Logger) error {
	if retention <= 0 {
		return nil
	}

	ticker := time.NewTicker(logCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			deleted, err := analytics.CleanupOldLogs(ctx, retention)
			if err != nil {
				logger.Warn("request log cleanup failed", zap.Error(err))
				continue
			}
			logger.Info("request logs cleaned up", zap.Int64("deleted", deleted))
		}
	}
}
