package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tracker/cmd"
	"tracker/internal/adapters/out/postgres/migrations"
)

const (
	shutdownTimeout  = 10 * time.Second
	dbConnectTimeout = 30 * time.Second
)

func main() {
	config, err := cmd.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level, _ := config.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, config, logger); err != nil {
		logger.Error("tracker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("tracker stopped")
}

func run(ctx context.Context, config cmd.Config, logger *slog.Logger) error {
	gormDB, err := openDatabase(ctx, config, logger)
	if err != nil {
		return err
	}

	app, err := cmd.NewCompositionRoot(ctx, config, gormDB, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}
	fanout, err := app.CreateFanout()
	if err != nil {
		return err
	}
	relayRunner, err := app.CreateRelay()
	if err != nil {
		return err
	}
	router, err := app.CreateRouter()
	if err != nil {
		return err
	}

	jobManager := app.CreateJobManager()
	if err = jobManager.StartAll(); err != nil {
		return err
	}
	defer jobManager.StopAll()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fanout.Run(gctx)
		return nil
	})
	if relayRunner != nil {
		g.Go(func() error {
			return relayRunner.Run(gctx)
		})
	}
	g.Go(func() error {
		logger.InfoContext(gctx, "http server starting",
			"port", config.HTTPPort,
			"storage", config.StorageBackend,
			"relay", config.RelayBackend,
			"instance", app.Instance().String())
		if startErr := router.Start(fmt.Sprintf("0.0.0.0:%s", config.HTTPPort)); !errors.Is(startErr, http.ErrServerClosed) {
			return startErr
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr := router.Shutdown(shutdownCtx)
		// Hijacked websocket connections are not covered by Shutdown.
		app.Shutdown()
		return shutdownErr
	})

	return g.Wait()
}

// openDatabase connects and migrates the postgres backend, retrying while
// the database comes up. It returns nil for the memory backend.
func openDatabase(ctx context.Context, config cmd.Config, logger *slog.Logger) (*gorm.DB, error) {
	if config.StorageBackend != cmd.StoragePostgres {
		return nil, nil //nolint:nilnil // memory backend has no database
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = dbConnectTimeout

	connect := func() (*gorm.DB, error) {
		db, err := gorm.Open(gormpostgres.Open(config.DSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err = sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := backoff.RetryNotifyWithData(connect, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		logger.WarnContext(ctx, "database not ready, retrying", "error", err, "retry_in", wait.String())
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err = migrations.Up(ctx, db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
