// Package server boots and runs billbook: the HTTP API with its websocket
// hub, queue workers, scheduled maintenance and the gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shashiranjanraj/billbook/config"
	"github.com/shashiranjanraj/billbook/pkg/cache"
	"github.com/shashiranjanraj/billbook/pkg/database"
	"github.com/shashiranjanraj/billbook/pkg/grpc"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/queue"
	"github.com/shashiranjanraj/billbook/pkg/storage"
	"github.com/shashiranjanraj/billbook/pkg/workerpool"
	"github.com/shashiranjanraj/billbook/pkg/ws"
)

const shutdownTimeout = 15 * time.Second

// Boot loads configuration and connects the shared infrastructure: logger
// sink, database, cache and storage disks. The returned cleanup releases
// them.
func Boot(ctx context.Context) (func(), error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	closeLog, err := logger.Setup()
	if err != nil {
		logger.Warn("mongo log sink disabled", "error", err)
	}

	if err := database.Connect(); err != nil {
		closeLog()
		return nil, err
	}

	if err := cache.Connect(ctx); err != nil {
		logger.Warn("redis unavailable, using in-memory cache", "error", err)
	}
	storage.Connect(ctx)

	return func() {
		if err := database.Close(); err != nil {
			logger.Warn("database close", "error", err)
		}
		closeLog()
	}, nil
}

// QueueManager configures the default queue manager for QUEUE_DRIVER.
// With the redis driver the returned function promotes delayed jobs until
// ctx ends; otherwise it returns nil.
func QueueManager() (*queue.Manager, func(ctx context.Context)) {
	m := queue.Default()
	queue.PersistFailures(m, database.DB)

	if config.QueueDriver() == "redis" {
		if cache.RDB == nil {
			logger.Warn("queue: redis driver requested without redis, using memory")
			return m, nil
		}
		d := queue.NewRedisDriver(cache.RDB)
		m.SetDriver(d)
		return m, d.PromoteDelayed
	}
	return m, nil
}

// Start runs the server until SIGINT or SIGTERM.
func Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cleanup, err := Boot(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	q, promote := QueueManager()
	pool := workerpool.New(config.Int("WORKER_POOL_SIZE", 8))
	defer pool.Shutdown()

	hub := ws.NewHub()

	app, err := Build(Deps{
		DB:         database.DB,
		Disk:       storage.Default(),
		OTPStore:   cache.Default(),
		Queue:      q,
		Hub:        hub,
		Pool:       pool,
		LowStockAt: config.LowStockThreshold(),
	})
	if err != nil {
		return err
	}

	sched, err := Scheduler(database.DB, time.Duration(config.Int("FAILED_JOB_RETENTION_DAYS", 7))*24*time.Hour)
	if err != nil {
		return err
	}

	var bg sync.WaitGroup
	bg.Add(1)
	go func() {
		defer bg.Done()
		hub.Run(ctx)
	}()
	if promote != nil {
		bg.Add(1)
		go func() {
			defer bg.Done()
			promote(ctx)
		}()
	}
	workers := q.StartWorkers(ctx, config.Int("QUEUE_WORKERS", 2))

	bg.Add(1)
	go func() {
		defer bg.Done()
		sched.Run(ctx)
	}()

	grpcSrv, err := grpc.Start(config.GRPCPort())
	if err != nil {
		logger.Warn("gRPC server disabled", "error", err)
	}

	httpSrv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("billbook listening", "addr", httpSrv.Addr, "env", config.AppEnv())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		stop()
	}

	logger.Info("shutting down")
	if grpcSrv != nil {
		grpcSrv.SetServing(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := httpSrv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("http shutdown", "error", shutdownErr)
	}
	grpcSrv.Stop()

	workers.Wait()
	bg.Wait()
	logger.Info("stopped")
	return err
}
