package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/billbook/config"
	"github.com/shashiranjanraj/billbook/internal/server"
	"github.com/shashiranjanraj/billbook/pkg/cache"
	"github.com/shashiranjanraj/billbook/pkg/database"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/queue"
	"github.com/shashiranjanraj/billbook/pkg/storage"
	"github.com/shashiranjanraj/billbook/pkg/workerpool"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"run"},
		Short:   "Start the HTTP, websocket and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Start()
		},
	}
}

func routeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route:list",
		Short: "List all registered routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool := workerpool.New(1)
			defer pool.Shutdown()

			// Nothing is served, so no database is needed.
			app, err := server.Build(server.Deps{
				Queue: queue.NewManager(queue.NewMemoryDriver(1)),
				Pool:  pool,
			})
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), app)
		},
	}
}

func printRoutes(out io.Writer, app *server.App) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tNAME")
	fmt.Fprintln(w, "------\t----\t----")
	for _, ri := range app.Router.Routes() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return w.Flush()
}

func queueWorkCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "queue:work",
		Short: "Process queued jobs without serving HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cleanup, err := server.Boot(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			q, promote := server.QueueManager()
			pool := workerpool.New(config.Int("WORKER_POOL_SIZE", 8))
			defer pool.Shutdown()

			// Build registers the job handlers on q.
			if _, err := server.Build(server.Deps{
				DB:         database.DB,
				Disk:       storage.Default(),
				OTPStore:   cache.Default(),
				Queue:      q,
				Pool:       pool,
				LowStockAt: config.LowStockThreshold(),
			}); err != nil {
				return err
			}

			var bg sync.WaitGroup
			if promote != nil {
				bg.Add(1)
				go func() {
					defer bg.Done()
					promote(ctx)
				}()
			}

			if workers < 1 {
				workers = 1
			}
			logger.Info("queue worker started", "workers", workers, "driver", config.QueueDriver())
			q.StartWorkers(ctx, workers).Wait()
			bg.Wait()
			logger.Info("queue worker stopped")
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", config.Int("QUEUE_WORKERS", 2), "number of concurrent workers")
	return cmd
}
