package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dkaufhold/factgraph/internal/metrics"
	"github.com/dkaufhold/factgraph/internal/server"
	"github.com/dkaufhold/factgraph/internal/tools"
)

var serveWorkers int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server with embedded extraction workers",
	Long: `Run the MCP server on stdio, with extraction workers polling the job
queue in the background. Workers share the server's database connection.

Examples:
  factgraph serve                # server + configured worker count
  factgraph serve --workers 0    # server only, run workers separately
  factgraph serve --workers 4    # server + 4 workers`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&serveWorkers, "workers", -1, "embedded worker count (-1 uses config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	collector := metrics.NewCollector()

	store, err := newContentStore()
	if err != nil {
		return err
	}
	engine, err := newEngine(collector)
	if err != nil {
		return err
	}

	workerCount := serveWorkers
	if workerCount < 0 {
		workerCount = cfg.WorkerCount
	}

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		w, err := newWorker(fmt.Sprintf("serve-%d", i), collector)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	logger.Info("workers started", "count", workerCount)

	srv := server.New(Version, logger)
	srv.Setup()

	deps := &tools.Dependencies{
		Content:          store,
		Jobs:             newJobsStore(),
		Engine:           engine,
		Metrics:          collector,
		Logger:           logger,
		MinExtractLength: cfg.MinExtractLength,
	}
	tools.RegisterAll(srv.MCPServer(), deps)

	logger.Info("server ready, awaiting connections", "version", Version)

	err = srv.Run(ctx)
	cancel()
	wg.Wait()

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
