package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCount int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run standalone extraction workers",
	Long: `Run extraction workers that poll the job queue without an MCP server.
Useful for scaling extraction separately from the serving process.

Examples:
  factgraph worker             # configured worker count
  factgraph worker --count 4   # 4 workers`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().IntVarP(&workerCount, "count", "c", 0, "worker count (0 uses config)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	count := workerCount
	if count <= 0 {
		count = cfg.WorkerCount
	}
	if count <= 0 {
		count = 1
	}

	hostname, _ := os.Hostname()

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		w, err := newWorker(fmt.Sprintf("%s-%d", hostname, i), nil)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	logger.Info("workers running", "count", count)
	wg.Wait()
	logger.Info("workers stopped")
	return nil
}
