// Package cli provides the command-line interface for factgraph.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dkaufhold/factgraph/internal/config"
	"github.com/dkaufhold/factgraph/internal/content"
	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/extract"
	"github.com/dkaufhold/factgraph/internal/jobs"
	"github.com/dkaufhold/factgraph/internal/llm"
	"github.com/dkaufhold/factgraph/internal/metrics"
	"github.com/dkaufhold/factgraph/internal/resolve"
	"github.com/dkaufhold/factgraph/internal/search"
	"github.com/dkaufhold/factgraph/internal/worker"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger, and db client, set in PersistentPreRunE.
	cfg       config.Config
	logger    *slog.Logger
	logCloser func() error
	dbClient  *db.Client

	// Lazy-initialized LLM components
	embedder *llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "factgraph",
	Short: "Asynchronous event extraction and graph-backed retrieval",
	Long: `Factgraph stores raw text, extracts structured semantic events from it
asynchronously with an LLM, resolves the people and teams involved into a
canonical entity graph, and answers questions with hybrid vector + fulltext
retrieval expanded through that graph.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		logger, logCloser = config.SetupLogger(cfg.LogFile, cfg.LogLevel)

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCloser != nil {
			_ = logCloser()
		}
	},
}

// getEmbedder initializes the embedding client on first use.
func getEmbedder() (*llm.Embedder, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	return embedder, nil
}

// getModel initializes the extraction LLM on first use.
func getModel() (*llm.Model, error) {
	if model == nil {
		var err error
		model, err = llm.NewModel(cfg)
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
	}
	return model, nil
}

func newJobsStore() *jobs.Store {
	return jobs.NewStore(dbClient, logger, cfg.MaxAttempts, cfg.BackoffBase, cfg.BackoffCap)
}

func newContentStore() (*content.Store, error) {
	emb, err := getEmbedder()
	if err != nil {
		return nil, err
	}
	return content.NewStore(dbClient, emb, logger, cfg.WindowSize, cfg.WindowOverlap), nil
}

// newEngine wires the search engine. collector may be nil.
func newEngine(collector *metrics.Collector) (*search.Engine, error) {
	emb, err := getEmbedder()
	if err != nil {
		return nil, err
	}
	return search.NewEngine(search.NewDBIndex(dbClient), emb, collector, logger, cfg.SearchLimit, cfg.GraphBudget, cfg.ExpandTimeout), nil
}

// newWorker wires one extraction worker against the shared db client.
// collector may be nil.
func newWorker(id string, collector *metrics.Collector) (*worker.Worker, error) {
	store, err := newContentStore()
	if err != nil {
		return nil, err
	}
	m, err := getModel()
	if err != nil {
		return nil, err
	}
	resolver := resolve.NewResolver(resolve.NewDBRegistry(dbClient), nil, cfg.MatchThreshold, cfg.ReviewMargin, logger)
	extractor := extract.NewService(m, logger)
	return worker.New(
		id,
		newJobsStore(),
		store,
		extractor,
		resolver,
		worker.DBWriter{DB: dbClient},
		collector,
		logger,
		cfg.PollInterval,
		cfg.ClaimTimeout,
	), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
