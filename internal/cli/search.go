package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkaufhold/factgraph/internal/models"
	"github.com/dkaufhold/factgraph/internal/search"
)

var (
	searchLimit      int
	searchExpand     bool
	searchEntities   bool
	searchBudget     int
	searchCategories []string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored content and extracted events",
	Long: `Search stored content with hybrid vector + fulltext retrieval.
With --expand, follow the entities of the matching events to related
events elsewhere in the store.

Examples:
  factgraph search "budget approval"
  factgraph search "what did Alice decide" --expand
  factgraph search "rollout" --expand --categories decision,execution
  factgraph search "incident" --expand --entities --budget 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "max primary results (0 uses config)")
	searchCmd.Flags().BoolVarP(&searchExpand, "expand", "x", false, "expand through shared entities")
	searchCmd.Flags().BoolVar(&searchEntities, "entities", false, "include entity summary")
	searchCmd.Flags().IntVar(&searchBudget, "budget", 0, "max related events (0 uses config)")
	searchCmd.Flags().StringSliceVar(&searchCategories, "categories", nil, "restrict related events to categories")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	categories := make([]models.Category, 0, len(searchCategories))
	for _, raw := range searchCategories {
		cat, err := models.ParseCategory(raw)
		if err != nil {
			return err
		}
		categories = append(categories, cat)
	}

	engine, err := newEngine(nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SearchTimeout)
	defer cancel()

	resp, err := engine.Search(ctx, search.Request{
		Query:           query,
		Limit:           searchLimit,
		Expand:          searchExpand,
		IncludeEntities: searchEntities,
		GraphBudget:     searchBudget,
		Categories:      categories,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	for _, w := range resp.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	if len(resp.Primary) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(resp.Primary))
	for i, hit := range resp.Primary {
		fmt.Printf("%d. %s@%s (score %.4f)\n", i+1, hit.ContentID, hit.RevisionID, hit.Score)
		fmt.Printf("   %s\n\n", snippet(hit.Text, 160))
	}

	if len(resp.Events) > 0 {
		fmt.Printf("Events (%d):\n", len(resp.Events))
		for _, ev := range resp.Events {
			printEvent(ev)
		}
		fmt.Println()
	}

	if len(resp.Related) > 0 {
		fmt.Printf("Related (%d):\n", len(resp.Related))
		for _, ev := range resp.Related {
			printEvent(ev)
		}
		fmt.Println()
	}

	if len(resp.Entities) > 0 {
		fmt.Printf("Entities (%d):\n", len(resp.Entities))
		for _, e := range resp.Entities {
			flag := ""
			if e.NeedsReview {
				flag = " (needs review)"
			}
			fmt.Printf("  %s [%s] %d mentions%s\n", e.Name, e.Type, e.Mentions, flag)
		}
	}

	return nil
}

func printEvent(ev search.EventResult) {
	when := ""
	if ev.EventTime != nil {
		when = " " + ev.EventTime.Format(time.DateOnly)
	}
	fmt.Printf("  [%s]%s %s\n", ev.Category, when, snippet(ev.Narrative, 140))
	if ev.Reason != "" {
		fmt.Printf("    via %s\n", ev.Reason)
	}
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
