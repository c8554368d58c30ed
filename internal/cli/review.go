package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reviewLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List entities flagged for review",
	Long: `List entities the resolver created under ambiguity. These are names
that scored close to an existing entity but not close enough to bind,
so a new entity was created and flagged for a human decision.

Examples:
  factgraph review
  factgraph review --limit 100`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().IntVarP(&reviewLimit, "limit", "n", 50, "max entities to list")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	entities, err := dbClient.QueryEntitiesNeedingReview(ctx, reviewLimit)
	if err != nil {
		return fmt.Errorf("list entities: %w", err)
	}

	if len(entities) == 0 {
		fmt.Println("No entities need review")
		return nil
	}

	fmt.Printf("%d entities need review:\n\n", len(entities))
	for _, e := range entities {
		fmt.Printf("  %s [%s] created %s\n", e.Name, e.Type, e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
