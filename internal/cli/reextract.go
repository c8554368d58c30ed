package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkaufhold/factgraph/internal/models"
)

var reextractCmd = &cobra.Command{
	Use:   "reextract <content-id> <revision-id>",
	Short: "Re-run extraction for a stored revision",
	Long: `Enqueue a fresh extraction run for an already stored revision.
The revision's previous events are replaced atomically when the job
completes. A revision with a job already in flight is left untouched.

Examples:
  factgraph reextract standup-2026-08-30 9f3c...`,
	Args: cobra.ExactArgs(2),
	RunE: runReextract,
}

func init() {
	rootCmd.AddCommand(reextractCmd)
}

func runReextract(cmd *cobra.Command, args []string) error {
	contentID, revisionID := args[0], args[1]
	ctx := context.Background()

	if _, _, err := dbClient.QueryGetRevision(ctx, contentID, revisionID); err != nil {
		return fmt.Errorf("look up revision: %w", err)
	}

	job, err := newJobsStore().Enqueue(ctx, contentID, revisionID)
	if err != nil {
		return fmt.Errorf("enqueue extraction: %w", err)
	}

	fmt.Printf("Extraction job %s (%s)\n", models.MustRecordIDString(job.ID), job.Status)
	return nil
}
