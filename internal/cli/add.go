package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dkaufhold/factgraph/internal/models"
)

var (
	addContentID string
	addRevision  string
	addSource    string
)

var addCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Store text and enqueue extraction",
	Long: `Store a text revision and enqueue an extraction job for it.
Reads from the given file, or from stdin when no file is given.

Examples:
  factgraph add notes.md --content-id standup-2026-08-30
  cat retro.txt | factgraph add --content-id retro-q3 --source "retro meeting"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addContentID, "content-id", "", "stable content identifier (required)")
	addCmd.Flags().StringVar(&addRevision, "revision", "", "revision id (generated if omitted)")
	addCmd.Flags().StringVar(&addSource, "source", "", "where the text came from")
	_ = addCmd.MarkFlagRequired("content-id")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if len(args) == 1 {
		raw, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}
	text := string(raw)
	if text == "" {
		return fmt.Errorf("no text to store")
	}

	revisionID := addRevision
	if revisionID == "" {
		revisionID = uuid.NewString()
	}
	var source *string
	if addSource != "" {
		source = &addSource
	}

	store, err := newContentStore()
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, chunks, err := store.Save(ctx, addContentID, revisionID, source, text)
	if err != nil {
		return fmt.Errorf("store content: %w", err)
	}
	fmt.Printf("Stored %s@%s (%d chunks)\n", addContentID, revisionID, chunks)

	if len(text) < cfg.MinExtractLength {
		fmt.Println("Text below minimum extraction length, no job enqueued")
		return nil
	}

	job, err := newJobsStore().Enqueue(ctx, addContentID, revisionID)
	if err != nil {
		return fmt.Errorf("enqueue extraction: %w", err)
	}
	fmt.Printf("Extraction job %s (%s)\n", models.MustRecordIDString(job.ID), job.Status)
	return nil
}
