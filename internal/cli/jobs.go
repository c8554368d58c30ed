package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkaufhold/factgraph/internal/models"
)

var (
	jobsStatus string
	jobsLimit  int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect extraction jobs",
	Long: `List extraction jobs or inspect a specific job by ID.

Examples:
  factgraph jobs                    # List recent jobs
  factgraph jobs --status failed    # List failed jobs
  factgraph jobs abc123             # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (pending, processing, done, failed)")
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "max jobs to list")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	var status *models.JobStatus
	if jobsStatus != "" {
		st, err := models.ParseJobStatus(jobsStatus)
		if err != nil {
			return err
		}
		status = &st
	}

	jobList, err := newJobsStore().List(ctx, status, jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobList) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-36s %-20s %-12s %-8s %s\n", "ID", "CONTENT", "STATUS", "ATTEMPTS", "CREATED")
	fmt.Println("--------------------------------------------------------------------------------------")
	for _, job := range jobList {
		fmt.Printf("%-36s %-20s %-12s %-8d %s\n",
			models.MustRecordIDString(job.ID),
			job.ContentID,
			job.Status,
			job.Attempts,
			job.CreatedAt.Format("15:04:05"),
		)
	}
	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := newJobsStore().Status(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", models.MustRecordIDString(job.ID))
	fmt.Printf("  Content: %s@%s\n", job.ContentID, job.RevisionID)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Attempts: %d\n", job.Attempts)
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.ClaimedAt != nil {
		fmt.Printf("  Claimed: %s\n", job.ClaimedAt.Format(time.RFC3339))
	}
	if job.Worker != nil {
		fmt.Printf("  Worker: %s\n", *job.Worker)
	}
	if job.Status == models.JobPending && job.NotBefore.After(time.Now()) {
		fmt.Printf("  Retry after: %s\n", job.NotBefore.Format(time.RFC3339))
	}
	if job.LastError != nil && *job.LastError != "" {
		fmt.Printf("  Last error: %s\n", *job.LastError)
	}
	return nil
}
