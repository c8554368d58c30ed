package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/metrics"
	"github.com/dkaufhold/factgraph/internal/models"
)

// StatusInput defines the input schema for the job_status tool.
type StatusInput struct {
	JobID  string `json:"job_id,omitempty" jsonschema:"Look up a single job by id"`
	Status string `json:"status,omitempty" jsonschema:"List jobs with this status (pending, processing, done, failed)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum jobs to list (default 20)"`
}

// JobSummary is one job in a status response.
type JobSummary struct {
	ID         string           `json:"id"`
	ContentID  string           `json:"content_id"`
	RevisionID string           `json:"revision_id"`
	Status     models.JobStatus `json:"status"`
	Attempts   int              `json:"attempts"`
	LastError  *string          `json:"last_error,omitempty"`
	Worker     *string          `json:"worker,omitempty"`
}

// StatusResult is the response from the job_status tool.
type StatusResult struct {
	Jobs    []JobSummary      `json:"jobs"`
	Metrics *metrics.Snapshot `json:"metrics,omitempty"`
}

// NewStatusHandler creates the job_status tool handler. With a job_id it
// returns that job; otherwise it lists recent jobs, optionally filtered by
// status, and includes server metrics.
func NewStatusHandler(deps *Dependencies) mcp.ToolHandlerFor[StatusInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, any, error) {
		var result StatusResult

		if input.JobID != "" {
			job, err := deps.Jobs.Status(ctx, input.JobID)
			if err != nil {
				if errors.Is(err, db.ErrNotFound) {
					return ErrorResult(fmt.Sprintf("Job %q not found", input.JobID), "Check the id returned by remember or reextract"), nil, nil
				}
				deps.Logger.Error("job lookup failed", "job_id", input.JobID, "error", err)
				return ErrorResult("Failed to look up job", err.Error()), nil, nil
			}
			result.Jobs = []JobSummary{jobSummary(*job)}
		} else {
			var status *models.JobStatus
			if input.Status != "" {
				st, err := models.ParseJobStatus(input.Status)
				if err != nil {
					return ErrorResult(fmt.Sprintf("Unknown status %q", input.Status), "Valid statuses: pending, processing, done, failed"), nil, nil
				}
				status = &st
			}
			limit := input.Limit
			if limit <= 0 {
				limit = 20
			}
			jobs, err := deps.Jobs.List(ctx, status, limit)
			if err != nil {
				deps.Logger.Error("job list failed", "error", err)
				return ErrorResult("Failed to list jobs", err.Error()), nil, nil
			}
			result.Jobs = make([]JobSummary, 0, len(jobs))
			for _, j := range jobs {
				result.Jobs = append(result.Jobs, jobSummary(j))
			}
			if deps.Metrics != nil {
				snap := deps.Metrics.GetSnapshot()
				result.Metrics = &snap
			}
		}

		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}

func jobSummary(j models.ExtractionJob) JobSummary {
	return JobSummary{
		ID:         models.MustRecordIDString(j.ID),
		ContentID:  j.ContentID,
		RevisionID: j.RevisionID,
		Status:     j.Status,
		Attempts:   j.Attempts,
		LastError:  j.LastError,
		Worker:     j.Worker,
	}
}
