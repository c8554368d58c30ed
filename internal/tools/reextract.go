package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/models"
)

// ReextractInput defines the input schema for the reextract tool.
type ReextractInput struct {
	ContentID  string `json:"content_id" jsonschema:"required,Content item to re-extract"`
	RevisionID string `json:"revision_id" jsonschema:"required,Revision to re-extract"`
}

// ReextractResult is the response from the reextract tool.
type ReextractResult struct {
	JobID  string           `json:"job_id"`
	Status models.JobStatus `json:"status"`
}

// NewReextractHandler creates the reextract tool handler. Enqueueing is
// idempotent per revision: a non-terminal job is returned as-is, a terminal
// one is reset to pending.
func NewReextractHandler(deps *Dependencies) mcp.ToolHandlerFor[ReextractInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ReextractInput) (*mcp.CallToolResult, any, error) {
		if input.ContentID == "" || input.RevisionID == "" {
			return ErrorResult("content_id and revision_id are required", "Both identify the revision to re-extract"), nil, nil
		}

		if _, _, err := deps.Content.GetText(ctx, input.ContentID, input.RevisionID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return ErrorResult("Revision not found", "Store the content with remember first"), nil, nil
			}
			deps.Logger.Error("revision lookup failed", "content_id", input.ContentID, "error", err)
			return ErrorResult("Failed to look up revision", err.Error()), nil, nil
		}

		job, err := deps.Jobs.Enqueue(ctx, input.ContentID, input.RevisionID)
		if err != nil {
			deps.Logger.Error("enqueue failed", "content_id", input.ContentID, "error", err)
			return ErrorResult("Failed to enqueue extraction", err.Error()), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(ReextractResult{
			JobID:  models.MustRecordIDString(job.ID),
			Status: job.Status,
		}, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
