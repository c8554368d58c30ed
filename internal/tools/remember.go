package tools

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dkaufhold/factgraph/internal/models"
)

// RememberInput defines the input schema for the remember tool.
type RememberInput struct {
	ContentID  string `json:"content_id" jsonschema:"required,Stable reference for the content item"`
	RevisionID string `json:"revision_id,omitempty" jsonschema:"Revision id; generated when omitted"`
	Source     string `json:"source,omitempty" jsonschema:"Where the text came from"`
	Text       string `json:"text" jsonschema:"required,The raw text to store and extract from"`
}

// RememberResult is the response from the remember tool.
type RememberResult struct {
	ContentID  string `json:"content_id"`
	RevisionID string `json:"revision_id"`
	Chunks     int    `json:"chunks"`
	JobID      string `json:"job_id,omitempty"`
	Skipped    string `json:"skipped,omitempty"`
}

// NewRememberHandler creates the remember tool handler. It stores the text
// as a new revision with embedded windows and enqueues an extraction job,
// unless the text is below the minimum extraction length.
func NewRememberHandler(deps *Dependencies) mcp.ToolHandlerFor[RememberInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RememberInput) (*mcp.CallToolResult, any, error) {
		if input.ContentID == "" {
			return ErrorResult("content_id is required", "Provide a stable reference for the content item"), nil, nil
		}
		if input.Text == "" {
			return ErrorResult("text is required", "Provide the text to store"), nil, nil
		}

		revisionID := input.RevisionID
		if revisionID == "" {
			revisionID = uuid.NewString()
		}
		var source *string
		if input.Source != "" {
			source = &input.Source
		}

		_, chunks, err := deps.Content.Save(ctx, input.ContentID, revisionID, source, input.Text)
		if err != nil {
			deps.Logger.Error("storing revision failed", "content_id", input.ContentID, "error", err)
			return ErrorResult("Failed to store content", "Database or embedding provider may be unavailable"), nil, nil
		}

		result := RememberResult{
			ContentID:  input.ContentID,
			RevisionID: revisionID,
			Chunks:     chunks,
		}

		if len(input.Text) < deps.MinExtractLength {
			result.Skipped = "text below minimum extraction length, stored without extraction"
		} else {
			job, err := deps.Jobs.Enqueue(ctx, input.ContentID, revisionID)
			if err != nil {
				deps.Logger.Error("enqueue failed", "content_id", input.ContentID, "error", err)
				return ErrorResult("Stored content but failed to enqueue extraction", "Retry with the reextract tool"), nil, nil
			}
			result.JobID = models.MustRecordIDString(job.ID)
		}

		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
