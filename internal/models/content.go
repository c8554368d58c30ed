package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ContentRevision is one immutable version of a stored document or message.
type ContentRevision struct {
	ID         surrealmodels.RecordID `json:"id"`
	ContentID  string                 `json:"content_id"`
	RevisionID string                 `json:"revision_id"`
	Source     *string                `json:"source,omitempty"`
	Text       string                 `json:"text"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Chunk is a fixed-size overlapping window of a revision's text with known
// character offsets. Evidence spans and the retrieval indexes both reference
// chunks.
type Chunk struct {
	ID         surrealmodels.RecordID `json:"id"`
	ContentID  string                 `json:"content_id"`
	RevisionID string                 `json:"revision_id"`
	Seq        int                    `json:"seq"`
	Text       string                 `json:"text"`
	StartChar  int                    `json:"start_char"`
	EndChar    int                    `json:"end_char"`
	Embedding  []float32              `json:"embedding,omitempty"`
	CreatedAt  time.Time              `json:"created_at,omitempty"`
}
