package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/dkaufhold/factgraph/internal/models"
)

// ChunkInput is one window to persist alongside its embedding.
type ChunkInput struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Text      string    `json:"text"`
	StartChar int       `json:"start_char"`
	EndChar   int       `json:"end_char"`
	Embedding []float32 `json:"embedding"`
}

// QueryCreateRevision persists one immutable content revision.
// Fails with ErrAlreadyExists when the (content, revision) pair is taken.
func (c *Client) QueryCreateRevision(ctx context.Context, contentID, revisionID string, source *string, text string) (*models.ContentRevision, error) {
	results, err := surrealdb.Query[[]models.ContentRevision](ctx, c.db, `
		CREATE type::record("content", $id) CONTENT {
			content_id: $content_id,
			revision_id: $revision_id,
			source: $source,
			text: $text
		}
	`, map[string]any{
		"id":          uuid.New().String(),
		"content_id":  contentID,
		"revision_id": revisionID,
		"source":      source,
		"text":        text,
	})
	if err != nil {
		return nil, wrapQueryError(err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create revision: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryCreateChunks persists a revision's windows in one transaction.
func (c *Client) QueryCreateChunks(ctx context.Context, contentID, revisionID string, chunks []ChunkInput) error {
	if len(chunks) == 0 {
		return nil
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		BEGIN TRANSACTION;
		FOR $c IN $chunks {
			CREATE type::record("chunk", $c.id) CONTENT {
				content_id: $content_id,
				revision_id: $revision_id,
				seq: $c.seq,
				text: $c.text,
				start_char: $c.start_char,
				end_char: $c.end_char,
				embedding: $c.embedding
			};
		};
		COMMIT TRANSACTION;
	`, map[string]any{
		"content_id":  contentID,
		"revision_id": revisionID,
		"chunks":      chunks,
	})
	if err != nil {
		return wrapQueryError(err)
	}
	return nil
}

// QueryGetRevision returns a revision's full text and its chunks in window
// order. Chunk offsets are exactly those evidence spans reference.
func (c *Client) QueryGetRevision(ctx context.Context, contentID, revisionID string) (*models.ContentRevision, []models.Chunk, error) {
	revResults, err := surrealdb.Query[[]models.ContentRevision](ctx, c.db, `
		SELECT * FROM content
		WHERE content_id = $content_id AND revision_id = $revision_id
		LIMIT 1
	`, map[string]any{"content_id": contentID, "revision_id": revisionID})
	if err != nil {
		return nil, nil, fmt.Errorf("get revision: %w", err)
	}
	if revResults == nil || len(*revResults) == 0 || len((*revResults)[0].Result) == 0 {
		return nil, nil, fmt.Errorf("revision %s@%s: %w", contentID, revisionID, ErrNotFound)
	}
	rev := &(*revResults)[0].Result[0]

	chunkResults, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		SELECT id, content_id, revision_id, seq, text, start_char, end_char FROM chunk
		WHERE content_id = $content_id AND revision_id = $revision_id
		ORDER BY seq ASC
	`, map[string]any{"content_id": contentID, "revision_id": revisionID})
	if err != nil {
		return nil, nil, fmt.Errorf("get revision chunks: %w", err)
	}

	var chunks []models.Chunk
	if chunkResults != nil && len(*chunkResults) > 0 {
		chunks = (*chunkResults)[0].Result
	}
	return rev, chunks, nil
}

// QueryGetChunk fetches one chunk by id, without its embedding.
func (c *Client) QueryGetChunk(ctx context.Context, chunkID string) (*models.Chunk, error) {
	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		SELECT id, content_id, revision_id, seq, text, start_char, end_char
		FROM type::record("chunk", $id)
	`, map[string]any{"id": chunkID})
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}
