package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ChunkHit is one primary-retrieval result row with its raw score.
// Vector scores are cosine similarities; fulltext scores are BM25.
type ChunkHit struct {
	ID         surrealmodels.RecordID `json:"id"`
	ContentID  string                 `json:"content_id"`
	RevisionID string                 `json:"revision_id"`
	Seq        int                    `json:"seq"`
	Text       string                 `json:"text"`
	StartChar  int                    `json:"start_char"`
	EndChar    int                    `json:"end_char"`
	Score      float64                `json:"score"`
}

// RevKey returns the "<content_id>@<revision_id>" key used to join hits to
// their events.
func (h ChunkHit) RevKey() string {
	return h.ContentID + "@" + h.RevisionID
}

// QuerySearchChunksVector runs HNSW nearest-neighbour search over chunk
// embeddings. The KNN operator takes literal bounds, hence the Sprintf;
// ef=40 trades a little latency for recall.
func (c *Client) QuerySearchChunksVector(ctx context.Context, embedding []float32, limit int) ([]ChunkHit, error) {
	if limit <= 0 {
		limit = 10
	}
	sql := fmt.Sprintf(`
		SELECT id, content_id, revision_id, seq, text, start_char, end_char,
			vector::similarity::cosine(embedding, $emb) AS score
		FROM chunk
		WHERE embedding <|%d,40|> $emb
		ORDER BY score DESC
	`, limit)

	results, err := surrealdb.Query[[]ChunkHit](ctx, c.db, sql, map[string]any{"emb": embedding})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return firstNonEmpty(results), nil
}

// QuerySearchChunksFulltext runs BM25 keyword search over chunk text.
func (c *Client) QuerySearchChunksFulltext(ctx context.Context, query string, limit int) ([]ChunkHit, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := surrealdb.Query[[]ChunkHit](ctx, c.db, `
		SELECT id, content_id, revision_id, seq, text, start_char, end_char,
			search::score(0) AS score
		FROM chunk
		WHERE text @0@ $q
		ORDER BY score DESC
		LIMIT $limit
	`, map[string]any{"q": query, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("fulltext search: %w", err)
	}
	return firstNonEmpty(results), nil
}
