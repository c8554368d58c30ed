package search

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/models"
)

// DBIndex adapts the SurrealDB client to the Index interface.
type DBIndex struct {
	db *db.Client
}

// NewDBIndex wraps a db client.
func NewDBIndex(client *db.Client) *DBIndex {
	return &DBIndex{db: client}
}

func (i *DBIndex) SearchChunksVector(ctx context.Context, embedding []float32, limit int) ([]db.ChunkHit, error) {
	return i.db.QuerySearchChunksVector(ctx, embedding, limit)
}

func (i *DBIndex) SearchChunksFulltext(ctx context.Context, query string, limit int) ([]db.ChunkHit, error) {
	return i.db.QuerySearchChunksFulltext(ctx, query, limit)
}

func (i *DBIndex) EventsForRevisions(ctx context.Context, keys []string) ([]models.SemanticEvent, error) {
	return i.db.QueryEventsForRevisions(ctx, keys)
}

func (i *DBIndex) EdgesForEvents(ctx context.Context, eventIDs []surrealmodels.RecordID) ([]db.InvolvesEdge, error) {
	return i.db.QueryEdgesForEvents(ctx, eventIDs)
}

func (i *DBIndex) EdgesForEntities(ctx context.Context, entityIDs, exclude []surrealmodels.RecordID, cap int) ([]db.InvolvesEdge, error) {
	return i.db.QueryEdgesForEntities(ctx, entityIDs, exclude, cap)
}

func (i *DBIndex) EventsByIDs(ctx context.Context, ids []surrealmodels.RecordID) ([]models.SemanticEvent, error) {
	return i.db.QueryEventsByIDs(ctx, ids)
}

func (i *DBIndex) EntitiesByIDs(ctx context.Context, ids []surrealmodels.RecordID) ([]models.Entity, error) {
	return i.db.QueryEntitiesByIDs(ctx, ids)
}

func (i *DBIndex) MentionCounts(ctx context.Context, eventIDs []surrealmodels.RecordID) ([]db.MentionCount, error) {
	return i.db.QueryMentionCounts(ctx, eventIDs)
}
