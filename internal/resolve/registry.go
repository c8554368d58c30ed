package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/models"
)

// DBRegistry adapts the SurrealDB client to the Registry interface.
type DBRegistry struct {
	db *db.Client
}

// NewDBRegistry wraps a db client.
func NewDBRegistry(client *db.Client) *DBRegistry {
	return &DBRegistry{db: client}
}

func (r *DBRegistry) GetByNorm(ctx context.Context, normName string) (*models.Entity, error) {
	return r.db.QueryGetEntityByNorm(ctx, normName)
}

func (r *DBRegistry) GetByAlias(ctx context.Context, normSurface string) (*models.Entity, error) {
	return r.db.QueryGetEntityByAliasNorm(ctx, normSurface)
}

func (r *DBRegistry) Candidates(ctx context.Context, surface, normSurface string, limit int) ([]models.Entity, error) {
	return r.db.QueryEntityCandidates(ctx, surface, normSurface, limit)
}

// Create inserts an entity. When two workers race on the same normalized
// name, the unique index rejects the loser, which re-reads the winner's row.
func (r *DBRegistry) Create(ctx context.Context, name, normName string, entityType models.EntityType, needsReview bool) (*models.Entity, error) {
	entity, err := r.db.QueryCreateEntity(ctx, name, normName, entityType, needsReview)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, db.ErrAlreadyExists) {
		return nil, err
	}
	winner, readErr := r.db.QueryGetEntityByNorm(ctx, normName)
	if readErr != nil {
		return nil, readErr
	}
	if winner == nil {
		return nil, fmt.Errorf("entity %q: create raced but winner not found", normName)
	}
	return winner, nil
}

func (r *DBRegistry) AddAlias(ctx context.Context, entityID, surface, normSurface string) error {
	return r.db.QueryAddAlias(ctx, entityID, surface, normSurface)
}
