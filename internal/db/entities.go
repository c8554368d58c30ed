package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/dkaufhold/factgraph/internal/models"
)

// firstNonEmpty scans per-statement results and returns the first non-empty
// result slice. Multi-statement queries (LET + RETURN) produce one slot per
// statement.
func firstNonEmpty[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil {
		return nil
	}
	for _, r := range *results {
		if len(r.Result) > 0 {
			return r.Result
		}
	}
	return nil
}

// QueryCreateEntity inserts a new canonical entity. The unique index on
// norm_name arbitrates concurrent creation of the same surface form: the
// loser gets ErrAlreadyExists and should re-read the winner's row via
// QueryGetEntityByNorm.
func (c *Client) QueryCreateEntity(ctx context.Context, name, normName string, entityType models.EntityType, needsReview bool) (*models.Entity, error) {
	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, `
		CREATE type::record("entity", $id) CONTENT {
			name: $name,
			norm_name: $norm_name,
			type: $type,
			needs_review: $needs_review
		}
	`, map[string]any{
		"id":           uuid.New().String(),
		"name":         name,
		"norm_name":    normName,
		"type":         string(entityType),
		"needs_review": needsReview,
	})
	if err != nil {
		return nil, wrapQueryError(err)
	}

	created := firstNonEmpty(results)
	if len(created) == 0 {
		return nil, fmt.Errorf("create entity: no result returned")
	}
	return &created[0], nil
}

// QueryGetEntityByNorm fetches the entity with the given normalized name.
// Returns nil if none exists.
func (c *Client) QueryGetEntityByNorm(ctx context.Context, normName string) (*models.Entity, error) {
	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, `
		SELECT * FROM entity WHERE norm_name = $norm LIMIT 1
	`, map[string]any{"norm": normName})
	if err != nil {
		return nil, fmt.Errorf("get entity by norm: %w", err)
	}

	found := firstNonEmpty(results)
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// QueryEntityCandidates returns match candidates for a mention: the exact
// normalized-name match, entities holding the normalized form as an alias,
// and fuzzy full-text matches on the canonical name. The resolver's scorer
// ranks these; the db only narrows.
func (c *Client) QueryEntityCandidates(ctx context.Context, surface, normSurface string, limit int) ([]models.Entity, error) {
	if limit <= 0 {
		limit = 20
	}
	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, `
		LET $exact = (SELECT * FROM entity WHERE norm_name = $norm);
		LET $alias_ids = (SELECT VALUE entity FROM alias WHERE norm_surface = $norm);
		LET $aliased = (SELECT * FROM entity WHERE id IN $alias_ids);
		LET $fuzzy = (SELECT * FROM entity WHERE name @0@ $surface LIMIT $limit);
		RETURN array::distinct(array::concat(array::concat($exact, $aliased), $fuzzy));
	`, map[string]any{
		"surface": surface,
		"norm":    normSurface,
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("entity candidates: %w", err)
	}
	return firstNonEmpty(results), nil
}

// QueryGetEntityByAliasNorm fetches the entity holding the normalized form
// as an alias. Returns nil if none does.
func (c *Client) QueryGetEntityByAliasNorm(ctx context.Context, normSurface string) (*models.Entity, error) {
	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, `
		LET $ids = (SELECT VALUE entity FROM alias WHERE norm_surface = $norm);
		SELECT * FROM entity WHERE id IN $ids LIMIT 1;
	`, map[string]any{"norm": normSurface})
	if err != nil {
		return nil, fmt.Errorf("get entity by alias: %w", err)
	}

	found := firstNonEmpty(results)
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// QueryAddAlias records a surface form for an entity. Adding a known alias
// is a no-op (the (entity, norm_surface) unique index absorbs duplicates).
func (c *Client) QueryAddAlias(ctx context.Context, entityID, surface, normSurface string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE alias CONTENT {
			entity: type::record("entity", $entity_id),
			surface: $surface,
			norm_surface: $norm_surface
		}
	`, map[string]any{
		"entity_id":    entityID,
		"surface":      surface,
		"norm_surface": normSurface,
	})
	if err != nil {
		wrapped := wrapQueryError(err)
		if errors.Is(wrapped, ErrAlreadyExists) {
			return nil
		}
		return wrapped
	}
	return nil
}

// QueryEntitiesByIDs fetches entities by record id.
func (c *Client) QueryEntitiesByIDs(ctx context.Context, ids []surrealmodels.RecordID) ([]models.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, `
		SELECT * FROM entity WHERE id IN $ids
	`, map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("entities by ids: %w", err)
	}
	return firstNonEmpty(results), nil
}

// QueryEntitiesNeedingReview lists flagged entities, oldest first, for the
// operator review surface.
func (c *Client) QueryEntitiesNeedingReview(ctx context.Context, limit int) ([]models.Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, `
		SELECT * FROM entity WHERE needs_review = true ORDER BY created_at ASC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("entities needing review: %w", err)
	}
	return firstNonEmpty(results), nil
}
