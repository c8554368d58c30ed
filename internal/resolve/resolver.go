// Package resolve binds actor/subject mentions to canonical entities. It is
// deliberately conservative: an uncertain match creates a flagged new entity
// instead of merging, because wrong merges create false connections in the
// retrieval graph and missed merges only fragment it.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dkaufhold/factgraph/internal/models"
)

// Registry is the entity persistence surface the resolver needs. The db
// client implements it; tests use an in-memory fake.
type Registry interface {
	// GetByNorm returns the entity with the exact normalized name, or nil.
	GetByNorm(ctx context.Context, normName string) (*models.Entity, error)
	// GetByAlias returns the entity holding the normalized form as an
	// alias, or nil.
	GetByAlias(ctx context.Context, normSurface string) (*models.Entity, error)
	// Candidates returns fuzzy match candidates for a surface form.
	Candidates(ctx context.Context, surface, normSurface string, limit int) ([]models.Entity, error)
	// Create inserts a new entity. On a concurrent-creation race it must
	// return the winner's row.
	Create(ctx context.Context, name, normName string, entityType models.EntityType, needsReview bool) (*models.Entity, error)
	// AddAlias records a surface form; adding a known alias is a no-op.
	AddAlias(ctx context.Context, entityID, surface, normSurface string) error
}

// Binding is the outcome of resolving one mention.
type Binding struct {
	Entity  models.Entity
	Surface string
	Role    models.Role
	Created bool
}

// Resolver matches mention strings against the canonical entity registry.
type Resolver struct {
	registry  Registry
	scorer    Scorer
	threshold float64
	margin    float64
	logger    *slog.Logger
}

// NewResolver creates a resolver. Matches scoring at or above threshold bind;
// a best score within margin below threshold flags the created entity for
// review.
func NewResolver(registry Registry, scorer Scorer, threshold, margin float64, logger *slog.Logger) *Resolver {
	if scorer == nil {
		scorer = LevenshteinScorer{}
	}
	return &Resolver{
		registry:  registry,
		scorer:    scorer,
		threshold: threshold,
		margin:    margin,
		logger:    logger,
	}
}

// ResolveMention binds one surface form to an entity, creating one if no
// existing entity matches well enough. Never deletes or reassigns existing
// entities.
func (r *Resolver) ResolveMention(ctx context.Context, surface string, role models.Role) (*Binding, error) {
	norm := Normalize(surface)
	if norm == "" {
		return nil, fmt.Errorf("empty mention")
	}

	// Exact canonical name.
	if entity, err := r.registry.GetByNorm(ctx, norm); err != nil {
		return nil, fmt.Errorf("resolve %q: %w", surface, err)
	} else if entity != nil {
		return &Binding{Entity: *entity, Surface: surface, Role: role}, nil
	}

	// Exact alias.
	if entity, err := r.registry.GetByAlias(ctx, norm); err != nil {
		return nil, fmt.Errorf("resolve %q: %w", surface, err)
	} else if entity != nil {
		return &Binding{Entity: *entity, Surface: surface, Role: role}, nil
	}

	candidates, err := r.registry.Candidates(ctx, surface, norm, 20)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", surface, err)
	}

	var best *models.Entity
	bestScore := -1.0
	for i := range candidates {
		score := r.scorer.Score(norm, candidates[i].NormName)
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}

	if best != nil && bestScore >= r.threshold {
		if err := r.registry.AddAlias(ctx, models.MustRecordIDString(best.ID), surface, norm); err != nil {
			return nil, fmt.Errorf("add alias %q: %w", surface, err)
		}
		r.logger.Debug("mention bound",
			"surface", surface,
			"entity", best.Name,
			"score", bestScore)
		return &Binding{Entity: *best, Surface: surface, Role: role}, nil
	}

	// No match cleared the threshold. A close-but-below best means the
	// merge decision is ambiguous; flag the new entity for human review.
	needsReview := best != nil && bestScore >= r.threshold-r.margin
	entity, err := r.registry.Create(ctx, strings.TrimSpace(surface), norm, guessType(norm), needsReview)
	if err != nil {
		return nil, fmt.Errorf("create entity %q: %w", surface, err)
	}
	if needsReview {
		r.logger.Info("ambiguous mention, entity flagged for review",
			"surface", surface,
			"closest", best.Name,
			"score", bestScore)
	}
	return &Binding{Entity: *entity, Surface: surface, Role: role, Created: true}, nil
}

// guessType picks an entity type from surface cues. Defaults to person.
func guessType(norm string) models.EntityType {
	switch {
	case strings.Contains(norm, "team") || strings.Contains(norm, "squad"):
		return models.EntityTeam
	case strings.HasSuffix(norm, " inc") || strings.HasSuffix(norm, " corp") ||
		strings.HasSuffix(norm, " llc") || strings.HasSuffix(norm, " gmbh") ||
		strings.HasSuffix(norm, " ltd"):
		return models.EntityOrganization
	default:
		return models.EntityPerson
	}
}
