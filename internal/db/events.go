package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/dkaufhold/factgraph/internal/models"
)

// EventInput is one event plus its dependents, staged for the atomic
// replace. EventTime is RFC3339 or empty.
type EventInput struct {
	ID         string          `json:"id"`
	Category   string          `json:"category"`
	Narrative  string          `json:"narrative"`
	Confidence float64         `json:"confidence"`
	EventTime  string          `json:"event_time"`
	Evidence   []EvidenceInput `json:"evidence"`
	Mentions   []MentionInput  `json:"mentions"`
	Relations  []RelationInput `json:"relations"`
}

// EvidenceInput is one verified source span. Offsets are global.
type EvidenceInput struct {
	ChunkID   string `json:"chunk_id"`
	Quote     string `json:"quote"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// MentionInput records one resolved surface-form occurrence.
type MentionInput struct {
	EntityID string `json:"entity_id"`
	Surface  string `json:"surface"`
	Role     string `json:"role"`
}

// RelationInput is one deduplicated (entity, role) edge. Kept separate from
// mentions because two mentions of the same entity in the same role must not
// produce a duplicate edge (the involves unique key would abort the
// transaction).
type RelationInput struct {
	EntityID string `json:"entity_id"`
	Role     string `json:"role"`
}

// QueryReplaceEvents atomically replaces the event set of one revision:
// within a single transaction it deletes all previously persisted events,
// evidence, mentions, and relation edges for (contentID, revisionID), then
// inserts the new set. Readers never observe a partial set; the commit is
// the consistency point.
func (c *Client) QueryReplaceEvents(ctx context.Context, contentID, revisionID string, events []EventInput) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		BEGIN TRANSACTION;
		LET $old = (SELECT VALUE id FROM event WHERE content_id = $content_id AND revision_id = $revision_id);
		DELETE evidence WHERE event IN $old;
		DELETE mention WHERE event IN $old;
		DELETE involves WHERE in IN $old;
		DELETE event WHERE id IN $old;
		FOR $e IN $events {
			CREATE type::record("event", $e.id) CONTENT {
				content_id: $content_id,
				revision_id: $revision_id,
				category: $e.category,
				narrative: $e.narrative,
				confidence: $e.confidence,
				event_time: IF $e.event_time THEN type::datetime($e.event_time) ELSE NONE END
			};
			FOR $v IN $e.evidence {
				CREATE evidence CONTENT {
					event: type::record("event", $e.id),
					chunk_id: $v.chunk_id,
					quote: $v.quote,
					start_char: $v.start_char,
					end_char: $v.end_char
				};
			};
			FOR $m IN $e.mentions {
				CREATE mention CONTENT {
					entity: type::record("entity", $m.entity_id),
					event: type::record("event", $e.id),
					surface: $m.surface,
					role: $m.role
				};
			};
			FOR $r IN $e.relations {
				RELATE type::record("event", $e.id)->involves->type::record("entity", $r.entity_id)
					SET role = $r.role;
			};
		};
		COMMIT TRANSACTION;
	`, map[string]any{
		"content_id":  contentID,
		"revision_id": revisionID,
		"events":      events,
	})
	if err != nil {
		return wrapQueryError(err)
	}
	return nil
}

// QueryEventsForRevisions returns all events whose rev_key is in keys.
// A rev_key is "<content_id>@<revision_id>".
func (c *Client) QueryEventsForRevisions(ctx context.Context, keys []string) ([]models.SemanticEvent, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	results, err := surrealdb.Query[[]models.SemanticEvent](ctx, c.db, `
		SELECT * FROM event WHERE rev_key IN $keys
	`, map[string]any{"keys": keys})
	if err != nil {
		return nil, fmt.Errorf("events for revisions: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// InvolvesEdge is one event->entity edge with its role tag.
type InvolvesEdge struct {
	In   surrealmodels.RecordID `json:"in"`
	Out  surrealmodels.RecordID `json:"out"`
	Role models.Role            `json:"role"`
}

// QueryEdgesForEvents returns all involves edges originating at the given
// events.
func (c *Client) QueryEdgesForEvents(ctx context.Context, eventIDs []surrealmodels.RecordID) ([]InvolvesEdge, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	results, err := surrealdb.Query[[]InvolvesEdge](ctx, c.db, `
		SELECT in, out, role FROM involves WHERE in IN $events
	`, map[string]any{"events": eventIDs})
	if err != nil {
		return nil, fmt.Errorf("edges for events: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// QueryEdgesForEntities returns involves edges that touch any of the given
// entities, excluding edges whose event is in exclude. cap bounds the row
// count fetched for expansion ranking.
func (c *Client) QueryEdgesForEntities(ctx context.Context, entityIDs, exclude []surrealmodels.RecordID, cap int) ([]InvolvesEdge, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	if cap <= 0 {
		cap = 500
	}
	results, err := surrealdb.Query[[]InvolvesEdge](ctx, c.db, `
		SELECT in, out, role FROM involves
		WHERE out IN $entities AND in NOT IN $exclude
		LIMIT $cap
	`, map[string]any{"entities": entityIDs, "exclude": exclude, "cap": cap})
	if err != nil {
		return nil, fmt.Errorf("edges for entities: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// QueryEventsByIDs fetches events by record id.
func (c *Client) QueryEventsByIDs(ctx context.Context, ids []surrealmodels.RecordID) ([]models.SemanticEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	results, err := surrealdb.Query[[]models.SemanticEvent](ctx, c.db, `
		SELECT * FROM event WHERE id IN $ids
	`, map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("events by ids: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// MentionCount aggregates mention rows per entity.
type MentionCount struct {
	Entity surrealmodels.RecordID `json:"entity"`
	Count  int                    `json:"count"`
}

// QueryMentionCounts counts mentions per entity across the given events.
func (c *Client) QueryMentionCounts(ctx context.Context, eventIDs []surrealmodels.RecordID) ([]MentionCount, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	results, err := surrealdb.Query[[]MentionCount](ctx, c.db, `
		SELECT entity, count() AS count FROM mention
		WHERE event IN $events
		GROUP BY entity
	`, map[string]any{"events": eventIDs})
	if err != nil {
		return nil, fmt.Errorf("mention counts: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}
