package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/models"
)

func rid(table, id string) surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: table, ID: id}
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type mention struct {
	event  surrealmodels.RecordID
	entity surrealmodels.RecordID
}

type fakeIndex struct {
	vec    []db.ChunkHit
	fts    []db.ChunkHit
	vecErr error
	ftsErr error

	events   []models.SemanticEvent
	edges    []db.InvolvesEdge
	entities map[surrealmodels.RecordID]models.Entity
	mentions []mention

	edgesErr error
}

func (f *fakeIndex) SearchChunksVector(_ context.Context, _ []float32, _ int) ([]db.ChunkHit, error) {
	return f.vec, f.vecErr
}

func (f *fakeIndex) SearchChunksFulltext(_ context.Context, _ string, _ int) ([]db.ChunkHit, error) {
	return f.fts, f.ftsErr
}

func (f *fakeIndex) EventsForRevisions(_ context.Context, keys []string) ([]models.SemanticEvent, error) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var out []models.SemanticEvent
	for _, ev := range f.events {
		if want[ev.ContentID+"@"+ev.RevisionID] {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeIndex) EdgesForEvents(_ context.Context, eventIDs []surrealmodels.RecordID) ([]db.InvolvesEdge, error) {
	if f.edgesErr != nil {
		return nil, f.edgesErr
	}
	want := make(map[surrealmodels.RecordID]bool, len(eventIDs))
	for _, id := range eventIDs {
		want[id] = true
	}
	var out []db.InvolvesEdge
	for _, e := range f.edges {
		if want[e.In] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeIndex) EdgesForEntities(_ context.Context, entityIDs, exclude []surrealmodels.RecordID, cap int) ([]db.InvolvesEdge, error) {
	wantEntity := make(map[surrealmodels.RecordID]bool, len(entityIDs))
	for _, id := range entityIDs {
		wantEntity[id] = true
	}
	excluded := make(map[surrealmodels.RecordID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	var out []db.InvolvesEdge
	for _, e := range f.edges {
		if wantEntity[e.Out] && !excluded[e.In] && len(out) < cap {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeIndex) EventsByIDs(_ context.Context, ids []surrealmodels.RecordID) ([]models.SemanticEvent, error) {
	want := make(map[surrealmodels.RecordID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.SemanticEvent
	for _, ev := range f.events {
		if want[ev.ID] {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeIndex) EntitiesByIDs(_ context.Context, ids []surrealmodels.RecordID) ([]models.Entity, error) {
	var out []models.Entity
	for _, id := range ids {
		if ent, ok := f.entities[id]; ok {
			out = append(out, ent)
		}
	}
	return out, nil
}

func (f *fakeIndex) MentionCounts(_ context.Context, eventIDs []surrealmodels.RecordID) ([]db.MentionCount, error) {
	want := make(map[surrealmodels.RecordID]bool, len(eventIDs))
	for _, id := range eventIDs {
		want[id] = true
	}
	counts := make(map[surrealmodels.RecordID]int)
	for _, m := range f.mentions {
		if want[m.event] {
			counts[m.entity]++
		}
	}
	var out []db.MentionCount
	for entity, count := range counts {
		out = append(out, db.MentionCount{Entity: entity, Count: count})
	}
	return out, nil
}

// sharedActorIndex builds the canonical expansion fixture: one matched chunk
// whose seed event's actor also appears in two other events.
func sharedActorIndex() *fakeIndex {
	alice := rid("entity", "ea")
	ev1, ev2, ev3 := rid("event", "ev1"), rid("event", "ev2"), rid("event", "ev3")
	t2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	chunk := db.ChunkHit{
		ID:         rid("chunk", "c1"),
		ContentID:  "doc-1",
		RevisionID: "r1",
		Text:       "Alice approved the budget.",
		Score:      0.92,
	}

	return &fakeIndex{
		vec: []db.ChunkHit{chunk},
		fts: []db.ChunkHit{chunk},
		events: []models.SemanticEvent{
			{ID: ev1, ContentID: "doc-1", RevisionID: "r1", Category: models.CategoryDecision, Narrative: "Alice approved the budget", Confidence: 0.9},
			{ID: ev2, ContentID: "doc-2", RevisionID: "r1", Category: models.CategoryExecution, Narrative: "Alice shipped the rollout", Confidence: 0.8, EventTime: &t2},
			{ID: ev3, ContentID: "doc-3", RevisionID: "r1", Category: models.CategoryFeedback, Narrative: "Alice reviewed the design", Confidence: 0.7, EventTime: &t3},
		},
		edges: []db.InvolvesEdge{
			{In: ev1, Out: alice, Role: models.RoleActor},
			{In: ev2, Out: alice, Role: models.RoleActor},
			{In: ev3, Out: alice, Role: models.RoleActor},
		},
		entities: map[surrealmodels.RecordID]models.Entity{
			alice: {ID: alice, Name: "Alice Chen", NormName: "alice chen", Type: models.EntityPerson},
		},
		mentions: []mention{
			{event: ev1, entity: alice},
			{event: ev2, entity: alice},
			{event: ev3, entity: alice},
		},
	}
}

func newTestEngine(index Index, embedder Embedder) *Engine {
	return NewEngine(index, embedder, nil, slog.New(slog.DiscardHandler), 10, 20, time.Second)
}

func TestSearch_EmptyQuery(t *testing.T) {
	e := newTestEngine(&fakeIndex{}, &fakeEmbedder{})

	_, err := e.Search(context.Background(), Request{Query: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSearch_PrimaryOnly(t *testing.T) {
	e := newTestEngine(sharedActorIndex(), &fakeEmbedder{})

	resp, err := e.Search(context.Background(), Request{Query: "budget approval"})
	require.NoError(t, err)
	require.Len(t, resp.Primary, 1)
	assert.Equal(t, "c1", resp.Primary[0].ChunkID)
	assert.Equal(t, "doc-1", resp.Primary[0].ContentID)

	// expand=false skips every graph step.
	assert.Empty(t, resp.Events)
	assert.Empty(t, resp.Related)
	assert.Empty(t, resp.Entities)
}

func TestSearch_SharedActorExpansion(t *testing.T) {
	e := newTestEngine(sharedActorIndex(), &fakeEmbedder{})

	resp, err := e.Search(context.Background(), Request{
		Query:           "budget approval",
		Expand:          true,
		IncludeEntities: true,
	})
	require.NoError(t, err)

	require.Len(t, resp.Events, 1)
	assert.Equal(t, "ev1", resp.Events[0].ID)

	// The actor appears in exactly two other events; both come back,
	// most recent first, each naming the shared actor.
	require.Len(t, resp.Related, 2)
	assert.Equal(t, "ev3", resp.Related[0].ID)
	assert.Equal(t, "ev2", resp.Related[1].ID)
	for _, r := range resp.Related {
		assert.Equal(t, "shared entity: Alice Chen", r.Reason)
	}

	require.Len(t, resp.Entities, 1)
	assert.Equal(t, "Alice Chen", resp.Entities[0].Name)
	assert.Equal(t, 3, resp.Entities[0].Mentions)
}

func TestSearch_EntitiesOnlyOnRequest(t *testing.T) {
	e := newTestEngine(sharedActorIndex(), &fakeEmbedder{})

	resp, err := e.Search(context.Background(), Request{Query: "budget", Expand: true})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Related)
	assert.Empty(t, resp.Entities)
}

func TestSearch_CategoryFilter(t *testing.T) {
	e := newTestEngine(sharedActorIndex(), &fakeEmbedder{})

	resp, err := e.Search(context.Background(), Request{
		Query:      "budget",
		Expand:     true,
		Categories: []models.Category{models.CategoryExecution},
	})
	require.NoError(t, err)
	require.Len(t, resp.Related, 1)
	assert.Equal(t, "ev2", resp.Related[0].ID)
}

func TestSearch_GraphBudget(t *testing.T) {
	e := newTestEngine(sharedActorIndex(), &fakeEmbedder{})

	resp, err := e.Search(context.Background(), Request{
		Query:       "budget",
		Expand:      true,
		GraphBudget: 1,
	})
	require.NoError(t, err)
	require.Len(t, resp.Related, 1)
	assert.Equal(t, "ev3", resp.Related[0].ID)
}

func TestSearch_EmbeddingFailureDegrades(t *testing.T) {
	index := sharedActorIndex()
	e := newTestEngine(index, &fakeEmbedder{err: fmt.Errorf("provider down")})

	resp, err := e.Search(context.Background(), Request{Query: "budget"})
	require.NoError(t, err)
	require.Len(t, resp.Primary, 1)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "vector search unavailable")
}

func TestSearch_BothLegsFail(t *testing.T) {
	index := &fakeIndex{vecErr: fmt.Errorf("down"), ftsErr: fmt.Errorf("down")}
	e := newTestEngine(index, &fakeEmbedder{})

	_, err := e.Search(context.Background(), Request{Query: "budget"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrieval)
}

func TestSearch_PrimaryTimeout(t *testing.T) {
	index := &fakeIndex{
		vecErr: fmt.Errorf("vector: %w", context.DeadlineExceeded),
		ftsErr: fmt.Errorf("fulltext: %w", context.DeadlineExceeded),
	}
	e := newTestEngine(index, &fakeEmbedder{})

	_, err := e.Search(context.Background(), Request{Query: "budget"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSearch_ExpansionFailureDegrades(t *testing.T) {
	index := sharedActorIndex()
	index.edgesErr = errors.New("graph unavailable")
	e := newTestEngine(index, &fakeEmbedder{})

	resp, err := e.Search(context.Background(), Request{Query: "budget", Expand: true})
	require.NoError(t, err)
	require.Len(t, resp.Primary, 1)
	assert.Empty(t, resp.Related)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "expansion unavailable")
}

func TestSearch_NoSeedEvents(t *testing.T) {
	index := sharedActorIndex()
	index.events = nil
	e := newTestEngine(index, &fakeEmbedder{})

	resp, err := e.Search(context.Background(), Request{Query: "budget", Expand: true, IncludeEntities: true})
	require.NoError(t, err)
	require.Len(t, resp.Primary, 1)
	assert.Empty(t, resp.Events)
	assert.Empty(t, resp.Related)
	assert.Empty(t, resp.Entities)
	assert.Empty(t, resp.Warnings)
}
