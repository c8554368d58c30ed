// Package search answers queries: hybrid vector+keyword retrieval fused by
// RRF, one-hop graph expansion over shared entities, and an entity summary.
// It is read-only over the event graph.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/metrics"
	"github.com/dkaufhold/factgraph/internal/models"
)

// Embedder turns the query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the read surface of the store. The db client implements it; tests
// use fakes.
type Index interface {
	SearchChunksVector(ctx context.Context, embedding []float32, limit int) ([]db.ChunkHit, error)
	SearchChunksFulltext(ctx context.Context, query string, limit int) ([]db.ChunkHit, error)
	EventsForRevisions(ctx context.Context, keys []string) ([]models.SemanticEvent, error)
	EdgesForEvents(ctx context.Context, eventIDs []surrealmodels.RecordID) ([]db.InvolvesEdge, error)
	EdgesForEntities(ctx context.Context, entityIDs, exclude []surrealmodels.RecordID, cap int) ([]db.InvolvesEdge, error)
	EventsByIDs(ctx context.Context, ids []surrealmodels.RecordID) ([]models.SemanticEvent, error)
	EntitiesByIDs(ctx context.Context, ids []surrealmodels.RecordID) ([]models.Entity, error)
	MentionCounts(ctx context.Context, eventIDs []surrealmodels.RecordID) ([]db.MentionCount, error)
}

// Request is one search call.
type Request struct {
	Query           string
	Limit           int
	Expand          bool
	IncludeEntities bool
	GraphBudget     int
	Categories      []models.Category
}

// ChunkResult is one primary hit with its fused score.
type ChunkResult struct {
	ChunkID    string  `json:"chunk_id"`
	ContentID  string  `json:"content_id"`
	RevisionID string  `json:"revision_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// EventResult is one seed or related event. Reason is set on related events
// only and names the shared entity.
type EventResult struct {
	ID         string          `json:"id"`
	ContentID  string          `json:"content_id"`
	RevisionID string          `json:"revision_id"`
	Category   models.Category `json:"category"`
	Narrative  string          `json:"narrative"`
	Confidence float64         `json:"confidence"`
	EventTime  *time.Time      `json:"event_time,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// EntityResult is one entity touched by the answer, with its mention count
// across the returned events.
type EntityResult struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        models.EntityType `json:"type"`
	NeedsReview bool              `json:"needs_review,omitempty"`
	Mentions    int               `json:"mentions"`
}

// Response is one search answer. Warnings name degradations (vector search
// unavailable, expansion skipped) that did not fail the query.
type Response struct {
	Primary  []ChunkResult  `json:"primary"`
	Events   []EventResult  `json:"events,omitempty"`
	Related  []EventResult  `json:"related,omitempty"`
	Entities []EntityResult `json:"entities,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Engine runs searches against the store.
type Engine struct {
	index     Index
	embedder  Embedder
	collector *metrics.Collector
	logger    *slog.Logger

	defaultLimit  int
	defaultBudget int
	expandTimeout time.Duration
}

// NewEngine creates a retrieval engine. collector may be nil.
func NewEngine(index Index, embedder Embedder, collector *metrics.Collector, logger *slog.Logger, defaultLimit, defaultBudget int, expandTimeout time.Duration) *Engine {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if defaultBudget <= 0 {
		defaultBudget = 20
	}
	if expandTimeout <= 0 {
		expandTimeout = 5 * time.Second
	}
	return &Engine{
		index:         index,
		embedder:      embedder,
		collector:     collector,
		logger:        logger,
		defaultLimit:  defaultLimit,
		defaultBudget: defaultBudget,
		expandTimeout: expandTimeout,
	}
}

// Search runs the full pipeline. The primary retrieval failing entirely is
// an error; expansion failing degrades the response to primary results plus
// a warning.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}
	budget := req.GraphBudget
	if budget <= 0 {
		budget = e.defaultBudget
	}

	resp := &Response{}

	fused, err := e.primary(ctx, query, limit, resp)
	if err != nil {
		return nil, err
	}
	for _, f := range fused {
		resp.Primary = append(resp.Primary, ChunkResult{
			ChunkID:    f.ID,
			ContentID:  f.Hit.ContentID,
			RevisionID: f.Hit.RevisionID,
			Text:       f.Hit.Text,
			Score:      f.Fused,
		})
	}

	if !req.Expand {
		return resp, nil
	}

	expandCtx, cancel := context.WithTimeout(ctx, e.expandTimeout)
	defer cancel()
	if err := e.expand(expandCtx, fused, budget, req, resp); err != nil {
		e.logger.Warn("graph expansion degraded", "error", err)
		resp.Events = nil
		resp.Related = nil
		resp.Entities = nil
		resp.Warnings = append(resp.Warnings, "graph expansion unavailable, primary results only")
	}
	return resp, nil
}

// primary runs the hybrid retrieval. Either leg may fail as long as the
// other produces a ranked list; both failing fails the query.
func (e *Engine) primary(ctx context.Context, query string, limit int, resp *Response) ([]fusedHit, error) {
	var vecHits, ftsHits []db.ChunkHit
	var vecErr, ftsErr error

	started := time.Now()
	embedding, embErr := e.embedder.Embed(ctx, query)
	e.timing(metrics.OpEmbedding, time.Since(started))
	if embErr != nil {
		vecErr = fmt.Errorf("embed query: %w", embErr)
	} else {
		started = time.Now()
		vecHits, vecErr = e.index.SearchChunksVector(ctx, embedding, limit)
		e.timing(metrics.OpDBSearch, time.Since(started))
	}

	started = time.Now()
	ftsHits, ftsErr = e.index.SearchChunksFulltext(ctx, query, limit)
	e.timing(metrics.OpDBSearch, time.Since(started))

	if vecErr != nil && ftsErr != nil {
		kind := ErrRetrieval
		if errors.Is(vecErr, context.DeadlineExceeded) || errors.Is(ftsErr, context.DeadlineExceeded) {
			kind = ErrTimeout
		}
		return nil, fmt.Errorf("%w: vector: %v; fulltext: %v", kind, vecErr, ftsErr)
	}
	if vecErr != nil {
		e.logger.Warn("vector retrieval degraded to fulltext only", "error", vecErr)
		resp.Warnings = append(resp.Warnings, "vector search unavailable, keyword results only")
	}
	if ftsErr != nil {
		e.logger.Warn("fulltext retrieval degraded to vector only", "error", ftsErr)
		resp.Warnings = append(resp.Warnings, "keyword search unavailable, vector results only")
	}

	return fuseRRF(vecHits, ftsHits, limit), nil
}

// expand maps primary hits to seed events, collects their entities, and
// pulls other events sharing at least one of them.
func (e *Engine) expand(ctx context.Context, fused []fusedHit, budget int, req Request, resp *Response) error {
	seedKeys := make([]string, 0, len(fused))
	seenKey := make(map[string]bool)
	for _, f := range fused {
		key := f.Hit.RevKey()
		if !seenKey[key] {
			seenKey[key] = true
			seedKeys = append(seedKeys, key)
		}
	}

	seeds, err := e.index.EventsForRevisions(ctx, seedKeys)
	if err != nil {
		return fmt.Errorf("seed events: %w", err)
	}
	for _, ev := range seeds {
		resp.Events = append(resp.Events, eventResult(ev, ""))
	}
	if len(seeds) == 0 {
		return nil
	}

	seedIDs := make([]surrealmodels.RecordID, len(seeds))
	isSeed := make(map[surrealmodels.RecordID]bool, len(seeds))
	for i, ev := range seeds {
		seedIDs[i] = ev.ID
		isSeed[ev.ID] = true
	}

	seedEdges, err := e.index.EdgesForEvents(ctx, seedIDs)
	if err != nil {
		return fmt.Errorf("seed edges: %w", err)
	}
	var entityIDs []surrealmodels.RecordID
	seenEntity := make(map[surrealmodels.RecordID]bool)
	for _, edge := range seedEdges {
		if !seenEntity[edge.Out] {
			seenEntity[edge.Out] = true
			entityIDs = append(entityIDs, edge.Out)
		}
	}
	if len(entityIDs) == 0 {
		return nil
	}

	entities, err := e.index.EntitiesByIDs(ctx, entityIDs)
	if err != nil {
		return fmt.Errorf("seed entities: %w", err)
	}
	entityName := make(map[surrealmodels.RecordID]string, len(entities))
	for _, ent := range entities {
		entityName[ent.ID] = ent.Name
	}

	related, err := e.relatedEvents(ctx, entityIDs, seedIDs, isSeed, entityName, budget, req.Categories)
	if err != nil {
		return err
	}
	resp.Related = related

	if req.IncludeEntities {
		touched := make([]surrealmodels.RecordID, 0, len(seeds)+len(related))
		touched = append(touched, seedIDs...)
		for _, r := range related {
			touched = append(touched, surrealmodels.RecordID{Table: "event", ID: r.ID})
		}
		summary, err := e.entitySummary(ctx, touched)
		if err != nil {
			return err
		}
		resp.Entities = summary
	}
	return nil
}

// relatedEvents ranks non-seed events sharing entities with the seed set:
// more shared entities first, then more recent event time, then id.
func (e *Engine) relatedEvents(ctx context.Context, entityIDs, seedIDs []surrealmodels.RecordID, isSeed map[surrealmodels.RecordID]bool, entityName map[surrealmodels.RecordID]string, budget int, categories []models.Category) ([]EventResult, error) {
	// Fetch beyond the budget so category filtering cannot starve the
	// result set.
	edges, err := e.index.EdgesForEntities(ctx, entityIDs, seedIDs, budget*10)
	if err != nil {
		return nil, fmt.Errorf("expansion edges: %w", err)
	}

	shared := make(map[surrealmodels.RecordID]map[surrealmodels.RecordID]bool)
	for _, edge := range edges {
		if isSeed[edge.In] {
			continue
		}
		if shared[edge.In] == nil {
			shared[edge.In] = make(map[surrealmodels.RecordID]bool)
		}
		shared[edge.In][edge.Out] = true
	}
	if len(shared) == 0 {
		return nil, nil
	}

	candidateIDs := make([]surrealmodels.RecordID, 0, len(shared))
	for id := range shared {
		candidateIDs = append(candidateIDs, id)
	}
	events, err := e.index.EventsByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("expansion events: %w", err)
	}

	wantCategory := make(map[models.Category]bool, len(categories))
	for _, c := range categories {
		wantCategory[c] = true
	}

	type candidate struct {
		event  models.SemanticEvent
		count  int
		reason string
		id     string
	}
	var candidates []candidate
	for _, ev := range events {
		if len(wantCategory) > 0 && !wantCategory[ev.Category] {
			continue
		}
		names := make([]string, 0, len(shared[ev.ID]))
		for entID := range shared[ev.ID] {
			if name, ok := entityName[entID]; ok {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		candidates = append(candidates, candidate{
			event:  ev,
			count:  len(names),
			reason: "shared entity: " + names[0],
			id:     models.MustRecordIDString(ev.ID),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		ti, tj := candidates[i].event.EventTime, candidates[j].event.EventTime
		switch {
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.After(*tj)
		case ti != nil && tj == nil:
			return true
		case ti == nil && tj != nil:
			return false
		}
		return candidates[i].id < candidates[j].id
	})
	if len(candidates) > budget {
		candidates = candidates[:budget]
	}

	out := make([]EventResult, len(candidates))
	for i, c := range candidates {
		out[i] = eventResult(c.event, c.reason)
	}
	return out, nil
}

// entitySummary returns every entity mentioned by the touched events, with
// mention counts, most-mentioned first.
func (e *Engine) entitySummary(ctx context.Context, eventIDs []surrealmodels.RecordID) ([]EntityResult, error) {
	counts, err := e.index.MentionCounts(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("mention counts: %w", err)
	}
	if len(counts) == 0 {
		return nil, nil
	}

	ids := make([]surrealmodels.RecordID, len(counts))
	countByEntity := make(map[surrealmodels.RecordID]int, len(counts))
	for i, c := range counts {
		ids[i] = c.Entity
		countByEntity[c.Entity] = c.Count
	}
	entities, err := e.index.EntitiesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("summary entities: %w", err)
	}

	out := make([]EntityResult, len(entities))
	for i, ent := range entities {
		out[i] = EntityResult{
			ID:          models.MustRecordIDString(ent.ID),
			Name:        ent.Name,
			Type:        ent.Type,
			NeedsReview: ent.NeedsReview,
			Mentions:    countByEntity[ent.ID],
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func eventResult(ev models.SemanticEvent, reason string) EventResult {
	return EventResult{
		ID:         models.MustRecordIDString(ev.ID),
		ContentID:  ev.ContentID,
		RevisionID: ev.RevisionID,
		Category:   ev.Category,
		Narrative:  ev.Narrative,
		Confidence: ev.Confidence,
		EventTime:  ev.EventTime,
		Reason:     reason,
	}
}

func (e *Engine) timing(op string, d time.Duration) {
	if e.collector != nil {
		e.collector.RecordTiming(op, d)
	}
}
