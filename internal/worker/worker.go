// Package worker runs the extraction pipeline: it polls the job queue,
// claims one job at a time, extracts events, resolves mentions, and persists
// the result as an atomic replace.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/extract"
	"github.com/dkaufhold/factgraph/internal/metrics"
	"github.com/dkaufhold/factgraph/internal/models"
	"github.com/dkaufhold/factgraph/internal/resolve"
)

// JobQueue is the job store surface the worker drives.
type JobQueue interface {
	ClaimNext(ctx context.Context, workerID string) (*models.ExtractionJob, error)
	Complete(ctx context.Context, jobID string) error
	Fail(ctx context.Context, jobID, errMsg string, attempts int) (*models.ExtractionJob, error)
}

// ContentSource provides revision text and its chunks.
type ContentSource interface {
	GetText(ctx context.Context, contentID, revisionID string) (string, []models.Chunk, error)
}

// Extractor produces candidate events from windows.
type Extractor interface {
	Extract(ctx context.Context, windows []extract.Window) ([]extract.Candidate, error)
}

// MentionResolver binds one mention to an entity.
type MentionResolver interface {
	ResolveMention(ctx context.Context, surface string, role models.Role) (*resolve.Binding, error)
}

// EventWriter persists one revision's event set atomically.
type EventWriter interface {
	ReplaceEvents(ctx context.Context, contentID, revisionID string, events []db.EventInput) error
}

// Worker is one polling extraction loop. One job is in flight per worker;
// multiple workers may poll the same queue concurrently.
type Worker struct {
	id        string
	queue     JobQueue
	content   ContentSource
	extractor Extractor
	resolver  MentionResolver
	writer    EventWriter
	collector *metrics.Collector
	logger    *slog.Logger

	pollInterval time.Duration
	claimTimeout time.Duration
}

// New creates a worker. collector may be nil.
func New(id string, queue JobQueue, content ContentSource, extractor Extractor, resolver MentionResolver, writer EventWriter, collector *metrics.Collector, logger *slog.Logger, pollInterval, claimTimeout time.Duration) *Worker {
	return &Worker{
		id:           id,
		queue:        queue,
		content:      content,
		extractor:    extractor,
		resolver:     resolver,
		writer:       writer,
		collector:    collector,
		logger:       logger.With("worker", id),
		pollInterval: pollInterval,
		claimTimeout: claimTimeout,
	}
}

// Run polls until ctx is cancelled. Claim errors are logged and retried on
// the next poll; they never stop the loop.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", "poll_interval", w.pollInterval)
	for {
		job, err := w.claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.logger.Error("claim failed", "error", err)
			job = nil
		}

		if job != nil {
			w.processJob(ctx, job)
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		case <-time.After(w.pollInterval):
		}
	}
	w.logger.Info("worker stopped")
}

func (w *Worker) claim(ctx context.Context) (*models.ExtractionJob, error) {
	claimCtx, cancel := context.WithTimeout(ctx, w.claimTimeout)
	defer cancel()
	return w.queue.ClaimNext(claimCtx, w.id)
}

// processJob drives one claimed job through extraction, resolution, and the
// atomic persist. Any step failing records the attempt via the queue's
// backoff policy.
func (w *Worker) processJob(ctx context.Context, job *models.ExtractionJob) {
	jobID := models.MustRecordIDString(job.ID)
	logger := w.logger.With("job_id", jobID, "content_id", job.ContentID, "revision_id", job.RevisionID)
	logger.Info("job claimed", "attempts", job.Attempts)

	events, err := w.runPipeline(ctx, job, logger)
	if err != nil {
		w.count(metrics.CounterJobsFailed, 1)
		if _, failErr := w.queue.Fail(ctx, jobID, err.Error(), job.Attempts); failErr != nil {
			logger.Error("recording job failure failed", "error", failErr, "cause", err)
		}
		return
	}

	if err := w.queue.Complete(ctx, jobID); err != nil {
		logger.Error("recording job completion failed", "error", err)
		return
	}
	w.count(metrics.CounterJobsCompleted, 1)
	w.count(metrics.CounterEventsExtracted, int64(len(events)))
	logger.Info("job done", "events", len(events))
}

func (w *Worker) runPipeline(ctx context.Context, job *models.ExtractionJob, logger *slog.Logger) ([]db.EventInput, error) {
	_, chunks, err := w.content.GetText(ctx, job.ContentID, job.RevisionID)
	if err != nil {
		return nil, fmt.Errorf("fetch text: %w", err)
	}

	windows := make([]extract.Window, len(chunks))
	for i, c := range chunks {
		windows[i] = extract.Window{
			ChunkID:   models.MustRecordIDString(c.ID),
			Text:      c.Text,
			StartChar: c.StartChar,
			EndChar:   c.EndChar,
		}
	}

	started := time.Now()
	candidates, err := w.extractor.Extract(ctx, windows)
	w.timing(metrics.OpLLMExtract, time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	events, err := w.resolveCandidates(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	started = time.Now()
	err = w.writer.ReplaceEvents(ctx, job.ContentID, job.RevisionID, events)
	w.timing(metrics.OpDBQuery, time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}

	logger.Debug("event set replaced", "events", len(events), "windows", len(windows))
	return events, nil
}

// resolveCandidates binds every actor/subject mention and assembles the
// persistence inputs. Relation edges are deduplicated per (entity, role).
func (w *Worker) resolveCandidates(ctx context.Context, candidates []extract.Candidate) ([]db.EventInput, error) {
	events := make([]db.EventInput, 0, len(candidates))
	for _, c := range candidates {
		input := db.EventInput{
			ID:         uuid.NewString(),
			Category:   string(c.Category),
			Narrative:  c.Narrative,
			Confidence: c.Confidence,
		}
		if c.EventTime != nil {
			input.EventTime = c.EventTime.UTC().Format(time.RFC3339Nano)
		}
		for _, span := range c.Evidence {
			input.Evidence = append(input.Evidence, db.EvidenceInput{
				ChunkID:   span.ChunkID,
				Quote:     span.Quote,
				StartChar: span.StartChar,
				EndChar:   span.EndChar,
			})
		}

		seenEdge := make(map[string]bool)
		addMention := func(surface string, role models.Role) error {
			binding, err := w.resolver.ResolveMention(ctx, surface, role)
			if err != nil {
				return err
			}
			entityID := models.MustRecordIDString(binding.Entity.ID)
			input.Mentions = append(input.Mentions, db.MentionInput{
				EntityID: entityID,
				Surface:  surface,
				Role:     string(role),
			})
			edge := entityID + "|" + string(role)
			if !seenEdge[edge] {
				seenEdge[edge] = true
				input.Relations = append(input.Relations, db.RelationInput{
					EntityID: entityID,
					Role:     string(role),
				})
			}
			return nil
		}

		for _, actor := range c.Actors {
			if err := addMention(actor, models.RoleActor); err != nil {
				return nil, err
			}
		}
		for _, subject := range c.Subjects {
			if err := addMention(subject, models.RoleSubject); err != nil {
				return nil, err
			}
		}
		events = append(events, input)
	}
	return events, nil
}

// DBWriter adapts the db client to EventWriter.
type DBWriter struct {
	DB *db.Client
}

func (d DBWriter) ReplaceEvents(ctx context.Context, contentID, revisionID string, events []db.EventInput) error {
	return d.DB.QueryReplaceEvents(ctx, contentID, revisionID, events)
}

func (w *Worker) timing(op string, d time.Duration) {
	if w.collector != nil {
		w.collector.RecordTiming(op, d)
	}
}

func (w *Worker) count(counter string, delta int64) {
	if w.collector != nil {
		w.collector.Add(counter, delta)
	}
}
