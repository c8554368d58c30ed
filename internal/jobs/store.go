// Package jobs provides the durable extraction job queue: enqueue, atomic
// claim, completion, and retry with exponential backoff.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/models"
)

// Store wraps the job queries with the retry/backoff policy.
type Store struct {
	db     *db.Client
	logger *slog.Logger

	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
}

// NewStore creates a job store.
func NewStore(client *db.Client, logger *slog.Logger, maxAttempts int, backoffBase, backoffCap time.Duration) *Store {
	return &Store{
		db:          client,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		backoffCap:  backoffCap,
	}
}

// Enqueue inserts a pending job for (contentID, revisionID). Idempotent: if a
// non-terminal job already exists it is returned as-is; a terminal job is
// reset to pending so re-extraction can run.
func (s *Store) Enqueue(ctx context.Context, contentID, revisionID string) (*models.ExtractionJob, error) {
	job, err := s.db.QueryCreateJob(ctx, contentID, revisionID)
	if err == nil {
		s.logger.Info("job enqueued", "job_id", models.MustRecordIDString(job.ID), "content_id", contentID, "revision_id", revisionID)
		return job, nil
	}
	if !errors.Is(err, db.ErrAlreadyExists) {
		return nil, fmt.Errorf("enqueue: %w", err)
	}

	existing, err := s.db.QueryGetJobByRevision(ctx, contentID, revisionID)
	if err != nil {
		return nil, fmt.Errorf("enqueue lookup: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("enqueue lookup: job for %s@%s vanished after create conflict", contentID, revisionID)
	}
	if !existing.Status.Terminal() {
		return existing, nil
	}

	reset, err := s.db.QueryResetJob(ctx, models.MustRecordIDString(existing.ID))
	if err != nil {
		return nil, fmt.Errorf("enqueue reset: %w", err)
	}
	s.logger.Info("job re-enqueued", "job_id", models.MustRecordIDString(reset.ID), "content_id", contentID, "revision_id", revisionID)
	return reset, nil
}

// ClaimNext atomically claims the oldest eligible pending job for workerID.
// Returns nil with no error when the queue is empty or another worker won the
// claim race this round.
func (s *Store) ClaimNext(ctx context.Context, workerID string) (*models.ExtractionJob, error) {
	job, err := s.db.QueryClaimNextJob(ctx, workerID)
	if err != nil {
		if errors.Is(err, db.ErrTransactionConflict) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim: %w", err)
	}
	return job, nil
}

// Complete marks a job done.
func (s *Store) Complete(ctx context.Context, jobID string) error {
	if err := s.db.QueryCompleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("complete: %w", err)
	}
	return nil
}

// Fail records one failed attempt. Below the attempt budget the job returns
// to pending with a backoff delay; at the budget it goes terminal failed.
// attempts is the job's count before this failure.
func (s *Store) Fail(ctx context.Context, jobID, errMsg string, attempts int) (*models.ExtractionJob, error) {
	notBefore := time.Now().UTC().Add(Backoff(s.backoffBase, s.backoffCap, attempts))
	job, err := s.db.QueryFailJob(ctx, jobID, errMsg, s.maxAttempts, notBefore)
	if err != nil {
		return nil, fmt.Errorf("fail: %w", err)
	}
	s.logger.Warn("job attempt failed",
		"job_id", jobID,
		"attempts", job.Attempts,
		"status", job.Status,
		"error", errMsg)
	return job, nil
}

// Status returns a job by id.
func (s *Store) Status(ctx context.Context, jobID string) (*models.ExtractionJob, error) {
	job, err := s.db.QueryGetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return job, nil
}

// List returns recent jobs, optionally filtered by status.
func (s *Store) List(ctx context.Context, status *models.JobStatus, limit int) ([]models.ExtractionJob, error) {
	list, err := s.db.QueryListJobs(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return list, nil
}

// Backoff returns min(base * 2^attempts, cap).
func Backoff(base, cap time.Duration, attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if base <= 0 {
		return 0
	}
	for i := 0; i < attempts; i++ {
		base *= 2
		if base >= cap || base < 0 {
			return cap
		}
	}
	if base > cap {
		return cap
	}
	return base
}
