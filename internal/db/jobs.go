package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/dkaufhold/factgraph/internal/models"
)

// firstJob returns the first job row across per-statement results.
func firstJob(results *[]surrealdb.QueryResult[[]models.ExtractionJob]) *models.ExtractionJob {
	rows := firstNonEmpty(results)
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}

// QueryCreateJob inserts a pending job for (contentID, revisionID).
// Fails with ErrAlreadyExists if a job for the pair exists; callers handle
// idempotent re-enqueue on top of this.
func (c *Client) QueryCreateJob(ctx context.Context, contentID, revisionID string) (*models.ExtractionJob, error) {
	id := uuid.New().String()
	results, err := surrealdb.Query[[]models.ExtractionJob](ctx, c.db, `
		CREATE type::record("extraction_job", $id) CONTENT {
			content_id: $content_id,
			revision_id: $revision_id,
			status: "pending"
		}
	`, map[string]any{
		"id":          id,
		"content_id":  contentID,
		"revision_id": revisionID,
	})
	if err != nil {
		return nil, wrapQueryError(err)
	}

	job := firstJob(results)
	if job == nil {
		return nil, fmt.Errorf("create job: no result returned")
	}
	return job, nil
}

// QueryGetJobByRevision fetches the job for a (content, revision) pair.
// Returns nil if none exists.
func (c *Client) QueryGetJobByRevision(ctx context.Context, contentID, revisionID string) (*models.ExtractionJob, error) {
	results, err := surrealdb.Query[[]models.ExtractionJob](ctx, c.db, `
		SELECT * FROM extraction_job
		WHERE content_id = $content_id AND revision_id = $revision_id
		LIMIT 1
	`, map[string]any{"content_id": contentID, "revision_id": revisionID})
	if err != nil {
		return nil, fmt.Errorf("get job by revision: %w", err)
	}
	return firstJob(results), nil
}

// QueryResetJob re-arms a terminal job back to pending with a fresh retry
// budget. The status guard makes this a no-op when another caller already
// reset or re-claimed the row; in that case the current row is returned.
func (c *Client) QueryResetJob(ctx context.Context, jobID string) (*models.ExtractionJob, error) {
	results, err := surrealdb.Query[[]models.ExtractionJob](ctx, c.db, `
		UPDATE type::record("extraction_job", $id) SET
			status = "pending",
			attempts = 0,
			last_error = NONE,
			worker = NONE,
			claimed_at = NONE,
			not_before = time::now()
		WHERE status IN ["done", "failed"]
		RETURN AFTER
	`, map[string]any{"id": jobID})
	if err != nil {
		return nil, wrapQueryError(err)
	}

	if job := firstJob(results); job != nil {
		return job, nil
	}
	// Guard did not match; return whatever the row currently is.
	return c.QueryGetJob(ctx, jobID)
}

// QueryClaimNextJob atomically selects the oldest eligible pending job and
// transitions it to processing for workerID. Returns nil when nothing is
// claimable. The whole select-and-update runs as one transaction: a
// concurrent claimer for the same row loses with ErrTransactionConflict,
// which callers treat as "no job this round" rather than an error.
func (c *Client) QueryClaimNextJob(ctx context.Context, workerID string) (*models.ExtractionJob, error) {
	results, err := surrealdb.Query[[]models.ExtractionJob](ctx, c.db, `
		BEGIN TRANSACTION;
		LET $next = (
			SELECT VALUE id FROM extraction_job
			WHERE status = "pending" AND not_before <= time::now()
			ORDER BY created_at ASC
			LIMIT 1
		)[0];
		IF $next != NONE {
			UPDATE $next SET
				status = "processing",
				worker = $worker,
				claimed_at = time::now()
			WHERE status = "pending"
			RETURN AFTER
		} ELSE {
			[]
		};
		COMMIT TRANSACTION;
	`, map[string]any{"worker": workerID})
	if err != nil {
		return nil, wrapQueryError(err)
	}

	return firstJob(results), nil
}

// QueryCompleteJob marks a processing job done.
func (c *Client) QueryCompleteJob(ctx context.Context, jobID string) error {
	results, err := surrealdb.Query[[]models.ExtractionJob](ctx, c.db, `
		UPDATE type::record("extraction_job", $id) SET
			status = "done",
			worker = NONE
		RETURN AFTER
	`, map[string]any{"id": jobID})
	if err != nil {
		return wrapQueryError(err)
	}
	if firstJob(results) == nil {
		return fmt.Errorf("complete job %s: %w", jobID, ErrNotFound)
	}
	return nil
}

// QueryFailJob records a failed attempt. If the incremented attempt count is
// still under maxAttempts the job goes back to pending, not claimable before
// notBefore; otherwise it becomes terminally failed. Returns the updated job.
func (c *Client) QueryFailJob(ctx context.Context, jobID, errMsg string, maxAttempts int, notBefore time.Time) (*models.ExtractionJob, error) {
	results, err := surrealdb.Query[[]models.ExtractionJob](ctx, c.db, `
		BEGIN TRANSACTION;
		LET $job = (SELECT * FROM ONLY type::record("extraction_job", $id));
		IF $job == NONE {
			THROW "job not found"
		};
		LET $attempts = $job.attempts + 1;
		IF $attempts >= $max {
			UPDATE $job.id SET
				status = "failed",
				attempts = $attempts,
				last_error = $error,
				worker = NONE
			RETURN AFTER
		} ELSE {
			UPDATE $job.id SET
				status = "pending",
				attempts = $attempts,
				last_error = $error,
				worker = NONE,
				claimed_at = NONE,
				not_before = type::datetime($not_before)
			RETURN AFTER
		};
		COMMIT TRANSACTION;
	`, map[string]any{
		"id":         jobID,
		"error":      errMsg,
		"max":        maxAttempts,
		"not_before": notBefore.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, wrapQueryError(err)
	}

	job := firstJob(results)
	if job == nil {
		return nil, fmt.Errorf("fail job %s: %w", jobID, ErrNotFound)
	}
	return job, nil
}

// QueryGetJob fetches a job by id.
func (c *Client) QueryGetJob(ctx context.Context, jobID string) (*models.ExtractionJob, error) {
	results, err := surrealdb.Query[[]models.ExtractionJob](ctx, c.db, `
		SELECT * FROM type::record("extraction_job", $id)
	`, map[string]any{"id": jobID})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	job := firstJob(results)
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return job, nil
}

// QueryListJobs lists jobs, newest first, optionally filtered by status.
func (c *Client) QueryListJobs(ctx context.Context, status *models.JobStatus, limit int) ([]models.ExtractionJob, error) {
	if limit <= 0 {
		limit = 50
	}
	sql := `SELECT * FROM extraction_job ORDER BY created_at DESC LIMIT $limit`
	vars := map[string]any{"limit": limit}
	if status != nil {
		sql = `SELECT * FROM extraction_job WHERE status = $status ORDER BY created_at DESC LIMIT $limit`
		vars["status"] = string(*status)
	}

	results, err := surrealdb.Query[[]models.ExtractionJob](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.ExtractionJob{}, nil
	}
	return (*results)[0].Result, nil
}

