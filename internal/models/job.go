// Package models defines the persisted data structures of the factgraph store.
package models

import (
	"fmt"
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStatus is the lifecycle state of an extraction job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// JobStatuses lists every valid job status, in lifecycle order.
var JobStatuses = []JobStatus{JobPending, JobProcessing, JobDone, JobFailed}

// ParseJobStatus maps a free-form status label to its canonical value.
func ParseJobStatus(s string) (JobStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, st := range JobStatuses {
		if norm == string(st) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// Terminal reports whether the status admits no further transitions.
// A failed job is only terminal once its retry budget is exhausted;
// before that the store re-enqueues it as pending.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// ExtractionJob is one durable extraction task, keyed by (content, revision).
// At most one worker holds a processing job at any time; the claim query in
// internal/db enforces that.
type ExtractionJob struct {
	ID         surrealmodels.RecordID `json:"id"`
	ContentID  string                 `json:"content_id"`
	RevisionID string                 `json:"revision_id"`
	Status     JobStatus              `json:"status"`
	Attempts   int                    `json:"attempts"`
	LastError  *string                `json:"last_error,omitempty"`
	Worker     *string                `json:"worker,omitempty"`
	NotBefore  time.Time              `json:"not_before"`
	CreatedAt  time.Time              `json:"created_at"`
	ClaimedAt  *time.Time             `json:"claimed_at,omitempty"`
}
