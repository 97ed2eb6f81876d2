// Package store holds enrichment job state.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = eris.New("store: job not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines job state operations. Implementations must be safe for
// concurrent use by any number of goroutines.
type Store interface {
	// CreateJob allocates a PENDING job expecting total results.
	CreateJob(ctx context.Context, total int) (*model.Job, error)
	// GetJob returns a snapshot of the job, results included.
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	// ListJobs returns job snapshots, newest first, without results.
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	// SetStatus overwrites the job status and error message.
	SetStatus(ctx context.Context, jobID string, status model.JobStatus, errMsg string) error
	// AppendResult adds one company result and updates the counters in a
	// single step.
	AppendResult(ctx context.Context, jobID string, result model.CompanyResult) error
	// Export renders the job's results as CSV from one consistent snapshot.
	Export(ctx context.Context, jobID string) ([]byte, error)

	Close() error
}
