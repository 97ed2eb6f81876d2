package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/export"
	"github.com/sells-group/enrich-cli/internal/model"
)

// Memory implements Store in process memory. One mutex guards every job;
// it is held only for map and slice updates.
type Memory struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
	now  func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		jobs: make(map[string]*model.Job),
		now:  time.Now,
	}
}

// CreateJob implements Store.
func (m *Memory) CreateJob(_ context.Context, total int) (*model.Job, error) {
	if total < 0 {
		return nil, eris.Errorf("store: negative job total %d", total)
	}

	ts := m.now().UTC()
	job := &model.Job{
		ID:        uuid.New().String(),
		Status:    model.JobPending,
		Total:     total,
		Results:   []model.CompanyResult{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job.Clone(), nil
}

// GetJob implements Store.
func (m *Memory) GetJob(_ context.Context, jobID string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "store: get job %s", jobID)
	}
	return job.Clone(), nil
}

// ListJobs implements Store.
func (m *Memory) ListJobs(_ context.Context, filter JobFilter) ([]model.Job, error) {
	m.mu.Lock()
	jobs := make([]model.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		snap := *j
		snap.Results = nil
		jobs = append(jobs, snap)
	}
	m.mu.Unlock()

	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].ID < jobs[b].ID
		}
		return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return []model.Job{}, nil
		}
		jobs = jobs[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(jobs) {
		jobs = jobs[:filter.Limit]
	}
	return jobs, nil
}

// SetStatus implements Store.
func (m *Memory) SetStatus(_ context.Context, jobID string, status model.JobStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return eris.Wrapf(ErrNotFound, "store: set status %s", jobID)
	}
	job.Status = status
	job.Error = errMsg
	job.UpdatedAt = m.now().UTC()
	return nil
}

// AppendResult implements Store. A job never holds more results than its
// total.
func (m *Memory) AppendResult(_ context.Context, jobID string, result model.CompanyResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return eris.Wrapf(ErrNotFound, "store: append result %s", jobID)
	}
	if job.Processed >= job.Total {
		return eris.Errorf("store: job %s already has all %d results", jobID, job.Total)
	}

	job.Results = append(job.Results, result)
	job.Processed++
	if result.Status == model.ResultSuccess {
		job.SuccessCount++
	} else {
		job.FailureCount++
	}
	job.UpdatedAt = m.now().UTC()
	return nil
}

// Export implements Store. Results are copied under the lock and encoded
// after it is released.
func (m *Memory) Export(_ context.Context, jobID string) ([]byte, error) {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	var results []model.CompanyResult
	if ok {
		results = make([]model.CompanyResult, len(job.Results))
		copy(results, job.Results)
	}
	m.mu.Unlock()

	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "store: export %s", jobID)
	}
	return export.CSV(results)
}

// Close implements Store. Memory holds no external resources.
func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
