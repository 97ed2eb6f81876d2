package model

import "time"

// JobStatus represents the lifecycle state of an enrichment job.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// Terminal reports whether no further transition may leave the status.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is one enrichment run over a list of company names.
type Job struct {
	ID           string          `json:"job_id"`
	Status       JobStatus       `json:"status"`
	Total        int             `json:"total"`
	Processed    int             `json:"processed"`
	SuccessCount int             `json:"success_count"`
	FailureCount int             `json:"failure_count"`
	Error        string          `json:"error,omitempty"`
	Results      []CompanyResult `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the job, safe to hand to other goroutines.
func (j *Job) Clone() *Job {
	c := *j
	if j.Results != nil {
		c.Results = make([]CompanyResult, len(j.Results))
		copy(c.Results, j.Results)
	}
	return &c
}

// JobStatusResponse is the status snapshot exposed to API callers.
type JobStatusResponse struct {
	JobID        string    `json:"job_id"`
	Status       JobStatus `json:"status"`
	Total        int       `json:"total"`
	Processed    int       `json:"processed"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	Error        string    `json:"error,omitempty"`
}

// StatusResponse projects the job onto its API status snapshot.
func (j *Job) StatusResponse() JobStatusResponse {
	return JobStatusResponse{
		JobID:        j.ID,
		Status:       j.Status,
		Total:        j.Total,
		Processed:    j.Processed,
		SuccessCount: j.SuccessCount,
		FailureCount: j.FailureCount,
		Error:        j.Error,
	}
}
