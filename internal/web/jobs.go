package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ML-4-SocialGood/ReWildID/internal/reid"
)

// JobStatus represents the status of an async job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ReidJob is one asynchronous identification run. The zero Result stays
// absent from JSON until the job completes.
type ReidJob struct {
	ID          string       `json:"id"`
	Status      JobStatus    `json:"status"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Result      *reid.Output `json:"result,omitempty"`
}

// JobManager tracks jobs in memory. Jobs are transient; a restart loses
// them, which is acceptable because the desktop frontend resubmits.
type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*ReidJob
}

func NewJobManager() *JobManager {
	return &JobManager{jobs: make(map[string]*ReidJob)}
}

// Create registers a new pending job and returns its snapshot.
func (m *JobManager) Create() ReidJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &ReidJob{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}
	m.jobs[job.ID] = job
	return *job
}

// Get returns a snapshot of a job, or false if unknown.
func (m *JobManager) Get(id string) (ReidJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return ReidJob{}, false
	}
	return *job, true
}

// SetRunning marks a job as started.
func (m *JobManager) SetRunning(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.Status = JobStatusRunning
	}
}

// Complete records a successful result.
func (m *JobManager) Complete(id string, result *reid.Output) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		now := time.Now()
		job.Status = JobStatusCompleted
		job.Result = result
		job.CompletedAt = &now
	}
}

// Fail records a job failure.
func (m *JobManager) Fail(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		now := time.Now()
		job.Status = JobStatusFailed
		job.Error = err.Error()
		job.CompletedAt = &now
	}
}
