package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dinhhieu2003/toeic-recommender/internal/model"
)

// Status represents the status of an asynchronous recommendation job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job represents one asynchronous recommendation run.
type Job struct {
	ID        string                    `json:"id"`
	LearnerID string                    `json:"learner_id"`
	Status    Status                    `json:"status"`
	Result    *model.RecommendationList `json:"result,omitempty"`
	Error     string                    `json:"error,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
}

// Manager tracks recommendation jobs in memory. Jobs do not survive a
// restart; callers are expected to resubmit.
type Manager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewManager creates an empty job manager.
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Job),
	}
}

// Create registers a new pending job for the learner and returns it.
func (m *Manager) Create(learnerID string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		LearnerID: learnerID,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	m.jobs[job.ID] = job
	return job
}

// Get retrieves a snapshot of a job by its ID. The copy is safe to
// serialize while the job keeps running.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[id]
	if !exists {
		return Job{}, fmt.Errorf("job with ID '%s' not found", id)
	}
	return *job, nil
}

// Start marks a job as processing.
func (m *Manager) Start(id string) error {
	return m.update(id, func(j *Job) {
		j.Status = StatusProcessing
	})
}

// Complete stores the finished list and marks the job completed.
func (m *Manager) Complete(id string, list *model.RecommendationList) error {
	return m.update(id, func(j *Job) {
		j.Result = list
		j.Status = StatusCompleted
		j.Error = ""
	})
}

// Fail records the error and marks the job failed.
func (m *Manager) Fail(id string, err error) error {
	return m.update(id, func(j *Job) {
		j.Error = err.Error()
		j.Status = StatusFailed
	})
}

func (m *Manager) update(id string, apply func(*Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[id]
	if !exists {
		return fmt.Errorf("job with ID '%s' not found", id)
	}
	apply(job)
	return nil
}
