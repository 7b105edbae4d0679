// Package storage contains the in-memory job store used by the all-in-one dev
// mode and by tests.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/skillscribe/internal/model"
)

// MemoryStore keeps job rows in a map guarded by an RWMutex.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]model.Job),
	}
}

// Put inserts or replaces a row.
func (m *MemoryStore) Put(ctx context.Context, job model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.jobs[job.JobID]; ok {
		job.CreatedAt = existing.CreatedAt
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	m.jobs[job.JobID] = job
	return nil
}

// Get returns a copy of the row.
func (m *MemoryStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, jobID)
	}
	return &job, nil
}

// Delete removes a row.
func (m *MemoryStore) Delete(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[jobID]; !ok {
		return fmt.Errorf("%w: %s", model.ErrJobNotFound, jobID)
	}
	delete(m.jobs, jobID)
	return nil
}

// List returns up to limit rows, oldest first.
func (m *MemoryStore) List(ctx context.Context, limit int) ([]model.Job, error) {
	m.mu.RLock()
	jobs := make([]model.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].JobID < jobs[j].JobID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}
