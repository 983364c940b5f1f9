package orchestrator

import (
	"sync"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

// JobStore persists analysis job records. The orchestrator is the only
// writer; readers may be concurrent.
type JobStore interface {
	Create(job model.AnalysisJob) error
	Get(id string) (model.AnalysisJob, error)
	Update(id string, fn func(*model.AnalysisJob) error) error
	Delete(id string) error
}

// MemoryStore is the in-process job store. Records live until the
// process exits; an external persistence collaborator can replace it
// behind the same interface.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]model.AnalysisJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[string]model.AnalysisJob{}}
}

func (s *MemoryStore) Create(job model.AnalysisJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) Get(id string) (model.AnalysisJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return model.AnalysisJob{}, model.ErrJobNotFound
	}
	return job, nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) Update(id string, fn func(*model.AnalysisJob) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return model.ErrJobNotFound
	}
	if err := fn(&job); err != nil {
		return err
	}
	s.jobs[id] = job
	return nil
}
