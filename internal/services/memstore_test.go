package services

import (
	"sync"
	"time"

	"github.com/botpanel/core/internal/models"
	"github.com/google/uuid"
)

// memStore is the in-memory Store used across the service tests. It
// mirrors the row-copy semantics of the real database: Find returns a
// copy, and RecordRun mutates counters under the lock.
type memStore struct {
	mu    sync.Mutex
	jobs  map[uuid.UUID]models.CronJob
	execs []models.JobExecution
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[uuid.UUID]models.CronJob)}
}

func (s *memStore) Save(job *models.CronJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
		job.CreatedAt = time.Now().UTC()
	}
	job.UpdatedAt = time.Now().UTC()
	s.jobs[job.ID] = *job
	return nil
}

func (s *memStore) Find(id uuid.UUID) (*models.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (s *memStore) FindAll() ([]models.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]models.CronJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (s *memStore) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, id)
	return nil
}

func (s *memStore) RecordRun(id uuid.UUID, success bool, at time.Time, nextRun *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.RunCount++
	if success {
		job.SuccessCount++
	} else {
		job.ErrorCount++
	}
	job.LastRunAt = &at
	job.NextRunAt = nextRun
	s.jobs[id] = job
	return nil
}

func (s *memStore) UpdateProvisionState(id uuid.UUID, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.ProvisionState = state
	s.jobs[id] = job
	return nil
}

func (s *memStore) AppendExecution(exec *models.JobExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exec.ID == uuid.Nil {
		exec.ID = uuid.New()
	}
	s.execs = append(s.execs, *exec)
	return nil
}

func (s *memStore) Executions(jobID uuid.UUID, limit int) ([]models.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.JobExecution
	for i := len(s.execs) - 1; i >= 0; i-- {
		if s.execs[i].CronJobID != jobID {
			continue
		}
		out = append(out, s.execs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
