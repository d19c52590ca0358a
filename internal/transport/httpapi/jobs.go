package httpapi

import (
	"fmt"
	"sync"

	"github.com/esmirror/esmirror/internal/syncer"
)

// jobStore keeps running and finished jobs addressable over the API.
// In-memory only; job history does not survive a restart.
type jobStore struct {
	mu   sync.RWMutex
	next int
	jobs map[string]*syncer.Job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*syncer.Job)}
}

func (s *jobStore) add(job *syncer.Job) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := fmt.Sprintf("%s-%d", job.Collection(), s.next)
	s.jobs[id] = job
	return id
}

func (s *jobStore) get(id string) (*syncer.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}
