package server

import (
	"sync"
	"time"

	"github.com/jwulff/recut/internal/api"
)

// jobRecord is the backend's view of one upload.
type jobRecord struct {
	Status        string
	VideoFilename string
	VideoPath     string
	AttendeesPath string
	Result        *api.JobResult
	Attendees     []string
	Error         string
	Created       time.Time
}

// Registry holds every job since the server started. It is read by status
// handlers and written by workers.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*jobRecord
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*jobRecord)}
}

func (r *Registry) create(id string, rec jobRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &rec
}

// get returns a copy of the record.
func (r *Registry) get(id string) (jobRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.jobs[id]
	if !ok {
		return jobRecord{}, false
	}
	return *rec, true
}

func (r *Registry) update(id string, fn func(*jobRecord)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// Status returns the status of job id.
func (r *Registry) Status(id string) (string, bool) {
	rec, ok := r.get(id)
	return rec.Status, ok
}
