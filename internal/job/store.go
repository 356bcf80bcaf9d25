package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chime/internal/schedule"
)

// Store is a concurrency-safe, in-memory job store. It uses a map with a
// read-write mutex for O(1) lookups plus an insertion-order slice so List
// can return jobs newest-first. The `now` function is injectable for
// deterministic testing.
//
// Every operation is atomic with respect to the others: a scan snapshot
// never observes a job mid-update.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string // insertion order, oldest first

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewStore creates a ready-to-use empty store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create registers a new job. The name must be non-empty and the rule must
// pass validation. The initial NextRun is computed against the store clock
// at call time and the job starts active. The returned value is a copy.
func (s *Store) Create(name string, rule schedule.Rule) (Job, error) {
	if name == "" {
		return Job{}, ErrEmptyName
	}
	if err := rule.Validate(); err != nil {
		return Job{}, fmt.Errorf("job: invalid recurrence: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	j := &Job{
		ID:        uuid.NewString(),
		Name:      name,
		Rule:      rule,
		Active:    true,
		NextRun:   rule.Next(now),
		CreatedAt: now,
	}
	s.jobs[j.ID] = j
	s.order = append(s.order, j.ID)
	return *j, nil
}

// Insert adds an existing job record, preserving its id and timestamps.
// Used to seed the store from the durable store at startup; it does not
// recompute NextRun, so overdue jobs fire on the first scan (catch-up).
func (s *Store) Insert(j Job) error {
	if j.Name == "" {
		return ErrEmptyName
	}
	if err := j.Rule.Validate(); err != nil {
		return fmt.Errorf("job: invalid recurrence: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.ID]; !exists {
		s.order = append(s.order, j.ID)
	}
	cp := j
	s.jobs[j.ID] = &cp
	return nil
}

// Get returns a copy of the job with the given id.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *j, nil
}

// List returns copies of all jobs, newest-first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.jobs[s.order[i]])
	}
	return out
}

// SetActive flips the job's active flag and returns the updated copy.
//
// Deactivating does not clear NextRun and re-activating does not recompute
// it: a job resumed after its stale NextRun has passed is judged overdue and
// fires on the next scan ("catch up on resume").
func (s *Store) SetActive(id string, active bool) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	j.Active = active
	return *j, nil
}

// Delete removes the job. Deleting an unknown id is a no-op; the bool
// return reports whether a record was actually removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// RecordExecution marks an execution at the given time: LastRun is set and
// NextRun advances to the rule's next occurrence strictly after it. This
// happens for failed runs too; a failure does not retry the same
// occurrence. Returns the updated copy.
func (s *Store) RecordExecution(id string, at time.Time) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	j.LastRun = at
	j.NextRun = j.Rule.Next(at)
	return *j, nil
}

// Len returns the number of stored jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
