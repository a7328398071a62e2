package domain

import (
	"context"
	"sync"
)

// Update is a partial change applied to a queued job. Nil fields are left untouched.
type Update struct {
	Status  *JobStatus
	Message *string
}

// StatusUpdate is a convenience constructor for a status+message update.
func StatusUpdate(status JobStatus, message string) Update {
	return Update{Status: &status, Message: &message}
}

// MessageUpdate changes only the progress message.
func MessageUpdate(message string) Update {
	return Update{Message: &message}
}

// Store holds the ordered list of queued jobs and notifies watchers on change.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	jobs     []Job
	nextSeq  uint64
	watchers map[chan []Job]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{watchers: make(map[chan []Job]struct{})}
}

// Enqueue appends jobs in the given order and returns them as queued. Ids are
// not checked for uniqueness; the returned jobs address their own entries in
// UpdateJob and Lookup even when an id repeats.
func (s *Store) Enqueue(jobs ...Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	queued := make([]Job, 0, len(jobs))
	s.mu.Lock()
	for _, j := range jobs {
		s.nextSeq++
		j = j.clone()
		j.seq = s.nextSeq
		s.jobs = append(s.jobs, j)
		queued = append(queued, j.clone())
	}
	s.mu.Unlock()
	s.publish()
	return queued
}

// UpdateStatus merges u into the job with the given id. It returns false when
// the job no longer exists, is already terminal, or when the requested status
// would move the job backwards.
func (s *Store) UpdateStatus(id string, u Update) bool {
	s.mu.Lock()
	ok := s.applyLocked(s.indexLocked(id), u)
	s.mu.Unlock()
	if ok {
		s.publish()
	}
	return ok
}

// UpdateJob is UpdateStatus for the entry job was queued as. It returns false
// once that entry is dismissed, even if another job with the same id is queued.
func (s *Store) UpdateJob(job Job, u Update) bool {
	s.mu.Lock()
	ok := s.applyLocked(s.entryLocked(job), u)
	s.mu.Unlock()
	if ok {
		s.publish()
	}
	return ok
}

func (s *Store) applyLocked(idx int, u Update) bool {
	if idx < 0 {
		return false
	}
	job := &s.jobs[idx]
	if job.IsTerminal() {
		return false
	}
	if u.Status != nil && !job.Status.CanTransition(*u.Status) {
		return false
	}
	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Message != nil {
		job.Message = *u.Message
	}
	return true
}

// Get returns a copy of the job with the given id.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Job{}, false
	}
	return s.jobs[idx].clone(), true
}

// Lookup returns the current state of the entry job was queued as.
func (s *Store) Lookup(job Job) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.entryLocked(job)
	if idx < 0 {
		return Job{}, false
	}
	return s.jobs[idx].clone(), true
}

// Dismiss removes the job with the given id regardless of its status.
func (s *Store) Dismiss(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.jobs = append(s.jobs[:idx], s.jobs[idx+1:]...)
	s.mu.Unlock()
	s.publish()
	return true
}

// DismissAll clears the store.
func (s *Store) DismissAll() {
	s.mu.Lock()
	s.jobs = nil
	s.mu.Unlock()
	s.publish()
}

// PruneSucceeded removes every job in success status and returns how many were removed.
func (s *Store) PruneSucceeded() int {
	s.mu.Lock()
	kept := s.jobs[:0]
	removed := 0
	for _, j := range s.jobs {
		if j.Status == StatusSuccess {
			removed++
			continue
		}
		kept = append(kept, j)
	}
	// clear the tail so pruned jobs can be collected
	for i := len(kept); i < len(s.jobs); i++ {
		s.jobs[i] = Job{}
	}
	s.jobs = kept
	s.mu.Unlock()
	if removed > 0 {
		s.publish()
	}
	return removed
}

// List returns the current jobs in insertion order.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Watch returns a channel receiving a snapshot after every change, starting
// with the current one. A slow reader only sees the most recent snapshot.
// The channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context) <-chan []Job {
	ch := make(chan []Job, 1)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *Store) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.watchers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.watchers {
		// drop the stale snapshot, if any, so the send never blocks
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (s *Store) snapshotLocked() []Job {
	out := make([]Job, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = j.clone()
	}
	return out
}

// entryLocked finds job by queue entry. Jobs that were never queued fall back
// to their id.
func (s *Store) entryLocked(job Job) int {
	if job.seq == 0 {
		return s.indexLocked(job.ID)
	}
	for i := range s.jobs {
		if s.jobs[i].seq == job.seq {
			return i
		}
	}
	return -1
}

func (s *Store) indexLocked(id string) int {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			return i
		}
	}
	return -1
}
