package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyBatch     = errors.New("no images in batch")
	ErrInvalidVideoID = errors.New("invalid video id")
)

// VideoItem describes a video the user asked to save.
type VideoItem struct {
	ExternalID string
	Title      string
	Thumbnail  string
}

// QueueService is the entry point used by the UI layer: it records jobs in
// the store and hands them to the dispatcher.
type QueueService struct {
	store      *Store
	dispatcher Dispatcher
	now        func() time.Time
}

// NewQueueService creates a new QueueService.
func NewQueueService(store *Store, dispatcher Dispatcher) *QueueService {
	return &QueueService{store: store, dispatcher: dispatcher, now: time.Now}
}

// EnqueueVideoJobs queues one job per video and starts processing them as one pass.
func (s *QueueService) EnqueueVideoJobs(items []VideoItem) ([]Job, error) {
	jobs := make([]Job, 0, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ExternalID)
		if id == "" {
			return nil, ErrInvalidVideoID
		}
		jobs = append(jobs, NewVideoJob(id, it.Title, it.Thumbnail))
	}
	return s.submit(jobs), nil
}

// EnqueueImageBatch queues a single job covering all images, in order.
func (s *QueueService) EnqueueImageBatch(images []string) (Job, error) {
	if len(images) == 0 {
		return Job{}, ErrEmptyBatch
	}
	queued := s.submit([]Job{NewImageBatchJob(s.imageBatchID(), images)})
	return queued[0], nil
}

// DismissJob removes a job from the queue regardless of its status.
func (s *QueueService) DismissJob(id string) bool {
	return s.store.Dismiss(id)
}

// DismissAllJobs clears the queue.
func (s *QueueService) DismissAllJobs() {
	s.store.DismissAll()
}

// Jobs returns the current queue snapshot.
func (s *QueueService) Jobs() []Job {
	return s.store.List()
}

// Watch streams queue snapshots until ctx is done.
func (s *QueueService) Watch(ctx context.Context) <-chan []Job {
	return s.store.Watch(ctx)
}

func (s *QueueService) submit(jobs []Job) []Job {
	if len(jobs) == 0 {
		return jobs
	}
	queued := s.store.Enqueue(jobs...)
	s.dispatcher.Dispatch(queued)
	return queued
}

// imageBatchID derives an id from the submission time. The random suffix keeps
// two batches submitted within the same millisecond apart.
func (s *QueueService) imageBatchID() string {
	return fmt.Sprintf("img-%d-%s", s.now().UnixMilli(), uuid.NewString()[:8])
}
