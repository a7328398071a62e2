package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwygoda/recipequeue/internal/adapter/processor"
	"github.com/cwygoda/recipequeue/internal/domain"
)

const (
	DefaultProgressInterval = 3 * time.Second
	DefaultPruneDelay       = 4 * time.Second
)

// ErrNoExtractor is reported when no extractor is registered for a job kind.
var ErrNoExtractor = errors.New("no extractor for job kind")

// Options configures a Worker. Zero values fall back to defaults.
type Options struct {
	Logger           *slog.Logger
	Cache            domain.CacheInvalidator
	Recorder         domain.OutcomeRecorder
	ProgressInterval time.Duration
	PruneDelay       time.Duration
}

// Worker drains dispatched batches one pass at a time, one job at a time.
// Batches dispatched while a pass is running wait in a backlog and are
// processed afterwards, each as its own pass.
type Worker struct {
	log              *slog.Logger
	store            *domain.Store
	registry         *processor.Registry
	cache            domain.CacheInvalidator
	recorder         domain.OutcomeRecorder
	progressInterval time.Duration
	pruneDelay       time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	closed  bool
	backlog [][]domain.Job
	timers  map[*time.Timer]struct{}
}

var _ domain.Dispatcher = (*Worker)(nil)

// New creates a new worker.
func New(store *domain.Store, registry *processor.Registry, opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.PruneDelay <= 0 {
		opts.PruneDelay = DefaultPruneDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		log:              logger.With("component", "worker"),
		store:            store,
		registry:         registry,
		cache:            opts.Cache,
		recorder:         opts.Recorder,
		progressInterval: opts.ProgressInterval,
		pruneDelay:       opts.PruneDelay,
		ctx:              ctx,
		cancel:           cancel,
		timers:           make(map[*time.Timer]struct{}),
	}
}

// Dispatch schedules batch as a processing pass and returns immediately.
func (w *Worker) Dispatch(batch []domain.Job) {
	if len(batch) == 0 {
		return
	}
	pass := make([]domain.Job, len(batch))
	copy(pass, batch)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Warn("dispatch after close ignored", "jobs", len(pass))
		return
	}
	w.backlog = append(w.backlog, pass)
	if w.running {
		w.log.Debug("pass queued behind active pass", "jobs", len(pass), "backlog", len(w.backlog))
		return
	}
	w.running = true
	w.wg.Add(1)
	go w.drain()
}

// Running reports whether a pass is in progress.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Close cancels in-flight extraction, drops queued passes and pending prunes,
// and waits for the active pass to return.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.backlog = nil
	for t := range w.timers {
		t.Stop()
	}
	w.timers = nil
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	w.log.Info("worker stopped")
}

func (w *Worker) drain() {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		if w.closed || len(w.backlog) == 0 {
			w.running = false
			w.mu.Unlock()
			return
		}
		batch := w.backlog[0]
		w.backlog[0] = nil
		w.backlog = w.backlog[1:]
		w.mu.Unlock()

		w.runPass(batch)
	}
}

func (w *Worker) runPass(batch []domain.Job) {
	passID := uuid.NewString()
	log := w.log.With("pass_id", passID)
	start := time.Now()
	log.Info("pass started", "jobs", len(batch))

	var failed int
	for i, job := range batch {
		if w.ctx.Err() != nil {
			log.Warn("worker closing, leaving jobs pending", "remaining", len(batch)-i)
			break
		}
		if !w.processJob(log, job) {
			failed++
		}
	}

	if w.cache != nil {
		if err := w.cache.Invalidate(w.ctx, domain.RecipesTag); err != nil {
			log.Warn("cache invalidation failed", "tag", domain.RecipesTag, "err", err)
		}
	}
	log.Info("pass finished", "jobs", len(batch), "failed", failed, "duration", time.Since(start))

	w.schedulePrune()
}

// processJob runs one job to a terminal status and reports whether it succeeded.
// A job dismissed from the queue is still extracted; its status updates become no-ops.
func (w *Worker) processJob(log *slog.Logger, job domain.Job) bool {
	log = log.With("job_id", job.ID, "kind", job.Kind)

	ext := w.registry.Lookup(job.Kind)
	if ext != nil {
		log = log.With("extractor", ext.Name())
	}

	if !w.store.UpdateJob(job, domain.StatusUpdate(domain.StatusProcessing, domain.ProgressMessage(0))) {
		log.Debug("job no longer queued, extracting anyway")
	}

	stop := w.startProgress(job)
	start := time.Now()
	var err error
	if ext == nil {
		err = fmt.Errorf("%w: %s", ErrNoExtractor, job.Kind)
	} else {
		err = ext.Extract(w.ctx, job)
	}
	stop()

	final := domain.StatusUpdate(domain.StatusSuccess, domain.MessageSaved)
	if err != nil {
		log.Error("extraction failed", "err", err, "duration", time.Since(start))
		final = domain.StatusUpdate(domain.StatusError, domain.MessageFailed)
	} else {
		log.Info("recipe saved", "title", job.Title, "duration", time.Since(start))
	}
	if !w.store.UpdateJob(job, final) {
		log.Debug("job dismissed while processing")
	}

	w.record(log, job, *final.Status, *final.Message)
	return err == nil
}

// startProgress advances the job's progress message on every tick while it is
// still processing. The returned func stops the ticker and waits for it.
func (w *Worker) startProgress(job domain.Job) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(w.progressInterval)
		defer ticker.Stop()

		step := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				cur, ok := w.store.Lookup(job)
				if !ok || cur.Status != domain.StatusProcessing {
					continue
				}
				if step >= len(domain.ProgressMessages)-1 {
					continue
				}
				step++
				w.store.UpdateJob(job, domain.MessageUpdate(domain.ProgressMessage(step)))
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}

func (w *Worker) record(log *slog.Logger, job domain.Job, status domain.JobStatus, message string) {
	if w.recorder == nil {
		return
	}
	job.Status = status
	job.Message = message
	if err := w.recorder.Record(context.WithoutCancel(w.ctx), job); err != nil {
		log.Warn("record outcome failed", "err", err)
	}
}

func (w *Worker) schedulePrune() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(w.pruneDelay, func() {
		w.mu.Lock()
		delete(w.timers, t)
		w.mu.Unlock()
		if n := w.store.PruneSucceeded(); n > 0 {
			w.log.Debug("pruned saved jobs", "count", n)
		}
	})
	w.timers[t] = struct{}{}
}
