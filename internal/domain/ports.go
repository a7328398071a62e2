package domain

import "context"

// Extractor is the driven port that turns a job into a saved recipe on the backend.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, job Job) error
}

// Dispatcher hands freshly enqueued jobs to the background processor.
// Dispatch must not block on extraction.
type Dispatcher interface {
	Dispatch(batch []Job)
}

// CacheInvalidator drops cached data for a tag so dependents refetch it.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tag string) error
}

// OutcomeRecorder persists the terminal outcome of a job.
type OutcomeRecorder interface {
	Record(ctx context.Context, job Job) error
}

// RecipesTag is the cache tag of the user's recipe list.
const RecipesTag = "recipes"
