package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwygoda/recipequeue/internal/domain"
)

func setupTestRepo(t *testing.T) (*Repository, func()) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cleanup := func() {
		repo.Close()
		os.Remove(dbPath)
	}
	return repo, cleanup
}

func finished(job domain.Job, status domain.JobStatus, msg string) domain.Job {
	job.Status = status
	job.Message = msg
	return job
}

func TestRepository_RecordAndRecent(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	video := finished(domain.NewVideoJob("dQw4w9WgXcQ", "Pasta", "thumb"), domain.StatusSuccess, domain.MessageSaved)
	batch := finished(domain.NewImageBatchJob("img-1", []string{"/a.jpg", "/b.jpg"}), domain.StatusError, domain.MessageFailed)

	if err := repo.Record(ctx, video); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, batch); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() len = %d, want 2", len(got))
	}

	// newest first
	if got[0].JobID != "img-1" || got[1].JobID != "dQw4w9WgXcQ" {
		t.Errorf("order = %s, %s", got[0].JobID, got[1].JobID)
	}
	if got[0].Kind != domain.KindImageBatch || got[0].Status != domain.StatusError || got[0].ImageCount != 2 {
		t.Errorf("batch outcome = %+v", got[0])
	}
	if got[0].Title != "Recipe from 2 images" || got[0].Message != domain.MessageFailed {
		t.Errorf("batch outcome title/message = %q/%q", got[0].Title, got[0].Message)
	}
	if got[1].Kind != domain.KindVideo || got[1].Status != domain.StatusSuccess || got[1].ImageCount != 0 {
		t.Errorf("video outcome = %+v", got[1])
	}
	if !got[1].FinishedAt.Equal(base.Add(time.Second)) {
		t.Errorf("FinishedAt = %v, want %v", got[1].FinishedAt, base.Add(time.Second))
	}
}

func TestRepository_RecentLimit(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		repo.Record(ctx, finished(domain.NewVideoJob(id, id, ""), domain.StatusSuccess, domain.MessageSaved))
	}

	got, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Recent() len = %d, want 2", len(got))
	}
}

func TestRepository_CountByStatus(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	repo.Record(ctx, finished(domain.NewVideoJob("a", "", ""), domain.StatusSuccess, domain.MessageSaved))
	repo.Record(ctx, finished(domain.NewVideoJob("b", "", ""), domain.StatusError, domain.MessageFailed))
	repo.Record(ctx, finished(domain.NewVideoJob("c", "", ""), domain.StatusError, domain.MessageFailed))

	n, err := repo.CountByStatus(ctx, domain.StatusError)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountByStatus(error) = %d, want 2", n)
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer repo.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}
