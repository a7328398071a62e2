package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cwygoda/recipequeue/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_outcomes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id      TEXT NOT NULL,
    kind        TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    message     TEXT NOT NULL DEFAULT '',
    image_count INTEGER NOT NULL DEFAULT 0,
    finished_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_outcomes_finished ON job_outcomes(finished_at);
`

// Outcome is a recorded terminal result of a queue job.
type Outcome struct {
	ID         int64
	JobID      string
	Kind       domain.Kind
	Title      string
	Status     domain.JobStatus
	Message    string
	ImageCount int
	FinishedAt time.Time
}

// Repository implements domain.OutcomeRecorder using SQLite.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.OutcomeRecorder = (*Repository)(nil)

// New opens the SQLite database, initializing the schema if needed.
func New(dbPath string) (*Repository, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Record stores the terminal outcome of a job.
func (r *Repository) Record(ctx context.Context, job domain.Job) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO job_outcomes (job_id, kind, title, status, message, image_count, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Kind, job.Title, job.Status, job.Message, job.ImageCount(), r.now().UTC(),
	)
	return err
}

// Recent returns up to limit outcomes, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Outcome, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, job_id, kind, title, status, message, image_count, finished_at
		 FROM job_outcomes ORDER BY finished_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var kind, status string
		if err := rows.Scan(&o.ID, &o.JobID, &kind, &o.Title, &status, &o.Message, &o.ImageCount, &o.FinishedAt); err != nil {
			return nil, err
		}
		o.Kind = domain.Kind(kind)
		o.Status = domain.JobStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountByStatus returns how many recorded outcomes have the given status.
func (r *Repository) CountByStatus(ctx context.Context, status domain.JobStatus) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM job_outcomes WHERE status = ?`, status,
	).Scan(&n)
	return n, err
}
