package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-viewer/internal/models"
)

// SnapshotSchema creates the snapshot table when it does not exist yet.
const SnapshotSchema = `
CREATE TABLE IF NOT EXISTS solution_snapshots (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL UNIQUE,
	score TEXT NOT NULL,
	lesson_count INTEGER NOT NULL,
	class_count INTEGER NOT NULL,
	payload JSONB NOT NULL,
	loaded_at TIMESTAMPTZ NOT NULL
)`

const snapshotColumns = `id, job_id, score, lesson_count, class_count, payload, loaded_at`

// SnapshotRepository persists loaded solutions so they survive restarts.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// EnsureSchema creates the snapshot table.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, SnapshotSchema); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

// Upsert stores a snapshot, replacing any earlier one for the same job.
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshot *models.SolutionSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.LoadedAt.IsZero() {
		snapshot.LoadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO solution_snapshots (` + snapshotColumns + `)
VALUES (:id, :job_id, :score, :lesson_count, :class_count, :payload, :loaded_at)
ON CONFLICT (job_id) DO UPDATE SET
	score = EXCLUDED.score,
	lesson_count = EXCLUDED.lesson_count,
	class_count = EXCLUDED.class_count,
	payload = EXCLUDED.payload,
	loaded_at = EXCLUDED.loaded_at`
	if _, err := r.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snapshot.JobID, err)
	}
	return nil
}

// GetByJobID returns the snapshot for a job, or nil when none is stored.
func (r *SnapshotRepository) GetByJobID(ctx context.Context, jobID string) (*models.SolutionSnapshot, error) {
	const query = `SELECT ` + snapshotColumns + ` FROM solution_snapshots WHERE job_id = $1`
	var snapshot models.SolutionSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, jobID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get snapshot %s: %w", jobID, err)
	}
	return &snapshot, nil
}

// List returns snapshot metadata, newest first, without payloads.
func (r *SnapshotRepository) List(ctx context.Context, limit int) ([]models.SolutionSnapshot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT id, job_id, score, lesson_count, class_count, loaded_at
FROM solution_snapshots
ORDER BY loaded_at DESC
LIMIT $1`
	var snapshots []models.SolutionSnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, limit); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}
