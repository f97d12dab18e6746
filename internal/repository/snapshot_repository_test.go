package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-viewer/internal/models"
)

func newSnapshotRepoMock(t *testing.T) (*SnapshotRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
	}
	return NewSnapshotRepository(sqlxDB), mock, cleanup
}

func TestSnapshotRepositoryUpsert(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	loadedAt := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	snapshot := &models.SolutionSnapshot{
		JobID:       "job-1",
		Score:       "0hard/-4soft",
		LessonCount: 12,
		ClassCount:  2,
		Payload:     types.JSONText(`{"score":"0hard/-4soft"}`),
		LoadedAt:    loadedAt,
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO solution_snapshots (id, job_id, score, lesson_count, class_count, payload, loaded_at)`)).
		WithArgs(sqlmock.AnyArg(), "job-1", "0hard/-4soft", 12, 2, sqlmock.AnyArg(), loadedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), snapshot))
	assert.NotEmpty(t, snapshot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryGetByJobID(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	loadedAt := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "job_id", "score", "lesson_count", "class_count", "payload", "loaded_at"}).
		AddRow("snap-1", "job-1", "0hard/0soft", 4, 1, []byte(`{"lessons":[]}`), loadedAt)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM solution_snapshots WHERE job_id = $1`)).
		WithArgs("job-1").
		WillReturnRows(rows)

	snapshot, err := repo.GetByJobID(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "snap-1", snapshot.ID)
	assert.Equal(t, 4, snapshot.LessonCount)
	assert.JSONEq(t, `{"lessons":[]}`, string(snapshot.Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryGetByJobIDMissing(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM solution_snapshots WHERE job_id = $1`)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	snapshot, err := repo.GetByJobID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestSnapshotRepositoryListClampsLimit(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	loadedAt := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "job_id", "score", "lesson_count", "class_count", "loaded_at"}).
		AddRow("snap-2", "job-2", "-1hard/0soft", 8, 2, loadedAt).
		AddRow("snap-1", "job-1", "0hard/0soft", 4, 1, loadedAt.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY loaded_at DESC`)).
		WithArgs(20).
		WillReturnRows(rows)

	snapshots, err := repo.List(context.Background(), 500)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "job-2", snapshots[0].JobID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
