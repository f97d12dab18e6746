package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-viewer/pkg/errors"
	"github.com/noah-isme/sma-timetable-viewer/pkg/jobs"
)

type solverStub struct {
	*fetcherStub
	nextJobID string
	submitted []json.RawMessage
	uploads   []dto.CSVUpload
	status    *models.JobInfo
	submitErr error
}

func newSolverStub() *solverStub {
	return &solverStub{fetcherStub: newFetcherStub(), nextJobID: "job-1"}
}

func (s *solverStub) SubmitProblem(_ context.Context, problem json.RawMessage) (string, error) {
	if s.submitErr != nil {
		return "", s.submitErr
	}
	s.submitted = append(s.submitted, problem)
	return s.nextJobID, nil
}

func (s *solverStub) SubmitCSV(_ context.Context, upload dto.CSVUpload) (string, error) {
	if s.submitErr != nil {
		return "", s.submitErr
	}
	s.uploads = append(s.uploads, upload)
	return s.nextJobID, nil
}

func (s *solverStub) JobStatus(_ context.Context, jobID string) (*models.JobInfo, error) {
	if s.status == nil {
		return nil, appErrors.ErrJobNotFound
	}
	return s.status, nil
}

type snapshotStoreStub struct {
	mu    sync.Mutex
	items map[string]models.SolutionSnapshot
	gets  int
}

func newSnapshotStoreStub() *snapshotStoreStub {
	return &snapshotStoreStub{items: make(map[string]models.SolutionSnapshot)}
}

func (s *snapshotStoreStub) Upsert(_ context.Context, snapshot *models.SolutionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snapshot.ID == "" {
		snapshot.ID = "snap-" + snapshot.JobID
	}
	s.items[snapshot.JobID] = *snapshot
	return nil
}

func (s *snapshotStoreStub) GetByJobID(_ context.Context, jobID string) (*models.SolutionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	item, ok := s.items[jobID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *snapshotStoreStub) List(context.Context, int) ([]models.SolutionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SolutionSnapshot, 0, len(s.items))
	for _, item := range s.items {
		item.Payload = nil
		out = append(out, item)
	}
	return out, nil
}

type memoryCacheRepo struct {
	mu     sync.Mutex
	items  map[string][]byte
	purged []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (r *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = raw
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purged = append(r.purged, pattern)
	r.items = make(map[string][]byte)
	return nil
}

type queueStub struct {
	jobs chan jobs.Job
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.jobs <- job
	return nil
}

type timetableFixture struct {
	svc       *TimetableService
	solver    *solverStub
	scheduler *fakeScheduler
	store     *snapshotStoreStub
	cache     *memoryCacheRepo
	queue     *queueStub
}

func newTimetableFixture(t *testing.T) *timetableFixture {
	t.Helper()
	f := &timetableFixture{
		solver:    newSolverStub(),
		scheduler: &fakeScheduler{},
		store:     newSnapshotStoreStub(),
		cache:     newMemoryCacheRepo(),
		queue:     &queueStub{jobs: make(chan jobs.Job, 4)},
	}
	f.svc = NewTimetableService(f.solver, TimetableDeps{
		Snapshots: f.store,
		Cache:     NewCacheService(f.cache, nil, time.Hour, nil, true),
		Queue:     f.queue,
	}, TimetableConfig{
		Scheduler: f.scheduler,
		Now:       func() time.Time { return fixedNow },
	}, nil)
	t.Cleanup(f.svc.Close)
	return f
}

func (f *timetableFixture) nextQueuedJob(t *testing.T) jobs.Job {
	t.Helper()
	select {
	case job := <-f.queue.jobs:
		return job
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot job enqueued")
		return jobs.Job{}
	}
}

func TestTimetableServiceNoSolutionYet(t *testing.T) {
	f := newTimetableFixture(t)

	_, err := f.svc.Summary()
	assert.True(t, errors.Is(err, appErrors.ErrNoSolution))
	_, err = f.svc.Grid("1A")
	assert.True(t, errors.Is(err, appErrors.ErrNoSolution))
	assert.Equal(t, dto.PollStateIdle, f.svc.PollStatus().State)
}

func TestTimetableServiceSubmitLoadsSolution(t *testing.T) {
	f := newTimetableFixture(t)
	f.solver.on("job-1", scriptedFetch{payload: samplePayload(t)})

	resp, err := f.svc.Submit(context.Background(), json.RawMessage(`{"lessons":[]}`), &models.JWTClaims{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, dto.PollStateReady, resp.Poll.State)

	summary, err := f.svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, "job-1", summary.JobID)
	assert.Len(t, summary.Classes, 3)

	grid, err := f.svc.Grid("9B")
	require.NoError(t, err)
	assert.True(t, grid.HasLessons)

	_, err = f.svc.Grid("7Z")
	assert.True(t, errors.Is(err, appErrors.ErrClassNotFound))

	diagnostics, err := f.svc.Diagnostics()
	require.NoError(t, err)
	assert.Len(t, diagnostics.Hard, 1)
}

func TestTimetableServiceSubmitRejectsInvalidJSON(t *testing.T) {
	f := newTimetableFixture(t)

	_, err := f.svc.Submit(context.Background(), json.RawMessage(`{`), nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, f.solver.submitted)
}

func TestTimetableServiceSubmitSurfacesSolverFailure(t *testing.T) {
	f := newTimetableFixture(t)
	f.solver.submitErr = appErrors.ErrSolverUnavailable

	_, err := f.svc.Submit(context.Background(), json.RawMessage(`{}`), nil)
	assert.True(t, errors.Is(err, appErrors.ErrSolverUnavailable))
}

func TestTimetableServiceSubmitCSVValidation(t *testing.T) {
	f := newTimetableFixture(t)
	file := dto.CSVFile{Filename: "x.csv", Content: []byte("id\n1\n")}

	_, err := f.svc.SubmitCSV(context.Background(), dto.CSVUpload{Rooms: file, Teachers: file, LunchGroups: file, Lessons: file}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.SubmitCSV(context.Background(), dto.CSVUpload{Rooms: file, Teachers: file, Lessons: file, ClassCount: 2}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lunchGroupsCsv")

	f.solver.on("job-1", notReady())
	resp, err := f.svc.SubmitCSV(context.Background(), dto.CSVUpload{Rooms: file, Teachers: file, LunchGroups: file, Lessons: file, ClassCount: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, dto.PollStatePolling, resp.Poll.State)
	require.Len(t, f.solver.uploads, 1)
}

func TestTimetableServiceFetchRequiresJobID(t *testing.T) {
	f := newTimetableFixture(t)

	_, err := f.svc.Fetch(dto.FetchSolutionRequest{JobID: "   "})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTimetableServiceLastSubmissionWins(t *testing.T) {
	f := newTimetableFixture(t)
	f.solver.on("old", notReady(), readyWith("-9hard/0soft"))
	f.solver.on("new", scriptedFetch{payload: samplePayload(t)})

	_, err := f.svc.Fetch(dto.FetchSolutionRequest{JobID: "old"})
	require.NoError(t, err)
	_, err = f.svc.Fetch(dto.FetchSolutionRequest{JobID: "new"})
	require.NoError(t, err)
	f.scheduler.fireAll()

	view, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, "new", view.JobID)
}

func TestTimetableServiceCancelPoll(t *testing.T) {
	f := newTimetableFixture(t)
	f.solver.on("job-1", notReady(), readyWith("0hard/0soft"))

	_, err := f.svc.Fetch(dto.FetchSolutionRequest{JobID: "job-1"})
	require.NoError(t, err)
	status := f.svc.CancelPoll()
	assert.Equal(t, dto.PollStateIdle, status.State)

	f.scheduler.fireAll()
	_, err = f.svc.Current()
	assert.True(t, errors.Is(err, appErrors.ErrNoSolution))
}

func TestTimetableServicePersistsAndServesSnapshots(t *testing.T) {
	f := newTimetableFixture(t)
	f.solver.on("job-1", scriptedFetch{payload: samplePayload(t)})

	_, err := f.svc.Fetch(dto.FetchSolutionRequest{JobID: "job-1"})
	require.NoError(t, err)

	job := f.nextQueuedJob(t)
	assert.Equal(t, SnapshotJobType, job.Type)
	require.NoError(t, f.svc.PersistSnapshot(context.Background(), job))

	stored, err := f.store.GetByJobID(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 4, stored.LessonCount)
	assert.Equal(t, 3, stored.ClassCount)
	assert.Equal(t, "-2hard/-15soft", stored.Score)

	view, hit, err := f.svc.Snapshot(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "job-1", view.Summary.JobID)
	assert.Len(t, view.Summary.Classes, 3)

	list, err := f.svc.Snapshots(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTimetableServicePersistSnapshotSurvivesCacheFailure(t *testing.T) {
	f := newTimetableFixture(t)
	f.svc.cache = NewCacheService(failingCacheRepo{}, nil, time.Hour, nil, true)
	f.solver.on("job-1", scriptedFetch{payload: samplePayload(t)})

	_, err := f.svc.Fetch(dto.FetchSolutionRequest{JobID: "job-1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.PersistSnapshot(context.Background(), f.nextQueuedJob(t)))
	stored, err := f.store.GetByJobID(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestTimetableServiceSnapshotReadsThroughCache(t *testing.T) {
	f := newTimetableFixture(t)
	raw, err := json.Marshal(samplePayload(t))
	require.NoError(t, err)
	require.NoError(t, f.store.Upsert(context.Background(), &models.SolutionSnapshot{
		JobID:    "job-7",
		Score:    "-2hard/-15soft",
		Payload:  types.JSONText(raw),
		LoadedAt: fixedNow,
	}))

	view, hit, err := f.svc.Snapshot(context.Background(), "job-7")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, fixedNow, view.Summary.LoadedAt)

	_, hit, err = f.svc.Snapshot(context.Background(), "job-7")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, f.store.gets)

	_, _, err = f.svc.Snapshot(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTimetableServicePurgeSnapshotCache(t *testing.T) {
	f := newTimetableFixture(t)
	raw, err := json.Marshal(samplePayload(t))
	require.NoError(t, err)
	require.NoError(t, f.store.Upsert(context.Background(), &models.SolutionSnapshot{
		JobID: "job-8", Payload: types.JSONText(raw), LoadedAt: fixedNow,
	}))

	_, _, err = f.svc.Snapshot(context.Background(), "job-8")
	require.NoError(t, err)
	require.NoError(t, f.svc.PurgeSnapshotCache(context.Background()))
	assert.Equal(t, []string{"solution:*"}, f.cache.purged)

	_, hit, err := f.svc.Snapshot(context.Background(), "job-8")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, f.store.gets)
}

func TestTimetableServiceExport(t *testing.T) {
	f := newTimetableFixture(t)
	f.solver.on("job-1", scriptedFetch{payload: samplePayload(t)})
	_, err := f.svc.Fetch(dto.FetchSolutionRequest{JobID: "job-1"})
	require.NoError(t, err)

	result, err := f.svc.Export("1A", dto.ExportQuery{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "timetable-1A.csv", result.Filename)

	_, err = f.svc.Export("1A", dto.ExportQuery{Format: "xlsx"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTimetableServiceJobStatus(t *testing.T) {
	f := newTimetableFixture(t)
	_, err := f.svc.JobStatus(context.Background(), "job-1")
	assert.True(t, errors.Is(err, appErrors.ErrJobNotFound))

	f.solver.status = &models.JobInfo{JobID: "job-1", Status: models.JobStatusSolving}
	info, err := f.svc.JobStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSolving, info.Status)
}
