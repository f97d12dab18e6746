package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-viewer/pkg/errors"
	"github.com/noah-isme/sma-timetable-viewer/pkg/jobs"
)

// SnapshotJobType routes snapshot persistence jobs on the background queue.
const SnapshotJobType = "solution.snapshot"

const snapshotCachePrefix = "solution:"

type solverClient interface {
	SolutionFetcher
	SubmitProblem(ctx context.Context, problem json.RawMessage) (string, error)
	SubmitCSV(ctx context.Context, upload dto.CSVUpload) (string, error)
	JobStatus(ctx context.Context, jobID string) (*models.JobInfo, error)
}

type snapshotStore interface {
	Upsert(ctx context.Context, snapshot *models.SolutionSnapshot) error
	GetByJobID(ctx context.Context, jobID string) (*models.SolutionSnapshot, error)
	List(ctx context.Context, limit int) ([]models.SolutionSnapshot, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// TimetableConfig tunes TimetableService.
type TimetableConfig struct {
	Namespace  string
	CacheTTL   time.Duration
	RetryDelay time.Duration
	Scheduler  RetryScheduler
	Now        func() time.Time
	// OnSettle observes terminal poll states, e.g. a CLI waiting for a result.
	// It runs under the poller lock.
	OnSettle func(status dto.PollStatus)
}

// TimetableDeps are the optional collaborators of TimetableService. Nil
// members disable the matching feature.
type TimetableDeps struct {
	Snapshots snapshotStore
	Cache     *CacheService
	Queue     jobEnqueuer
	Exporter  *ExportService
	Metrics   *MetricsService
	Validator *validator.Validate
}

// snapshotTask is the payload of a snapshot persistence job.
type snapshotTask struct {
	JobID    string
	Payload  *models.SolutionPayload
	LoadedAt time.Time
}

// cachedSnapshot is what the cache holds per job.
type cachedSnapshot struct {
	Snapshot models.SolutionSnapshot `json:"snapshot"`
	Payload  *models.SolutionPayload `json:"payload"`
}

// TimetableService submits jobs to the solver, polls for their solutions and
// serves the most recently loaded one.
type TimetableService struct {
	solver    solverClient
	poller    *SolutionPoller
	snapshots snapshotStore
	cache     *CacheService
	queue     jobEnqueuer
	exporter  *ExportService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableConfig

	current atomic.Pointer[SolutionView]
}

// NewTimetableService wires the service and its poller.
func NewTimetableService(solver solverClient, deps TimetableDeps, cfg TimetableConfig, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultConstraintNamespace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Exporter == nil {
		deps.Exporter = NewExportService(nil, nil, logger)
	}
	s := &TimetableService{
		solver:    solver,
		snapshots: deps.Snapshots,
		cache:     deps.Cache,
		queue:     deps.Queue,
		exporter:  deps.Exporter,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    logger,
		cfg:       cfg,
	}
	s.poller = NewSolutionPoller(solver, PollerConfig{
		RetryDelay: cfg.RetryDelay,
		Scheduler:  cfg.Scheduler,
		Logger:     logger,
		Metrics:    deps.Metrics,
		Now:        cfg.Now,
		OnReady:    s.publish,
		OnSettle:   cfg.OnSettle,
	})
	return s
}

// Submit forwards a JSON problem to the solver and starts polling for it.
func (s *TimetableService) Submit(ctx context.Context, problem json.RawMessage, actor *models.JWTClaims) (*dto.JobSubmissionResponse, error) {
	if len(strings.TrimSpace(string(problem))) == 0 || !json.Valid(problem) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "problem must be a JSON document")
	}
	jobID, err := s.solver.SubmitProblem(ctx, problem)
	if err != nil {
		return nil, err
	}
	s.logger.Info("timetable job submitted", zap.String("job_id", jobID), zap.String("actor", actorID(actor)))
	return &dto.JobSubmissionResponse{JobID: jobID, Poll: s.poller.Start(jobID)}, nil
}

// SubmitCSV forwards the CSV inputs to the solver and starts polling.
func (s *TimetableService) SubmitCSV(ctx context.Context, upload dto.CSVUpload, actor *models.JWTClaims) (*dto.JobSubmissionResponse, error) {
	if err := s.validator.Struct(dto.SubmitCSVRequest{ClassCount: upload.ClassCount}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "classCount must be a positive integer")
	}
	for _, f := range []struct {
		field string
		file  dto.CSVFile
	}{
		{"roomsCsv", upload.Rooms},
		{"teachersCsv", upload.Teachers},
		{"lunchGroupsCsv", upload.LunchGroups},
		{"lessonsCsv", upload.Lessons},
	} {
		if len(f.file.Content) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", f.field))
		}
	}
	jobID, err := s.solver.SubmitCSV(ctx, upload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("timetable csv job submitted",
		zap.String("job_id", jobID),
		zap.Int("class_count", upload.ClassCount),
		zap.String("actor", actorID(actor)),
	)
	return &dto.JobSubmissionResponse{JobID: jobID, Poll: s.poller.Start(jobID)}, nil
}

// Fetch (re)starts polling an existing job, superseding any running poll.
func (s *TimetableService) Fetch(req dto.FetchSolutionRequest) (*dto.JobSubmissionResponse, error) {
	req.JobID = strings.TrimSpace(req.JobID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Please enter a Job ID")
	}
	return &dto.JobSubmissionResponse{JobID: req.JobID, Poll: s.poller.Start(req.JobID)}, nil
}

// JobStatus asks the solver for a job's lifecycle status.
func (s *TimetableService) JobStatus(ctx context.Context, jobID string) (*models.JobInfo, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Please enter a Job ID")
	}
	return s.solver.JobStatus(ctx, jobID)
}

// PollStatus reports the poller state.
func (s *TimetableService) PollStatus() dto.PollStatus {
	return s.poller.Status()
}

// CancelPoll stops the active poll.
func (s *TimetableService) CancelPoll() dto.PollStatus {
	return s.poller.Cancel()
}

// Close stops polling.
func (s *TimetableService) Close() {
	s.poller.Close()
}

// Current returns the loaded solution view or ErrNoSolution.
func (s *TimetableService) Current() (*SolutionView, error) {
	view := s.current.Load()
	if view == nil {
		return nil, appErrors.ErrNoSolution
	}
	return view, nil
}

// Summary describes the loaded solution.
func (s *TimetableService) Summary() (*dto.SolutionSummary, error) {
	view, err := s.Current()
	if err != nil {
		return nil, err
	}
	summary := view.Summary()
	return &summary, nil
}

// Diagnostics returns the ranked constraint diagnostics of the loaded solution.
func (s *TimetableService) Diagnostics() (*dto.ConstraintDiagnostics, error) {
	view, err := s.Current()
	if err != nil {
		return nil, err
	}
	if view.Empty {
		return &dto.ConstraintDiagnostics{Hard: []dto.ConstraintDiagnostic{}, Soft: []dto.ConstraintDiagnostic{}}, nil
	}
	diagnostics := view.Diagnostics
	return &diagnostics, nil
}

// Grid builds the weekly grid of a class in the loaded solution.
func (s *TimetableService) Grid(className string) (*dto.ClassGrid, error) {
	view, err := s.Current()
	if err != nil {
		return nil, err
	}
	if !view.HasClass(className) {
		return nil, appErrors.Clone(appErrors.ErrClassNotFound, fmt.Sprintf("class %q is not in the loaded solution", className))
	}
	return BuildGrid(view, className), nil
}

// Export renders a class grid as CSV or PDF.
func (s *TimetableService) Export(className string, query dto.ExportQuery) (*ExportResult, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	grid, err := s.Grid(className)
	if err != nil {
		return nil, err
	}
	result, err := s.exporter.ExportGrid(grid, query.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export timetable")
	}
	return result, nil
}

// Snapshots lists persisted solutions, newest first.
func (s *TimetableService) Snapshots(ctx context.Context, limit int) ([]models.SolutionSnapshot, error) {
	if s.snapshots == nil {
		return []models.SolutionSnapshot{}, nil
	}
	items, err := s.snapshots.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list snapshots")
	}
	if items == nil {
		items = []models.SolutionSnapshot{}
	}
	return items, nil
}

// Snapshot rebuilds the summary of a persisted solution, reading through the
// cache first. The bool reports a cache hit.
func (s *TimetableService) Snapshot(ctx context.Context, jobID string) (*dto.SnapshotView, bool, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "Please enter a Job ID")
	}

	var entry cachedSnapshot
	hit, err := s.cache.GetOrLoad(ctx, snapshotCachePrefix+jobID, &entry, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		loaded, err := s.loadSnapshot(ctx, jobID)
		if err != nil {
			return nil, err
		}
		entry = *loaded
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	if entry.Payload == nil {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")
	}

	view := NormalizeSolution(entry.Snapshot.JobID, entry.Payload, NormalizeOptions{
		Namespace: s.cfg.Namespace,
		Now:       func() time.Time { return entry.Snapshot.LoadedAt },
	})
	return &dto.SnapshotView{Snapshot: entry.Snapshot, Summary: view.Summary()}, hit, nil
}

func (s *TimetableService) loadSnapshot(ctx context.Context, jobID string) (*cachedSnapshot, error) {
	if s.snapshots == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")
	}
	snapshot, err := s.snapshots.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load snapshot")
	}
	if snapshot == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")
	}
	var payload models.SolutionPayload
	if err := snapshot.Payload.Unmarshal(&payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored snapshot is corrupt")
	}
	snapshot.Payload = nil
	return &cachedSnapshot{Snapshot: *snapshot, Payload: &payload}, nil
}

// publish replaces the current view. The poller calls it under its lock, so
// only the newest job's payload is ever published.
func (s *TimetableService) publish(jobID string, payload *models.SolutionPayload) {
	view := NormalizeSolution(jobID, payload, NormalizeOptions{Namespace: s.cfg.Namespace, Now: s.cfg.Now})
	s.current.Store(view)

	lessons := 0
	if payload != nil {
		lessons = len(payload.Lessons)
	}
	s.metrics.SetSolutionLessons(lessons)
	s.logger.Info("solution published",
		zap.String("job_id", jobID),
		zap.Int("lessons", lessons),
		zap.Int("classes", len(view.Roster)),
		zap.Bool("empty", view.Empty),
	)

	if s.queue == nil || payload == nil {
		return
	}
	task := snapshotTask{JobID: jobID, Payload: payload, LoadedAt: view.LoadedAt}
	go func() {
		if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: SnapshotJobType, Payload: task}); err != nil {
			s.metrics.RecordSnapshotJob("dropped")
			s.logger.Warn("failed to enqueue solution snapshot", zap.String("job_id", jobID), zap.Error(err))
		}
	}()
}

// PersistSnapshot is the queue handler for SnapshotJobType.
func (s *TimetableService) PersistSnapshot(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(snapshotTask)
	if !ok || task.Payload == nil {
		s.logger.Error("invalid snapshot job payload", zap.String("job_id", job.ID))
		return nil
	}
	raw, err := json.Marshal(task.Payload)
	if err != nil {
		s.metrics.RecordSnapshotJob("failed")
		return nil
	}

	snapshot := &models.SolutionSnapshot{
		JobID:       task.JobID,
		Score:       SummarizeScore(task.Payload.Score).Raw,
		LessonCount: len(task.Payload.Lessons),
		ClassCount:  countClasses(task.Payload.Lessons),
		Payload:     types.JSONText(raw),
		LoadedAt:    task.LoadedAt,
	}
	if s.snapshots != nil {
		start := time.Now()
		err := s.snapshots.Upsert(ctx, snapshot)
		s.metrics.ObserveDBQuery("snapshot_upsert", time.Since(start))
		if err != nil {
			s.metrics.RecordSnapshotJob("retry")
			return err
		}
	}
	snapshot.Payload = nil
	if err := s.cache.Set(ctx, snapshotCachePrefix+task.JobID, cachedSnapshot{Snapshot: *snapshot, Payload: task.Payload}, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("snapshot cache fill failed", zap.String("job_id", task.JobID), zap.Error(err))
	}
	s.metrics.RecordSnapshotJob("stored")
	return nil
}

func countClasses(lessons []models.Lesson) int {
	seen := make(map[string]struct{})
	for _, lesson := range lessons {
		seen[lesson.ClassName()] = struct{}{}
	}
	return len(seen)
}

func actorID(actor *models.JWTClaims) string {
	if actor == nil {
		return "anonymous"
	}
	return actor.UserID
}

// PurgeSnapshotCache drops every cached snapshot; the next read reloads from
// the database.
func (s *TimetableService) PurgeSnapshotCache(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx, snapshotCachePrefix+"*"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge snapshot cache")
	}
	s.logger.Info("snapshot cache purged")
	return nil
}
