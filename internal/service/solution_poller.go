package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-viewer/pkg/errors"
)

const (
	defaultPollRetryDelay = 500 * time.Millisecond

	messagePollStarted  = "Fetching solution..."
	messagePollRetrying = "Solution is not ready yet. Retrying..."
	messagePollStopped  = "Polling cancelled."
)

// SolutionFetcher loads a job's solution from the solver.
type SolutionFetcher interface {
	FetchSolution(ctx context.Context, jobID string) (*models.SolutionPayload, error)
}

// RetryTimer is a pending retry that can be cancelled.
type RetryTimer interface {
	Stop() bool
}

// RetryScheduler runs f once after d.
type RetryScheduler interface {
	AfterFunc(d time.Duration, f func()) RetryTimer
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) RetryTimer {
	return time.AfterFunc(d, f)
}

// PollerConfig wires a SolutionPoller.
type PollerConfig struct {
	RetryDelay time.Duration
	Scheduler  RetryScheduler
	Logger     *zap.Logger
	Metrics    *MetricsService
	Now        func() time.Time
	// OnReady receives every successfully fetched payload of the current job.
	// It runs under the poller lock and must not call back into the poller.
	OnReady func(jobID string, payload *models.SolutionPayload)
	// OnSettle is called once per job when polling reaches a terminal state.
	// It runs under the poller lock and must not call back into the poller.
	OnSettle func(status dto.PollStatus)
}

// SolutionPoller fetches one job's solution at a time, retrying while the
// solver answers "not ready". Starting a new job or cancelling discards any
// pending retry and any in-flight result of the previous one.
type SolutionPoller struct {
	fetcher   SolutionFetcher
	scheduler RetryScheduler
	delay     time.Duration
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
	onReady   func(string, *models.SolutionPayload)
	onSettle  func(dto.PollStatus)

	root       context.Context
	rootCancel context.CancelFunc

	mu        sync.Mutex
	gen       uint64
	timer     RetryTimer
	cancelRun context.CancelFunc
	status    dto.PollStatus
}

// NewSolutionPoller constructs an idle poller.
func NewSolutionPoller(fetcher SolutionFetcher, cfg PollerConfig) *SolutionPoller {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultPollRetryDelay
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = timerScheduler{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	root, cancel := context.WithCancel(context.Background())
	p := &SolutionPoller{
		fetcher:    fetcher,
		scheduler:  cfg.Scheduler,
		delay:      cfg.RetryDelay,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		onReady:    cfg.OnReady,
		onSettle:   cfg.OnSettle,
		root:       root,
		rootCancel: cancel,
	}
	p.status = dto.PollStatus{State: dto.PollStateIdle, UpdatedAt: p.now().UTC()}
	return p
}

// Start begins polling jobID, superseding whatever was running. The first
// attempt runs before Start returns; retries run on the scheduler.
func (p *SolutionPoller) Start(jobID string) dto.PollStatus {
	p.mu.Lock()
	p.stopLocked()
	p.gen++
	gen := p.gen
	ctx, cancel := context.WithCancel(p.root)
	p.cancelRun = cancel
	p.status = dto.PollStatus{
		JobID:     jobID,
		State:     dto.PollStatePolling,
		Message:   messagePollStarted,
		UpdatedAt: p.now().UTC(),
	}
	p.mu.Unlock()

	p.logger.Info("solution polling started", zap.String("job_id", jobID))
	p.attempt(ctx, gen, jobID)
	return p.Status()
}

// Cancel stops the active poll. A pending retry never fires a fetch and an
// in-flight fetch result is discarded.
func (p *SolutionPoller) Cancel() dto.PollStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.gen++
	if p.status.State == dto.PollStatePolling {
		p.status.State = dto.PollStateIdle
		p.status.Message = messagePollStopped
		p.status.UpdatedAt = p.now().UTC()
		p.logger.Info("solution polling cancelled", zap.String("job_id", p.status.JobID))
	}
	return p.status
}

// Status returns a copy of the current poll status.
func (p *SolutionPoller) Status() dto.PollStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Close cancels polling for good.
func (p *SolutionPoller) Close() {
	p.Cancel()
	p.rootCancel()
}

func (p *SolutionPoller) stopLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancelRun != nil {
		p.cancelRun()
		p.cancelRun = nil
	}
}

func (p *SolutionPoller) attempt(ctx context.Context, gen uint64, jobID string) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.status.Attempts++
	p.mu.Unlock()

	payload, err := p.fetcher.FetchSolution(ctx, jobID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}

	switch {
	case err == nil:
		p.metrics.RecordPollAttempt("ready")
		p.status.State = dto.PollStateReady
		p.status.Message = messageSolutionLoaded
		p.status.Error = ""
		p.status.UpdatedAt = p.now().UTC()
		if p.onReady != nil {
			p.onReady(jobID, payload)
		}
		p.logger.Info("solution loaded", zap.String("job_id", jobID), zap.Int("attempts", p.status.Attempts))
		p.settleLocked()
	case errors.Is(err, appErrors.ErrSolutionNotReady):
		p.metrics.RecordPollAttempt("not_ready")
		p.status.Message = messagePollRetrying
		p.status.UpdatedAt = p.now().UTC()
		p.timer = p.scheduler.AfterFunc(p.delay, func() {
			p.attempt(ctx, gen, jobID)
		})
	case errors.Is(err, appErrors.ErrJobNotFound):
		p.metrics.RecordPollAttempt("not_found")
		p.status.State = dto.PollStateNotFound
		p.status.Message = appErrors.ErrJobNotFound.Message
		p.status.Error = appErrors.ErrJobNotFound.Message
		p.status.UpdatedAt = p.now().UTC()
		p.logger.Info("solution job not found", zap.String("job_id", jobID))
		p.settleLocked()
	default:
		p.metrics.RecordPollAttempt("error")
		p.status.State = dto.PollStateError
		p.status.Message = "Error: " + err.Error()
		p.status.Error = err.Error()
		p.status.UpdatedAt = p.now().UTC()
		p.logger.Warn("solution fetch failed", zap.String("job_id", jobID), zap.Error(err))
		p.settleLocked()
	}
}

func (p *SolutionPoller) settleLocked() {
	if p.cancelRun != nil {
		p.cancelRun()
		p.cancelRun = nil
	}
	if p.onSettle != nil {
		p.onSettle(p.status)
	}
}
