package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-viewer/pkg/errors"
)

type scriptedFetch struct {
	payload *models.SolutionPayload
	err     error
}

type fetcherStub struct {
	mu     sync.Mutex
	script map[string][]scriptedFetch
	calls  []string
}

func newFetcherStub() *fetcherStub {
	return &fetcherStub{script: make(map[string][]scriptedFetch)}
}

func (f *fetcherStub) on(jobID string, results ...scriptedFetch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script[jobID] = append(f.script[jobID], results...)
}

func (f *fetcherStub) FetchSolution(_ context.Context, jobID string) (*models.SolutionPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, jobID)
	queue := f.script[jobID]
	if len(queue) == 0 {
		return nil, errors.New("unexpected fetch")
	}
	next := queue[0]
	f.script[jobID] = queue[1:]
	return next.payload, next.err
}

func (f *fetcherStub) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTimer struct {
	fn      func()
	delay   time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) RetryTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: f, delay: d}
	s.timers = append(s.timers, t)
	return t
}

// fireAll runs every scheduled callback, including stopped ones, to model a
// timer that raced with Stop.
func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	pending := s.timers
	s.timers = nil
	s.mu.Unlock()
	for _, t := range pending {
		t.fn()
	}
}

func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeTimer(nil), s.timers...)
}

func notReady() scriptedFetch {
	return scriptedFetch{err: appErrors.ErrSolutionNotReady}
}

func readyWith(score string) scriptedFetch {
	return scriptedFetch{payload: &models.SolutionPayload{Score: score}}
}

func TestSolutionPollerRetriesUntilReady(t *testing.T) {
	fetcher := newFetcherStub()
	fetcher.on("job-1", notReady(), notReady(), readyWith("0hard/-3soft"))
	sched := &fakeScheduler{}

	var loaded []string
	var settled []dto.PollStatus
	poller := NewSolutionPoller(fetcher, PollerConfig{
		RetryDelay: 500 * time.Millisecond,
		Scheduler:  sched,
		OnReady: func(jobID string, payload *models.SolutionPayload) {
			loaded = append(loaded, jobID+":"+payload.Score)
		},
		OnSettle: func(status dto.PollStatus) { settled = append(settled, status) },
	})

	status := poller.Start("job-1")
	assert.Equal(t, dto.PollStatePolling, status.State)
	assert.Equal(t, 1, status.Attempts)
	require.Len(t, sched.pending(), 1)
	assert.Equal(t, 500*time.Millisecond, sched.pending()[0].delay)

	sched.fireAll()
	assert.Equal(t, dto.PollStatePolling, poller.Status().State)
	sched.fireAll()

	status = poller.Status()
	assert.Equal(t, dto.PollStateReady, status.State)
	assert.Equal(t, 3, status.Attempts)
	assert.Equal(t, 3, fetcher.callCount())
	assert.Equal(t, []string{"job-1:0hard/-3soft"}, loaded)
	require.Len(t, settled, 1)
	assert.Equal(t, dto.PollStateReady, settled[0].State)
	assert.Empty(t, sched.pending())
}

func TestSolutionPollerNotFoundIsTerminal(t *testing.T) {
	fetcher := newFetcherStub()
	fetcher.on("missing", scriptedFetch{err: appErrors.ErrJobNotFound})
	sched := &fakeScheduler{}
	poller := NewSolutionPoller(fetcher, PollerConfig{Scheduler: sched})

	status := poller.Start("missing")

	assert.Equal(t, dto.PollStateNotFound, status.State)
	assert.Equal(t, "Job not found. Please check the Job ID.", status.Message)
	assert.Empty(t, sched.pending())
}

func TestSolutionPollerTransportErrorIsTerminal(t *testing.T) {
	fetcher := newFetcherStub()
	failure := appErrors.Wrap(errors.New("dial tcp: refused"), appErrors.ErrSolverUnavailable.Code, 502, "solver request failed")
	fetcher.on("job-1", scriptedFetch{err: failure})
	sched := &fakeScheduler{}
	poller := NewSolutionPoller(fetcher, PollerConfig{Scheduler: sched})

	status := poller.Start("job-1")

	assert.Equal(t, dto.PollStateError, status.State)
	assert.Contains(t, status.Error, "dial tcp: refused")
	assert.Empty(t, sched.pending())
}

func TestSolutionPollerCancelStopsFurtherFetches(t *testing.T) {
	fetcher := newFetcherStub()
	fetcher.on("job-1", notReady(), readyWith("0hard/0soft"))
	sched := &fakeScheduler{}
	var loaded int
	poller := NewSolutionPoller(fetcher, PollerConfig{
		Scheduler: sched,
		OnReady:   func(string, *models.SolutionPayload) { loaded++ },
	})

	poller.Start("job-1")
	timers := sched.pending()
	require.Len(t, timers, 1)

	status := poller.Cancel()
	assert.Equal(t, dto.PollStateIdle, status.State)
	assert.True(t, timers[0].stopped)

	sched.fireAll()
	assert.Equal(t, 1, fetcher.callCount())
	assert.Zero(t, loaded)
	assert.Equal(t, dto.PollStateIdle, poller.Status().State)
}

func TestSolutionPollerNewJobSupersedesPendingRetry(t *testing.T) {
	fetcher := newFetcherStub()
	fetcher.on("old", notReady(), readyWith("-1hard/0soft"))
	fetcher.on("new", readyWith("0hard/0soft"))
	sched := &fakeScheduler{}
	var loaded []string
	poller := NewSolutionPoller(fetcher, PollerConfig{
		Scheduler: sched,
		OnReady:   func(jobID string, _ *models.SolutionPayload) { loaded = append(loaded, jobID) },
	})

	poller.Start("old")
	status := poller.Start("new")
	assert.Equal(t, dto.PollStateReady, status.State)

	// the old job's retry fires late and must not fetch or publish
	sched.fireAll()
	assert.Equal(t, []string{"old", "new"}, fetcher.calls)
	assert.Equal(t, []string{"new"}, loaded)
	assert.Equal(t, "new", poller.Status().JobID)
}

func TestSolutionPollerDiscardsInFlightResultOfSupersededJob(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	fetcher := &blockingFetcher{release: release, entered: entered}
	var loaded []string
	poller := NewSolutionPoller(fetcher, PollerConfig{
		Scheduler: &fakeScheduler{},
		OnReady: func(jobID string, _ *models.SolutionPayload) {
			loaded = append(loaded, jobID)
		},
	})

	done := make(chan struct{})
	go func() {
		poller.Start("slow")
		close(done)
	}()
	<-entered
	poller.Cancel()
	close(release)
	<-done

	assert.Empty(t, loaded)
	assert.Equal(t, dto.PollStateIdle, poller.Status().State)
}

type blockingFetcher struct {
	release chan struct{}
	entered chan struct{}
}

func (f *blockingFetcher) FetchSolution(_ context.Context, _ string) (*models.SolutionPayload, error) {
	close(f.entered)
	<-f.release
	return &models.SolutionPayload{Score: "0hard/0soft"}, nil
}
