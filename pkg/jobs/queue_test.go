package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	var calls int32
	done := make(chan Job, 1)
	q.Register("persist", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		done <- job
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "persist"}))

	select {
	case job := <-done:
		assert.Equal(t, 2, job.Attempt)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to success")
	}
}

func TestQueueReportsExhaustedJobs(t *testing.T) {
	exhausted := make(chan error, 1)
	q := NewQueue("test", QueueConfig{
		Workers:     1,
		MaxRetries:  1,
		RetryDelay:  time.Millisecond,
		OnExhausted: func(_ Job, err error) { exhausted <- err },
	})
	q.Register("persist", func(context.Context, Job) error { return errors.New("boom") })
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "persist"}))

	select {
	case err := <-exhausted:
		assert.EqualError(t, err, "boom")
	case <-time.After(2 * time.Second):
		t.Fatal("exhaustion callback not called")
	}
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x", Type: "persist"}))
}
