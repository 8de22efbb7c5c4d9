package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticCountries []string

func (s staticCountries) Countries() []string { return s }

type recordingExecutor struct {
	mu    sync.Mutex
	seen  []string
	fails atomic.Int32
	done  chan struct{}
}

func (e *recordingExecutor) Execute(_ context.Context, job *Job) error {
	if e.fails.Load() > 0 {
		e.fails.Add(-1)
		return errors.New("gateway down")
	}
	e.mu.Lock()
	e.seen = append(e.seen, job.Country)
	e.mu.Unlock()
	e.done <- struct{}{}
	return nil
}

func waitFor(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d jobs", i, n)
		}
	}
}

func TestScheduler_SubmitRequiresStart(t *testing.T) {
	s := NewScheduler(Config{}, ExecutorFunc(func(context.Context, *Job) error { return nil }), zap.NewNop())

	err := s.SubmitJob(NewJob("co", time.Now(), 0))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_RunsJobs(t *testing.T) {
	exec := &recordingExecutor{done: make(chan struct{}, 10)}
	s := NewScheduler(Config{MaxConcurrentJobs: 2, JobTimeout: time.Second}, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	require.NoError(t, s.SubmitJob(NewJob("co", time.Now(), 0)))
	require.NoError(t, s.SubmitJob(NewJob("mx", time.Now(), 0)))
	waitFor(t, exec.done, 2)

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.ElementsMatch(t, []string{"co", "mx"}, exec.seen)
}

func TestScheduler_RetriesFailedJob(t *testing.T) {
	exec := &recordingExecutor{done: make(chan struct{}, 10)}
	exec.fails.Store(2)
	s := NewScheduler(Config{MaxConcurrentJobs: 1, RetryDelay: time.Millisecond}, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	job := NewJob("pe", time.Now(), 3)
	require.NoError(t, s.SubmitJob(job))
	waitFor(t, exec.done, 1)

	assert.Equal(t, []string{"pe"}, exec.seen)
}

func TestJob_ShouldRetry(t *testing.T) {
	job := NewJob("co", time.Now(), 1)
	assert.False(t, job.ShouldRetry())

	job.fail("boom")
	assert.True(t, job.ShouldRetry())

	job.RetryCount = 1
	assert.False(t, job.ShouldRetry())
}

func TestCronTrigger_FiresOncePerDay(t *testing.T) {
	var submitted atomic.Int32
	done := make(chan struct{}, 10)
	s := NewScheduler(Config{MaxConcurrentJobs: 1}, ExecutorFunc(func(context.Context, *Job) error {
		submitted.Add(1)
		done <- struct{}{}
		return nil
	}), zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	trigger := NewCronTrigger(CronTriggerConfig{RunHour: 23, RunMinute: 30}, s, staticCountries{"CO", "MX"}, zap.NewNop())
	now := time.Date(2025, 10, 21, 23, 29, 0, 0, time.UTC)
	trigger.now = func() time.Time { return now }

	assert.False(t, trigger.checkAndTrigger(), "before run time")

	now = now.Add(2 * time.Minute)
	assert.True(t, trigger.checkAndTrigger())
	assert.False(t, trigger.checkAndTrigger(), "already ran today")
	waitFor(t, done, 2)

	now = time.Date(2025, 10, 22, 23, 30, 0, 0, time.UTC)
	assert.True(t, trigger.checkAndTrigger(), "next day")
	waitFor(t, done, 2)

	assert.Equal(t, int32(4), submitted.Load())
}

func TestCronTrigger_MidnightRun(t *testing.T) {
	s := NewScheduler(Config{}, ExecutorFunc(func(context.Context, *Job) error { return nil }), zap.NewNop())
	trigger := NewCronTrigger(CronTriggerConfig{RunHour: 0, RunMinute: 0}, s, staticCountries{"CO"}, zap.NewNop())
	trigger.now = func() time.Time { return time.Date(2025, 10, 21, 0, 0, 5, 0, time.UTC) }

	assert.True(t, trigger.checkAndTrigger())
}

func TestCronTrigger_StartStop(t *testing.T) {
	s := NewScheduler(Config{}, ExecutorFunc(func(context.Context, *Job) error { return nil }), zap.NewNop())
	trigger := NewCronTrigger(CronTriggerConfig{CheckInterval: time.Millisecond}, s, staticCountries{}, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
}
