package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/docsync/internal/config"
	apperrors "github.com/Kamar-Folarin/docsync/internal/errors"
	"github.com/Kamar-Folarin/docsync/internal/logging"
	"github.com/Kamar-Folarin/docsync/internal/models"
)

func newTestProcessor(t *testing.T, workers, capacity int) *Processor {
	t.Helper()
	cfg := config.DefaultSyncConfig()
	cfg.Workers = workers
	cfg.QueueCapacity = capacity

	p := NewProcessor(cfg, nil, logging.Discard())
	p.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		p.Stop(ctx)
	})
	return p
}

func waitForState(t *testing.T, p *Processor, taskID string, want models.TaskState) models.TaskResult {
	t.Helper()
	var res models.TaskResult
	require.Eventually(t, func() bool {
		res = p.GetResult(taskID)
		return res.State == want
	}, 2*time.Second, 10*time.Millisecond)
	return res
}

func TestProcessor_RunsTasks(t *testing.T) {
	p := newTestProcessor(t, 2, 10)

	id, err := p.Enqueue(func(ctx context.Context, taskID string) error {
		p.UpdateState(taskID, models.TaskInProgress, models.TaskInfo{Current: 1, Total: 2, File: "a.txt"})
		p.UpdateState(taskID, models.TaskSuccess, models.TaskInfo{Current: 2, Total: 2, TaskID: taskID})
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	res := waitForState(t, p, id, models.TaskSuccess)
	assert.Equal(t, 2, res.Info.Current)
	assert.Equal(t, id, res.Info.TaskID)
}

func TestProcessor_UnknownTaskIsPending(t *testing.T) {
	p := newTestProcessor(t, 1, 1)
	assert.Equal(t, models.TaskPending, p.GetResult("nope").State)
}

func TestProcessor_FailureAndPanic(t *testing.T) {
	p := newTestProcessor(t, 1, 10)

	failing, err := p.Enqueue(func(ctx context.Context, taskID string) error {
		return errors.New("boom")
	})
	require.NoError(t, err)
	res := waitForState(t, p, failing, models.TaskFailure)
	assert.Equal(t, "boom", res.Info.Error)

	panicking, err := p.Enqueue(func(ctx context.Context, taskID string) error {
		panic("bad input")
	})
	require.NoError(t, err)
	res = waitForState(t, p, panicking, models.TaskFailure)
	assert.Contains(t, res.Info.Error, "bad input")
}

func TestProcessor_FullBacklog(t *testing.T) {
	p := newTestProcessor(t, 1, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	_, err := p.Enqueue(func(ctx context.Context, taskID string) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	_, err = p.Enqueue(func(ctx context.Context, taskID string) error { return nil })
	require.NoError(t, err)

	_, err = p.Enqueue(func(ctx context.Context, taskID string) error { return nil })
	assert.True(t, apperrors.IsUnavailable(err))

	close(release)
}

func TestProcessor_Revoke(t *testing.T) {
	p := newTestProcessor(t, 1, 10)

	started := make(chan struct{})
	running, err := p.Enqueue(func(ctx context.Context, taskID string) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	ran := make(chan struct{}, 1)
	queued, err := p.Enqueue(func(ctx context.Context, taskID string) error {
		if ctx.Err() == nil {
			ran <- struct{}{}
		}
		return ctx.Err()
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, p.Revoke(queued))
	assert.Equal(t, models.TaskRevoked, p.GetResult(queued).State)

	require.NoError(t, p.Revoke(running))
	waitForState(t, p, running, models.TaskRevoked)

	assert.Empty(t, ran)
	assert.True(t, apperrors.IsNotFound(p.Revoke("unknown")))
}

func TestProcessor_Wait(t *testing.T) {
	p := newTestProcessor(t, 1, 10)

	started := make(chan struct{})
	var finished bool
	running, err := p.Enqueue(func(ctx context.Context, taskID string) error {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished = true
		return ctx.Err()
	})
	require.NoError(t, err)

	queued, err := p.Enqueue(func(ctx context.Context, taskID string) error { return ctx.Err() })
	require.NoError(t, err)

	<-started
	require.NoError(t, p.Revoke(running))
	require.NoError(t, p.Revoke(queued))

	// A queued task returns at once even though the only worker is busy
	require.NoError(t, p.Wait(context.Background(), queued))

	require.NoError(t, p.Wait(context.Background(), running))
	assert.True(t, finished)

	assert.NoError(t, p.Wait(context.Background(), "unknown"))

	t.Run("bounded by ctx", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		begun := make(chan struct{})
		id, err := p.Enqueue(func(ctx context.Context, taskID string) error {
			close(begun)
			<-release
			return nil
		})
		require.NoError(t, err)
		<-begun

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, p.Wait(ctx, id), context.DeadlineExceeded)
	})
}

func TestProcessor_StoppedRejects(t *testing.T) {
	cfg := config.DefaultSyncConfig()
	p := NewProcessor(cfg, nil, logging.Discard())

	_, err := p.Enqueue(func(ctx context.Context, taskID string) error { return nil })
	assert.True(t, apperrors.IsUnavailable(err))

	p.Start(context.Background())
	p.Stop(context.Background())

	_, err = p.Enqueue(func(ctx context.Context, taskID string) error { return nil })
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestMemoryBackend(t *testing.T) {
	b := NewMemoryBackend()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	assert.True(t, b.Set("a", models.TaskInProgress, models.TaskInfo{Current: 1}))
	assert.True(t, b.Set("a", models.TaskSuccess, models.TaskInfo{Current: 2}))
	assert.False(t, b.Set("a", models.TaskFailure, models.TaskInfo{}))
	assert.Equal(t, models.TaskSuccess, b.Get("a").State)

	b.Set("b", models.TaskInProgress, models.TaskInfo{})

	assert.Zero(t, b.Evict(now))
	assert.Equal(t, 1, b.Evict(now.Add(time.Minute)))
	assert.Equal(t, models.TaskPending, b.Get("a").State)
	assert.Equal(t, models.TaskInProgress, b.Get("b").State)
}
