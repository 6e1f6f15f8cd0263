package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/docsync/internal/config"
	"github.com/Kamar-Folarin/docsync/internal/content"
	"github.com/Kamar-Folarin/docsync/internal/db"
	"github.com/Kamar-Folarin/docsync/internal/errors"
	"github.com/Kamar-Folarin/docsync/internal/ingest"
	"github.com/Kamar-Folarin/docsync/internal/logging"
	"github.com/Kamar-Folarin/docsync/internal/models"
	"github.com/Kamar-Folarin/docsync/internal/queue"
	"github.com/Kamar-Folarin/docsync/internal/stream"
	"github.com/Kamar-Folarin/docsync/internal/utils"
)

type ingesterFunc func(ctx context.Context, path string) (ingest.Result, error)

func (f ingesterFunc) Ingest(ctx context.Context, path string) (ingest.Result, error) {
	return f(ctx, path)
}

type staticProvider struct {
	ingester ingest.Ingester
}

func (p staticProvider) Ingester(ingest.Settings) ingest.Ingester {
	return p.ingester
}

// slowProvider delays every ingest of the wrapped provider
type slowProvider struct {
	inner    IngesterProvider
	delay    time.Duration
	ingested atomic.Int32
}

func (p *slowProvider) Ingester(settings ingest.Settings) ingest.Ingester {
	inner := p.inner.Ingester(settings)
	return ingesterFunc(func(ctx context.Context, path string) (ingest.Result, error) {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ingest.Result{}, ctx.Err()
		}
		res, err := inner.Ingest(ctx, path)
		p.ingested.Add(1)
		return res, err
	})
}

// recordingStore keeps every accepted snapshot per job
type recordingStore struct {
	db.Store
	mu        sync.Mutex
	snapshots map[string][]models.Snapshot
}

func (r *recordingStore) UpdateSyncJob(ctx context.Context, id string, upd db.JobUpdate) (bool, error) {
	ok, err := r.Store.UpdateSyncJob(ctx, id, upd)
	if ok && upd.Snapshot != nil {
		r.mu.Lock()
		r.snapshots[id] = append(r.snapshots[id], *upd.Snapshot)
		r.mu.Unlock()
	}
	return ok, err
}

func (r *recordingStore) snapshotsOf(id string) []models.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Snapshot(nil), r.snapshots[id]...)
}

type harness struct {
	store   *recordingStore
	queue   *queue.Processor
	content *content.SQLiteStore
	service *Service
	cfg     *config.SyncConfig
}

func newHarness(t *testing.T, provider IngesterProvider) *harness {
	t.Helper()
	dir := t.TempDir()
	logger := logging.Discard()

	sqlStore, err := db.NewSQLiteStore(filepath.Join(dir, "jobs.db"))
	require.NoError(t, err)
	require.NoError(t, sqlStore.Migrate())
	t.Cleanup(func() { sqlStore.Close() })

	contentStore, err := content.NewSQLiteStore(filepath.Join(dir, "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { contentStore.Close() })

	if provider == nil {
		provider = ingest.NewRegistry(ingest.Options{ChunkWords: 50}, contentStore, logger)
	}

	cfg := config.DefaultSyncConfig()
	cfg.Workers = 2
	store := &recordingStore{Store: sqlStore, snapshots: make(map[string][]models.Snapshot)}

	q := queue.NewProcessor(cfg, nil, logger)
	q.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q.Stop(ctx)
	})

	status := NewStatusManager(store, cfg.MilestoneStep, logger)
	worker := NewWorker(status, q, utils.IdentityTranslator, logger)
	service := NewService(store, status, q, worker, provider, contentStore, ingest.Settings{}, cfg, logger)

	return &harness{store: store, queue: q, content: contentStore, service: service, cfg: cfg}
}

func (h *harness) waitForJob(t *testing.T, jobID string) *models.SyncJob {
	t.Helper()
	var job *models.SyncJob
	require.Eventually(t, func() bool {
		var err error
		job, err = h.service.GetJob(context.Background(), jobID)
		return err == nil && job.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func makeFolder(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("f%02d.txt", i))
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("document number %d", i)), 0o644))
	}
	return dir
}

func TestService_SyncFolderWithRejectedFiles(t *testing.T) {
	folder := makeFolder(t, 23)
	rejectErr := filepath.Join(folder, "f05.txt")
	rejectEmpty := filepath.Join(folder, "f17.txt")

	h := newHarness(t, staticProvider{ingesterFunc(func(ctx context.Context, path string) (ingest.Result, error) {
		switch path {
		case rejectErr:
			return ingest.Result{}, fmt.Errorf("parse error")
		case rejectEmpty:
			return ingest.Result{}, nil
		}
		return ingest.Result{Written: 3}, nil
	})})

	res, err := h.service.Submit(context.Background(), folder, "")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusInProgress, res.Status)
	assert.NotEmpty(t, res.TaskID)

	job := h.waitForJob(t, res.JobID)
	assert.Equal(t, models.JobStatusComplete, job.Status)
	assert.Equal(t, 23, job.TotalFiles)
	assert.Equal(t, 21, job.ProcessedFiles)
	assert.Equal(t, 2, job.SkippedFiles)
	assert.Equal(t, job.TotalFiles, job.ProcessedFiles+job.SkippedFiles)
	assert.Equal(t, 100, job.ProgressPercent)
	assert.Equal(t, res.TaskID, job.TaskID)
	assert.NotNil(t, job.LastSyncedAt)
	assert.Len(t, job.SourceFiles, 21)
	assert.NotContains(t, job.SourceFiles, rejectErr)
	assert.NotContains(t, job.SourceFiles, rejectEmpty)

	snapshots := h.store.snapshotsOf(res.JobID)
	assert.LessOrEqual(t, len(snapshots), 11)
	for i := 1; i < len(snapshots); i++ {
		assert.GreaterOrEqual(t, snapshots[i].ProgressPercent, snapshots[i-1].ProgressPercent)
		assert.GreaterOrEqual(t, len(snapshots[i].SourceFiles), len(snapshots[i-1].SourceFiles))
	}

	result := h.queue.GetResult(res.TaskID)
	assert.Equal(t, models.TaskSuccess, result.State)
	assert.Equal(t, 23, result.Info.Current)
	assert.Equal(t, 23, result.Info.Total)
	assert.Equal(t, folder, result.Info.FolderPath)
	assert.Equal(t, res.TaskID, result.Info.TaskID)
}

func TestService_UnresolvableFolderFails(t *testing.T) {
	h := newHarness(t, staticProvider{ingesterFunc(func(ctx context.Context, path string) (ingest.Result, error) {
		return ingest.Result{Written: 1}, nil
	})})

	res, err := h.service.Submit(context.Background(), filepath.Join(t.TempDir(), "missing"), "")
	require.NoError(t, err)

	job := h.waitForJob(t, res.JobID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Zero(t, job.TotalFiles)
	assert.NotEmpty(t, job.Error)

	require.Eventually(t, func() bool {
		return h.queue.GetResult(res.TaskID).State == models.TaskFailure
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotEmpty(t, h.queue.GetResult(res.TaskID).Info.Error)
}

func TestService_EmptyFolderCompletes(t *testing.T) {
	h := newHarness(t, staticProvider{ingesterFunc(func(ctx context.Context, path string) (ingest.Result, error) {
		return ingest.Result{Written: 1}, nil
	})})

	res, err := h.service.Submit(context.Background(), t.TempDir(), "")
	require.NoError(t, err)

	job := h.waitForJob(t, res.JobID)
	assert.Equal(t, models.JobStatusComplete, job.Status)
	assert.Zero(t, job.TotalFiles)
	assert.Equal(t, 100, job.ProgressPercent)
}

func TestService_SubmitValidation(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.service.Submit(context.Background(), "  ", "/home/u")
	assert.True(t, errors.IsInvalidInput(err))
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(fn queue.TaskFunc) (string, error) {
	args := m.Called(fn)
	return args.String(0), args.Error(1)
}

func (m *mockQueue) UpdateState(taskID string, state models.TaskState, info models.TaskInfo) {
	m.Called(taskID, state, info)
}

func (m *mockQueue) GetResult(taskID string) models.TaskResult {
	args := m.Called(taskID)
	return args.Get(0).(models.TaskResult)
}

func (m *mockQueue) Revoke(taskID string) error {
	args := m.Called(taskID)
	return args.Error(0)
}

func (m *mockQueue) Wait(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func TestService_DispatchFailureMarksJobFailed(t *testing.T) {
	h := newHarness(t, nil)

	q := new(mockQueue)
	q.On("Enqueue", mock.Anything).Return("", errors.NewUnavailableError("task queue is full", nil))
	h.service.queue = q

	_, err := h.service.Submit(context.Background(), "/docs", "/home/u")
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err))

	home := "/home/u"
	folder := "/docs"
	jobs, err := h.store.FindSyncJobs(context.Background(), db.JobFilter{FolderPath: &folder, HomeDir: &home})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobStatusFailed, jobs[0].Status)
	assert.Contains(t, jobs[0].Error, "dispatch failed")
	q.AssertExpectations(t)
}

func TestService_Cancel(t *testing.T) {
	folder := makeFolder(t, 3)
	started := make(chan struct{})
	var once sync.Once

	h := newHarness(t, staticProvider{ingesterFunc(func(ctx context.Context, path string) (ingest.Result, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ingest.Result{}, ctx.Err()
	})})

	res, err := h.service.Submit(context.Background(), folder, "")
	require.NoError(t, err)
	<-started

	require.NoError(t, h.service.Cancel(context.Background(), res.JobID))

	job := h.waitForJob(t, res.JobID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, cancelledReason, job.Error)
	assert.LessOrEqual(t, job.ProcessedFiles+job.SkippedFiles, job.TotalFiles)

	require.Eventually(t, func() bool {
		return h.queue.GetResult(res.TaskID).State == models.TaskRevoked
	}, 2*time.Second, 10*time.Millisecond)

	err = h.service.Cancel(context.Background(), res.JobID)
	assert.True(t, errors.IsConflict(err))

	err = h.service.Cancel(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestService_HistoryAcrossFolders(t *testing.T) {
	h := newHarness(t, staticProvider{ingesterFunc(func(ctx context.Context, path string) (ingest.Result, error) {
		return ingest.Result{Written: 1}, nil
	})})
	ctx := context.Background()

	folderX := makeFolder(t, 5)
	folderY := makeFolder(t, 3)

	resX, err := h.service.Submit(ctx, folderX, "")
	require.NoError(t, err)
	h.waitForJob(t, resX.JobID)

	resY, err := h.service.Submit(ctx, folderY, "")
	require.NoError(t, err)
	h.waitForJob(t, resY.JobID)

	history, err := h.service.History(ctx)
	require.NoError(t, err)
	require.Len(t, history.Results, 2)
	assert.Equal(t, folderY, history.Results[0].FolderPath)
	assert.Equal(t, folderX, history.Results[1].FolderPath)
	assert.Equal(t, 8, history.FileCount)
	assert.Positive(t, history.Results[0].LastSyncedAt)
	assert.GreaterOrEqual(t, history.Results[0].LastSyncedAt, history.Results[1].LastSyncedAt)

	// Resync of X moves it to the top and replaces its row
	resX2, err := h.service.Submit(ctx, folderX, "")
	require.NoError(t, err)
	h.waitForJob(t, resX2.JobID)

	history, err = h.service.History(ctx)
	require.NoError(t, err)
	require.Len(t, history.Results, 2)
	assert.Equal(t, folderX, history.Results[0].FolderPath)
	assert.Equal(t, 8, history.FileCount)
}

func TestService_DeleteFolder(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	folderA := makeFolder(t, 2)
	folderB := makeFolder(t, 1)

	resA, err := h.service.Submit(ctx, folderA, "/home/u")
	require.NoError(t, err)
	jobA := h.waitForJob(t, resA.JobID)
	require.Equal(t, models.JobStatusComplete, jobA.Status)
	require.Len(t, jobA.SourceFiles, 2)

	resB, err := h.service.Submit(ctx, folderB, "/home/u")
	require.NoError(t, err)
	h.waitForJob(t, resB.JobID)

	n, err := h.content.CountBySource(ctx, jobA.SourceFiles[0])
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, h.service.Delete(ctx, folderA, "/home/u"))

	for _, f := range jobA.SourceFiles {
		n, err := h.content.CountBySource(ctx, f)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	_, err = h.service.GetJob(ctx, resA.JobID)
	assert.True(t, errors.IsNotFound(err))

	history, err := h.service.History(ctx)
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.Equal(t, folderB, history.Results[0].FolderPath)

	require.NoError(t, h.service.Delete(ctx, DeleteAllSentinel, ""))
	history, err = h.service.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history.Results)

	docs, err := h.content.Search(ctx, "document")
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.True(t, errors.IsInvalidInput(h.service.Delete(ctx, "", "")))
}

func TestService_DeleteDuringSyncLeavesNoContent(t *testing.T) {
	folder := makeFolder(t, 40)
	slow := &slowProvider{delay: 20 * time.Millisecond}
	h := newHarness(t, slow)
	slow.inner = ingest.NewRegistry(ingest.Options{ChunkWords: 50}, h.content, logging.Discard())
	ctx := context.Background()

	res, err := h.service.Submit(ctx, folder, "/home/u")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return slow.ingested.Load() >= 7
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, h.service.Delete(ctx, folder, "/home/u"))

	docs, err := h.content.Search(ctx, "document")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = h.service.GetJob(ctx, res.JobID)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, models.TaskRevoked, h.queue.GetResult(res.TaskID).State)
	assert.Less(t, int(slow.ingested.Load()), 40)
}

// droppingSink accepts a fixed number of events and then fails like a closed socket
type droppingSink struct {
	limit  int
	events []stream.Event
}

func (s *droppingSink) Send(ctx context.Context, event stream.Event) error {
	if len(s.events) == s.limit {
		return fmt.Errorf("connection reset by peer")
	}
	s.events = append(s.events, event)
	return nil
}

func TestService_StatusClientDisconnectKeepsJobRunning(t *testing.T) {
	folder := makeFolder(t, 10)
	h := newHarness(t, staticProvider{ingesterFunc(func(ctx context.Context, path string) (ingest.Result, error) {
		time.Sleep(10 * time.Millisecond)
		return ingest.Result{Written: 1}, nil
	})})
	ctx := context.Background()

	res, err := h.service.Submit(ctx, folder, "/home/u")
	require.NoError(t, err)

	sink := &droppingSink{limit: 2}
	stream.NewBridge(h.queue, h.store, time.Millisecond, logging.Discard()).Stream(ctx, res.TaskID, sink)
	require.Len(t, sink.events, 2)
	assert.Equal(t, stream.StatusInProgress, sink.events[1].Status)

	job := h.waitForJob(t, res.JobID)
	assert.Equal(t, models.JobStatusComplete, job.Status)

	history, err := h.service.History(ctx)
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.Equal(t, folder, history.Results[0].FolderPath)
	assert.Equal(t, 10, history.Results[0].TotalFiles)
	assert.Equal(t, 10, history.Results[0].ProcessedFiles)
}

// settingsProvider records the settings every ingester was built for
type settingsProvider struct {
	mu   sync.Mutex
	seen []ingest.Settings
}

func (p *settingsProvider) Ingester(settings ingest.Settings) ingest.Ingester {
	p.mu.Lock()
	p.seen = append(p.seen, settings)
	p.mu.Unlock()
	return ingesterFunc(func(ctx context.Context, path string) (ingest.Result, error) {
		return ingest.Result{Written: 1}, nil
	})
}

func TestService_SetSettingsAppliesToNewJobs(t *testing.T) {
	provider := &settingsProvider{}
	h := newHarness(t, provider)
	ctx := context.Background()
	folder := makeFolder(t, 1)

	res, err := h.service.Submit(ctx, folder, "/home/u")
	require.NoError(t, err)
	h.waitForJob(t, res.JobID)

	large := ingest.Settings{Provider: "local", Model: "large"}
	h.service.SetSettings(large)
	assert.Equal(t, large, h.service.Settings())

	res, err = h.service.Submit(ctx, folder, "/home/u")
	require.NoError(t, err)
	h.waitForJob(t, res.JobID)

	provider.mu.Lock()
	defer provider.mu.Unlock()
	require.Len(t, provider.seen, 2)
	assert.Equal(t, ingest.Settings{}, provider.seen[0])
	assert.Equal(t, large, provider.seen[1])
}

func TestService_ReapStale(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	stale := models.NewSyncJob("/old", "")
	stale.CreatedAt = time.Now().Add(-time.Hour).UTC()
	require.NoError(t, h.store.CreateSyncJob(ctx, stale))

	fresh := models.NewSyncJob("/new", "")
	require.NoError(t, h.store.CreateSyncJob(ctx, fresh))

	n, err := h.service.ReapStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := h.service.GetJob(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "dispatch timed out", job.Error)

	job, err = h.service.GetJob(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
}
