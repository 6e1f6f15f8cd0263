package syncer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/docsync/internal/config"
	"github.com/Kamar-Folarin/docsync/internal/db"
	"github.com/Kamar-Folarin/docsync/internal/errors"
	"github.com/Kamar-Folarin/docsync/internal/ingest"
	"github.com/Kamar-Folarin/docsync/internal/models"
	"github.com/Kamar-Folarin/docsync/pkg/utils"
)

// DeleteAllSentinel as a folder path deletes every document and every job record
const DeleteAllSentinel = "all"

// SubmitResult is returned to the client once a job is dispatched
type SubmitResult struct {
	JobID  string           `json:"job_id"`
	TaskID string           `json:"task_id"`
	Status models.JobStatus `json:"status"`
}

// Service submits, inspects, cancels and deletes folder sync jobs
type Service struct {
	store     db.Store
	status    *StatusManager
	queue     TaskQueue
	worker    *Worker
	ingesters IngesterProvider
	content   ContentRemover
	config    *config.SyncConfig
	logger    *logrus.Logger
	now       func() time.Time

	mu       sync.RWMutex
	settings ingest.Settings
}

// NewService wires a sync service
func NewService(
	store db.Store,
	status *StatusManager,
	queue TaskQueue,
	worker *Worker,
	ingesters IngesterProvider,
	content ContentRemover,
	settings ingest.Settings,
	cfg *config.SyncConfig,
	logger *logrus.Logger,
) *Service {
	return &Service{
		store:     store,
		status:    status,
		queue:     queue,
		worker:    worker,
		ingesters: ingesters,
		content:   content,
		settings:  settings,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit records a PENDING job for the folder and dispatches it. It does not wait
// for the job to run.
func (s *Service) Submit(ctx context.Context, folderPath, homeDir string) (*SubmitResult, error) {
	folderPath = strings.TrimSpace(folderPath)
	if folderPath == "" {
		return nil, errors.NewValidationError("folder_path is required", nil)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"folder": folderPath,
		"home":   homeDir,
	})

	job := models.NewSyncJob(folderPath, homeDir)
	if err := s.store.CreateSyncJob(ctx, job); err != nil {
		logger.WithError(err).Error("Failed to create sync job")
		return nil, errors.NewInternalError("failed to create sync job", err)
	}
	logger = logger.WithField("job_id", job.ID)

	run := Job{
		ID:         job.ID,
		FolderPath: folderPath,
		HomeDir:    homeDir,
		Ingester:   s.ingesters.Ingester(s.Settings()),
	}
	taskID, err := s.queue.Enqueue(func(ctx context.Context, taskID string) error {
		run.TaskID = taskID
		return s.worker.Run(ctx, run)
	})
	if err != nil {
		logger.WithError(err).Error("Failed to dispatch sync job")
		if _, markErr := s.status.MarkFailed(ctx, job.ID, fmt.Sprintf("dispatch failed: %v", err)); markErr != nil {
			logger.WithError(markErr).Error("Failed to mark undispatched job failed")
		}
		if errors.IsUnavailable(err) {
			return nil, err
		}
		return nil, errors.NewUnavailableError("failed to dispatch sync job", err)
	}
	logger = logger.WithField("task_id", taskID)

	if _, err := s.status.MarkDispatched(ctx, job.ID, taskID); err != nil {
		logger.WithError(err).Warn("Failed to record dispatched task")
	}

	logger.Info("Sync job dispatched")
	return &SubmitResult{
		JobID:  job.ID,
		TaskID: taskID,
		Status: models.JobStatusInProgress,
	}, nil
}

// Settings returns the pipeline settings new jobs are built with
func (s *Service) Settings() ingest.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings changes the pipeline settings for jobs submitted from now on. Running
// jobs keep the ingester they started with.
func (s *Service) SetSettings(settings ingest.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// GetJob returns one job record
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.SyncJob, error) {
	return s.store.GetSyncJob(ctx, jobID)
}

// History returns the latest completed job of every folder, newest first
func (s *Service) History(ctx context.Context) (*models.SyncedFolders, error) {
	jobs, err := s.store.LatestCompletedPerFolder(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to load synced folders", err)
	}

	out := &models.SyncedFolders{Results: make([]models.SyncedFolderRecord, 0, len(jobs))}
	for _, job := range jobs {
		out.Results = append(out.Results, models.SyncedFolderRecord{
			FolderPath:     job.FolderPath,
			LastSyncedAt:   utils.EpochMillis(job.LastSyncedAt),
			TotalFiles:     job.TotalFiles,
			ProcessedFiles: job.ProcessedFiles,
			SkippedFiles:   job.SkippedFiles,
			Status:         job.Status,
		})
		out.FileCount += job.ProcessedFiles
	}
	return out, nil
}

// Delete removes the content ingested from a folder and its job records.
// DeleteAllSentinel removes everything.
func (s *Service) Delete(ctx context.Context, folderPath, homeDir string) error {
	folderPath = strings.TrimSpace(folderPath)
	if folderPath == "" {
		return errors.NewValidationError("folder_path is required", nil)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"folder": folderPath,
		"home":   homeDir,
	})

	filter := db.JobFilter{FolderPath: &folderPath, HomeDir: &homeDir}
	if folderPath == DeleteAllSentinel {
		filter = db.JobFilter{}
	}

	jobs, err := s.store.FindSyncJobs(ctx, filter)
	if err != nil {
		return errors.NewInternalError("failed to find sync jobs", err)
	}

	// Revoked jobs persist the files they wrote when they stop, so the jobs are
	// read again once their tasks have returned.
	if s.revokeActive(ctx, logger, jobs) {
		jobs, err = s.store.FindSyncJobs(ctx, filter)
		if err != nil {
			return errors.NewInternalError("failed to find sync jobs", err)
		}
	}

	var removed int64
	if folderPath == DeleteAllSentinel {
		removed, err = s.content.DeleteAll(ctx)
	} else {
		removed, err = s.content.DeleteBySource(ctx, sourceFilesOf(jobs))
	}
	if err != nil {
		logger.WithError(err).Error("Failed to delete content")
		return errors.NewInternalError("failed to delete content", err)
	}

	records, err := s.store.DeleteSyncJobs(ctx, filter)
	if err != nil {
		logger.WithError(err).Error("Failed to delete sync jobs")
		return errors.NewInternalError("failed to delete sync jobs", err)
	}

	logger.WithFields(logrus.Fields{
		"documents": removed,
		"jobs":      records,
	}).Info("Deleted folder")
	return nil
}

// Cancel revokes the task of a job that has not finished
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	job, err := s.store.GetSyncJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return errors.NewConflictError(fmt.Sprintf("sync job %s is already %s", jobID, job.Status), nil)
	}
	if job.TaskID == "" {
		return errors.NewConflictError(fmt.Sprintf("sync job %s has not been dispatched", jobID), nil)
	}

	if err := s.queue.Revoke(job.TaskID); err != nil {
		if errors.IsNotFound(err) {
			return errors.NewConflictError(fmt.Sprintf("sync job %s is no longer running", jobID), err)
		}
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"job_id":  jobID,
		"task_id": job.TaskID,
	}).Info("Sync job cancelled")
	return nil
}

// ReapStale fails PENDING jobs older than the pending timeout and returns how many changed
func (s *Service) ReapStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.PendingTimeout)
	jobs, err := s.store.FindSyncJobs(ctx, db.JobFilter{
		Statuses:      []models.JobStatus{models.JobStatusPending},
		CreatedBefore: &cutoff,
	})
	if err != nil {
		return 0, errors.NewInternalError("failed to find stale jobs", err)
	}

	reaped := 0
	for _, job := range jobs {
		ok, err := s.status.MarkFailed(ctx, job.ID, "dispatch timed out")
		if err != nil {
			return reaped, err
		}
		if ok {
			reaped++
			s.logger.WithField("job_id", job.ID).Warn("Reaped stale pending job")
		}
	}
	return reaped, nil
}

// RunReaper calls ReapStale every interval until ctx is done
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ReapStale(ctx); err != nil {
				s.logger.WithError(err).Error("Failed to reap stale jobs")
			}
		}
	}
}

// revokeActive revokes the tasks of unfinished jobs and waits for them to return.
// It reports whether any task was revoked.
func (s *Service) revokeActive(ctx context.Context, logger *logrus.Entry, jobs []*models.SyncJob) bool {
	var revoked []*models.SyncJob
	for _, job := range jobs {
		if job.Status.IsTerminal() || job.TaskID == "" {
			continue
		}
		if err := s.queue.Revoke(job.TaskID); err != nil {
			if !errors.IsNotFound(err) {
				logger.WithError(err).WithField("job_id", job.ID).Warn("Failed to revoke running job")
			}
			continue
		}
		revoked = append(revoked, job)
	}

	for _, job := range revoked {
		if err := s.queue.Wait(ctx, job.TaskID); err != nil {
			logger.WithError(err).WithField("job_id", job.ID).Warn("Stopped waiting for revoked job")
		}
	}
	return len(revoked) > 0
}

func sourceFilesOf(jobs []*models.SyncJob) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, job := range jobs {
		for _, f := range job.SourceFiles {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			files = append(files, f)
		}
	}
	return files
}
