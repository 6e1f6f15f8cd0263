package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/docsync/internal/errors"
	"github.com/Kamar-Folarin/docsync/internal/ingest"
	"github.com/Kamar-Folarin/docsync/internal/models"
	"github.com/Kamar-Folarin/docsync/internal/utils"
)

const cancelledReason = "cancelled"

// Job is one dispatched folder sync
type Job struct {
	ID         string
	TaskID     string
	FolderPath string
	HomeDir    string
	Ingester   ingest.Ingester
}

// Worker executes sync jobs: enumerate the folder, ingest every file in order,
// then finalize the durable record
type Worker struct {
	status    *StatusManager
	queue     TaskQueue
	translate utils.PathTranslator
	logger    *logrus.Logger
	now       func() time.Time
}

func NewWorker(status *StatusManager, queue TaskQueue, translate utils.PathTranslator, logger *logrus.Logger) *Worker {
	if translate == nil {
		translate = utils.IdentityTranslator
	}
	return &Worker{
		status:    status,
		queue:     queue,
		translate: translate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes job to a terminal state. Durable writes use a context that outlives
// cancellation so a revoked job still records FAILED.
func (w *Worker) Run(ctx context.Context, job Job) (err error) {
	logger := w.logger.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"task_id": job.TaskID,
		"folder":  job.FolderPath,
	})
	storeCtx := context.WithoutCancel(ctx)

	if err := w.status.Begin(storeCtx, job.ID, job.TaskID); err != nil {
		logger.WithError(err).Error("Failed to start sync job")
		w.queue.UpdateState(job.TaskID, models.TaskFailure, models.TaskInfo{TaskID: job.TaskID, Error: err.Error()})
		return err
	}

	progress := w.status.Track(job.ID, 0)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync worker panicked: %v", r)
			logger.WithField("panic", r).Error("Sync job panicked")
			w.fail(storeCtx, logger, job, progress, err.Error(), models.TaskFailure)
		}
	}()

	if ctx.Err() != nil {
		w.fail(storeCtx, logger, job, progress, cancelledReason, models.TaskRevoked)
		return ctx.Err()
	}

	// Enumerating
	logger.Info("Enumerating folder")
	resolved, err := w.translate(job.FolderPath, job.HomeDir)
	var files []string
	if err == nil {
		files, err = utils.ListFiles(resolved)
	}
	if err != nil {
		err = errors.NewFolderResolutionError(job.FolderPath, err)
		logger.WithError(err).Error("Failed to enumerate folder")
		w.fail(storeCtx, logger, job, progress, err.Error(), models.TaskFailure)
		return err
	}

	total := len(files)
	progress = w.status.Track(job.ID, total)
	logger = logger.WithField("total", total)
	logger.Info("Processing folder")

	// Processing
	var processed, skipped int
	sourceFiles := make([]string, 0, total)
	for i, file := range files {
		if ctx.Err() != nil {
			logger.WithField("current", i).Warn("Sync job cancelled")
			w.fail(storeCtx, logger, job, progress, cancelledReason, models.TaskRevoked)
			return ctx.Err()
		}

		res, ingestErr := job.Ingester.Ingest(ctx, file)
		switch {
		case ingestErr != nil:
			logger.WithError(ingestErr).WithField("file", file).Warn("Failed to ingest file, skipping")
			skipped++
		case res.Written > 0:
			processed++
			sourceFiles = append(sourceFiles, file)
		default:
			logger.WithField("file", file).Debug("Nothing written for file, skipping")
			skipped++
		}

		current := i + 1
		w.queue.UpdateState(job.TaskID, models.TaskInProgress, models.TaskInfo{
			Current: current,
			Total:   total,
			File:    file,
		})

		if _, err := progress.Record(storeCtx, current, processed, skipped, sourceFiles); err != nil {
			logger.WithError(err).Error("Failed to record progress")
			w.fail(storeCtx, logger, job, progress, err.Error(), models.TaskFailure)
			return err
		}
	}

	// Finalizing
	if err := progress.Complete(storeCtx, w.now()); err != nil {
		logger.WithError(err).Error("Failed to finalize sync job")
		w.fail(storeCtx, logger, job, progress, err.Error(), models.TaskFailure)
		return err
	}

	w.queue.UpdateState(job.TaskID, models.TaskSuccess, models.TaskInfo{
		Current:    total,
		Total:      total,
		FolderPath: job.FolderPath,
		TaskID:     job.TaskID,
	})

	logger.WithFields(logrus.Fields{
		"processed": processed,
		"skipped":   skipped,
	}).Info("Sync job complete")
	return nil
}

func (w *Worker) fail(ctx context.Context, logger *logrus.Entry, job Job, progress *Progress, reason string, state models.TaskState) {
	if err := progress.Fail(ctx, reason); err != nil {
		logger.WithError(err).Error("Failed to persist FAILED status")
	}
	c := progress.Counters()
	w.queue.UpdateState(job.TaskID, state, models.TaskInfo{
		Current: c.Accounted(),
		Total:   c.TotalFiles,
		TaskID:  job.TaskID,
		Error:   reason,
	})
}
