package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/docsync/internal/db"
	"github.com/Kamar-Folarin/docsync/internal/errors"
	"github.com/Kamar-Folarin/docsync/internal/models"
	"github.com/Kamar-Folarin/docsync/pkg/utils"
)

var (
	beforeRun   = []models.JobStatus{models.JobStatusPending}
	whileActive = []models.JobStatus{models.JobStatusPending, models.JobStatusInProgress}
	whileRun    = []models.JobStatus{models.JobStatusInProgress}
)

// StatusManager owns the writes to durable job records
type StatusManager struct {
	store  db.Store
	step   int
	logger *logrus.Logger
	now    func() time.Time
}

// NewStatusManager creates a status manager persisting a snapshot every step percent
func NewStatusManager(store db.Store, step int, logger *logrus.Logger) *StatusManager {
	if step <= 0 {
		step = 10
	}
	return &StatusManager{
		store:  store,
		step:   step,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Begin moves a job to IN_PROGRESS under the given task id
func (m *StatusManager) Begin(ctx context.Context, jobID, taskID string) error {
	status := models.JobStatusInProgress
	ok, err := m.store.UpdateSyncJob(ctx, jobID, db.JobUpdate{
		TaskID: &taskID,
		Status: &status,
		OnlyIf: whileActive,
	})
	if err != nil {
		return fmt.Errorf("failed to start sync job: %w", err)
	}
	if !ok {
		return errors.NewConflictError(fmt.Sprintf("sync job %s cannot start", jobID), nil)
	}
	return nil
}

// MarkDispatched records the task id of a job that is still PENDING. It reports false when
// the worker already picked the job up.
func (m *StatusManager) MarkDispatched(ctx context.Context, jobID, taskID string) (bool, error) {
	status := models.JobStatusInProgress
	ok, err := m.store.UpdateSyncJob(ctx, jobID, db.JobUpdate{
		TaskID: &taskID,
		Status: &status,
		OnlyIf: beforeRun,
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark sync job dispatched: %w", err)
	}
	return ok, nil
}

// MarkFailed fails a job that never started running
func (m *StatusManager) MarkFailed(ctx context.Context, jobID, reason string) (bool, error) {
	status := models.JobStatusFailed
	ok, err := m.store.UpdateSyncJob(ctx, jobID, db.JobUpdate{
		Status: &status,
		Error:  &reason,
		OnlyIf: beforeRun,
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark sync job failed: %w", err)
	}
	return ok, nil
}

// Track starts milestone tracking for a running job
func (m *StatusManager) Track(jobID string, total int) *Progress {
	return &Progress{
		m:     m,
		jobID: jobID,
		last:  models.Snapshot{ProgressCounters: models.ProgressCounters{TotalFiles: total}, SourceFiles: []string{}},
	}
}

// Progress persists snapshots of one job. Percent never decreases and counters
// never exceed the total.
type Progress struct {
	m         *StatusManager
	jobID     string
	last      models.Snapshot
	milestone int
}

// Record accepts the counters after current files and persists a snapshot when a
// milestone is crossed or the last file was reached
func (p *Progress) Record(ctx context.Context, current int, processed, skipped int, sourceFiles []string) (bool, error) {
	total := p.last.TotalFiles
	counters := models.ProgressCounters{
		TotalFiles:      total,
		ProcessedFiles:  processed,
		SkippedFiles:    skipped,
		ProgressPercent: utils.Percent(current, total),
	}
	if err := p.check(counters); err != nil {
		return false, err
	}

	if counters.ProgressPercent < p.milestone+p.m.step && current < total {
		p.last.ProgressCounters = counters
		p.last.SourceFiles = append(p.last.SourceFiles[:0:0], sourceFiles...)
		return false, nil
	}

	snap := models.Snapshot{
		ProgressCounters: counters,
		Status:           models.JobStatusInProgress,
		SourceFiles:      append([]string(nil), sourceFiles...),
		LastSyncedAt:     p.m.now(),
	}
	if err := p.persist(ctx, snap, whileRun); err != nil {
		return false, err
	}
	p.milestone = counters.ProgressPercent
	return true, nil
}

// Complete persists the final COMPLETE snapshot
func (p *Progress) Complete(ctx context.Context, syncedAt time.Time) error {
	counters := p.last.ProgressCounters
	counters.ProgressPercent = 100
	if counters.Accounted() != counters.TotalFiles {
		return errors.NewInternalError(fmt.Sprintf("sync job %s accounted %d of %d files", p.jobID, counters.Accounted(), counters.TotalFiles), nil)
	}

	return p.persist(ctx, models.Snapshot{
		ProgressCounters: counters,
		Status:           models.JobStatusComplete,
		SourceFiles:      p.last.SourceFiles,
		LastSyncedAt:     syncedAt,
	}, whileRun)
}

// Fail persists FAILED with the counters reached so far
func (p *Progress) Fail(ctx context.Context, reason string) error {
	return p.persist(ctx, models.Snapshot{
		ProgressCounters: p.last.ProgressCounters,
		Status:           models.JobStatusFailed,
		SourceFiles:      p.last.SourceFiles,
		LastSyncedAt:     p.m.now(),
		Error:            reason,
	}, whileActive)
}

// Counters returns the counters last accepted by Record
func (p *Progress) Counters() models.ProgressCounters {
	return p.last.ProgressCounters
}

func (p *Progress) check(c models.ProgressCounters) error {
	if c.Accounted() > c.TotalFiles {
		return errors.NewInternalError(fmt.Sprintf("sync job %s accounted %d of %d files", p.jobID, c.Accounted(), c.TotalFiles), nil)
	}
	if c.ProgressPercent < p.last.ProgressPercent {
		return errors.NewConflictError(fmt.Sprintf("sync job %s progress would drop from %d to %d", p.jobID, p.last.ProgressPercent, c.ProgressPercent), nil)
	}
	return nil
}

func (p *Progress) persist(ctx context.Context, snap models.Snapshot, onlyIf []models.JobStatus) error {
	if snap.SourceFiles == nil {
		snap.SourceFiles = []string{}
	}
	ok, err := p.m.store.UpdateSyncJob(ctx, p.jobID, db.JobUpdate{Snapshot: &snap, OnlyIf: onlyIf})
	if err != nil {
		return fmt.Errorf("failed to persist sync job snapshot: %w", err)
	}
	if !ok {
		return errors.NewConflictError(fmt.Sprintf("sync job %s rejected %s snapshot at %d%%", p.jobID, snap.Status, snap.ProgressPercent), nil)
	}

	p.last = snap
	p.m.logger.WithFields(logrus.Fields{
		"job_id":   p.jobID,
		"status":   snap.Status,
		"progress": snap.ProgressPercent,
	}).Debug("Persisted sync job snapshot")
	return nil
}
