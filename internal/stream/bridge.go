package stream

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/docsync/internal/db"
	"github.com/Kamar-Folarin/docsync/internal/models"
)

// Event status values sent to clients
const (
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// Event is one status frame
type Event struct {
	Status     string `json:"status"`
	Current    *int   `json:"current,omitempty"`
	Total      *int   `json:"total,omitempty"`
	File       string `json:"file,omitempty"`
	FolderPath string `json:"folder_path,omitempty"`
	TaskID     string `json:"task_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Terminal reports whether the stream ends after this event
func (e Event) Terminal() bool {
	return e.Status != StatusInProgress
}

// Sink receives events. An error means the client is gone.
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// ResultSource reads the ephemeral state of a task
type ResultSource interface {
	GetResult(taskID string) models.TaskResult
}

// JobLookup reads durable sync jobs. The bridge uses it to settle tasks whose
// ephemeral state was evicted or never existed.
type JobLookup interface {
	FindSyncJobs(ctx context.Context, filter db.JobFilter) ([]*models.SyncJob, error)
}

// Bridge polls task state and relays it to a client until the task finishes
// or the client goes away
type Bridge struct {
	source   ResultSource
	jobs     JobLookup
	interval time.Duration
	logger   *logrus.Logger
}

// NewBridge creates a bridge over source. jobs may be nil, in which case only
// ephemeral state is consulted.
func NewBridge(source ResultSource, jobs JobLookup, interval time.Duration, logger *logrus.Logger) *Bridge {
	if interval <= 0 {
		interval = time.Second
	}
	return &Bridge{
		source:   source,
		jobs:     jobs,
		interval: interval,
		logger:   logger,
	}
}

// Stream sends an event immediately and then once per interval. It returns after a
// terminal event, or quietly when ctx is done or the sink fails. The task itself
// is never affected.
func (b *Bridge) Stream(ctx context.Context, taskID string, sink Sink) {
	logger := b.logger.WithField("task_id", taskID)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		event := b.current(ctx, logger, taskID)
		if err := sink.Send(ctx, event); err != nil {
			logger.WithError(err).Debug("Status client disconnected")
			return
		}
		if event.Terminal() {
			logger.WithField("status", event.Status).Debug("Status stream finished")
			return
		}

		select {
		case <-ctx.Done():
			logger.Debug("Status stream closed by client")
			return
		case <-ticker.C:
		}
	}
}

// current returns the event for taskID. A PENDING result is also what an unknown
// task reads as, so it is checked against the durable job first.
func (b *Bridge) current(ctx context.Context, logger *logrus.Entry, taskID string) Event {
	res := b.source.GetResult(taskID)
	if res.State != models.TaskPending || b.jobs == nil {
		return EventFor(res)
	}

	jobs, err := b.jobs.FindSyncJobs(ctx, db.JobFilter{TaskID: taskID})
	if err != nil {
		logger.WithError(err).Warn("Failed to look up sync job for task")
		return EventFor(res)
	}
	for _, job := range jobs {
		if job.Status.IsTerminal() {
			return EventForJob(job)
		}
	}
	return EventFor(res)
}

// EventForJob maps a finished sync job to the terminal event sent to clients
func EventForJob(job *models.SyncJob) Event {
	if job.Status == models.JobStatusFailed {
		detail := job.Error
		if detail == "" {
			detail = string(job.Status)
		}
		return Event{Status: StatusError, Detail: detail}
	}

	current, total := job.Accounted(), job.TotalFiles
	return Event{
		Status:     StatusComplete,
		Current:    &current,
		Total:      &total,
		FolderPath: job.FolderPath,
		TaskID:     job.TaskID,
	}
}

// EventFor maps a task result to the event sent to clients
func EventFor(res models.TaskResult) Event {
	current, total := res.Info.Current, res.Info.Total

	switch res.State {
	case models.TaskSuccess:
		return Event{
			Status:     StatusComplete,
			Current:    &current,
			Total:      &total,
			FolderPath: res.Info.FolderPath,
			TaskID:     res.Info.TaskID,
		}
	case models.TaskFailure, models.TaskRevoked:
		detail := res.Info.Error
		if detail == "" {
			detail = string(res.State)
		}
		return Event{Status: StatusError, Detail: detail}
	default:
		return Event{
			Status:  StatusInProgress,
			Current: &current,
			Total:   &total,
			File:    res.Info.File,
		}
	}
}
