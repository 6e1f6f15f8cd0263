package syncer

import (
	"context"

	"github.com/Kamar-Folarin/docsync/internal/ingest"
	"github.com/Kamar-Folarin/docsync/internal/models"
	"github.com/Kamar-Folarin/docsync/internal/queue"
)

// TaskQueue dispatches jobs and holds their ephemeral state
type TaskQueue interface {
	// Enqueue schedules fn and returns the task id
	Enqueue(fn queue.TaskFunc) (string, error)

	// UpdateState records the ephemeral state of a task
	UpdateState(taskID string, state models.TaskState, info models.TaskInfo)

	// GetResult returns the ephemeral state of a task
	GetResult(taskID string) models.TaskResult

	// Revoke cancels a queued or running task
	Revoke(taskID string) error

	// Wait blocks until a running task has returned
	Wait(ctx context.Context, taskID string) error
}

// ContentRemover deletes ingested content
type ContentRemover interface {
	DeleteBySource(ctx context.Context, sourceFiles []string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// IngesterProvider hands out the ingester built for a settings value
type IngesterProvider interface {
	Ingester(settings ingest.Settings) ingest.Ingester
}
