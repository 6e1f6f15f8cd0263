package models

import "time"

// JobStatus is the durable status of a sync job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusComplete   JobStatus = "COMPLETE"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// SyncJob is the durable record of one folder-ingestion job
type SyncJob struct {
	BaseModel
	ProgressCounters
	FolderPath   string     `json:"folder_path"`
	HomeDir      string     `json:"home_dir"`
	Status       JobStatus  `json:"status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	TaskID       string     `json:"task_id,omitempty"`
	SourceFiles  []string   `json:"source_files"`
	Error        string     `json:"error,omitempty"`
}

// NewSyncJob returns a PENDING job with zeroed counters
func NewSyncJob(folderPath, homeDir string) *SyncJob {
	return &SyncJob{
		FolderPath:  folderPath,
		HomeDir:     homeDir,
		Status:      JobStatusPending,
		SourceFiles: []string{},
	}
}

// Snapshot is the set of progress fields the worker persists at a milestone
type Snapshot struct {
	ProgressCounters
	Status       JobStatus
	SourceFiles  []string
	LastSyncedAt time.Time
	Error        string
}
