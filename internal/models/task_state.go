package models

// TaskState is the ephemeral state of a dispatched task as held by the queue backend
type TaskState string

const (
	TaskPending    TaskState = "PENDING"
	TaskInProgress TaskState = "IN_PROGRESS"
	TaskSuccess    TaskState = "SUCCESS"
	TaskFailure    TaskState = "FAILURE"
	TaskRevoked    TaskState = "REVOKED"
)

// IsTerminal reports whether the task has finished one way or another
func (s TaskState) IsTerminal() bool {
	return s == TaskSuccess || s == TaskFailure || s == TaskRevoked
}

// TaskInfo is the progress or final summary attached to a task state
type TaskInfo struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	File       string `json:"file,omitempty"`
	FolderPath string `json:"folder_path,omitempty"`
	TaskID     string `json:"task_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TaskResult is what GetResult returns for a task id
type TaskResult struct {
	TaskID string    `json:"task_id"`
	State  TaskState `json:"state"`
	Info   TaskInfo  `json:"info"`
}
