package api

import (
	_ "github.com/Kamar-Folarin/docsync/docs"
)

// SyncRequest asks for a folder to be synced
// @Description Folder to ingest, as seen from the client machine
type SyncRequest struct {
	// Folder to sync
	FolderPath string `json:"folder_path" binding:"required" example:"/Users/ann/Documents/notes"`
	// Home directory of the client user, used for path translation
	HomeDir string `json:"home_dir" example:"/Users/ann"`
}

// DeleteFolderRequest asks for a folder's content and history to be removed
// @Description Use folder_path "all" to delete everything
type DeleteFolderRequest struct {
	FolderPath string `json:"folder_path" binding:"required" example:"/Users/ann/Documents/notes"`
	HomeDir    string `json:"home_dir" example:"/Users/ann"`
}

// SyncResponse is returned once a sync job has been dispatched
type SyncResponse struct {
	JobID  string `json:"job_id" example:"5b7c0f7e-3c1a-4f0e-9a57-0d6c1c3e2b11"`
	TaskID string `json:"task_id" example:"0e8d7f0a-6f2b-4a55-8a43-2f4d1f7b9c20"`
	Status string `json:"status" example:"IN_PROGRESS"`
}

// SyncedFolder is one row of the sync history
type SyncedFolder struct {
	FolderPath     string `json:"folder_path" example:"/Users/ann/Documents/notes"`
	LastSyncedAt   int64  `json:"last_synced_at" example:"1718000000000"`
	TotalFiles     int    `json:"total_files" example:"23"`
	ProcessedFiles int    `json:"processed_files" example:"21"`
	SkippedFiles   int    `json:"skipped_files" example:"2"`
	Status         string `json:"status" example:"COMPLETE"`
}

// SyncedFoldersResponse lists the latest completed sync of every folder
type SyncedFoldersResponse struct {
	Results   []SyncedFolder `json:"results"`
	FileCount int            `json:"file_count" example:"21"`
}

// StatusEvent is one frame of the sync status websocket
// @Description status is in_progress, complete or error
type StatusEvent struct {
	Status     string `json:"status" example:"in_progress"`
	Current    int    `json:"current,omitempty" example:"4"`
	Total      int    `json:"total,omitempty" example:"23"`
	File       string `json:"file,omitempty" example:"/host/home/Documents/notes/a.md"`
	FolderPath string `json:"folder_path,omitempty"`
	TaskID     string `json:"task_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// SearchResponse holds content matching a query
type SearchResponse struct {
	Query   string           `json:"query" example:"quarterly revenue"`
	Results []SearchDocument `json:"results"`
}

// SearchDocument is one matching chunk
type SearchDocument struct {
	ID         int64  `json:"id" example:"42"`
	SourceFile string `json:"source_file" example:"/host/home/Documents/notes/a.md"`
	ChunkIndex int    `json:"chunk_index" example:"0"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error" example:"folder_path is required"`
}
