package models

// SyncedFolderRecord is one row of the folder sync history
type SyncedFolderRecord struct {
	FolderPath     string    `json:"folder_path"`
	LastSyncedAt   int64     `json:"last_synced_at"`
	TotalFiles     int       `json:"total_files"`
	ProcessedFiles int       `json:"processed_files"`
	SkippedFiles   int       `json:"skipped_files"`
	Status         JobStatus `json:"status"`
}

// SyncedFolders is the history read model
type SyncedFolders struct {
	Results   []SyncedFolderRecord `json:"results"`
	FileCount int                  `json:"file_count"`
}
