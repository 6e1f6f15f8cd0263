package models

import "time"

// BaseModel contains common fields for all database models
type BaseModel struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressCounters contains the per-file counters a sync job accumulates
type ProgressCounters struct {
	TotalFiles      int `json:"total_files"`
	ProcessedFiles  int `json:"processed_files"`
	SkippedFiles    int `json:"skipped_files"`
	ProgressPercent int `json:"progress_percent"`
}

// Accounted returns how many files have been classified so far
func (c ProgressCounters) Accounted() int {
	return c.ProcessedFiles + c.SkippedFiles
}
