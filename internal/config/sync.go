package config

import (
	"fmt"
	"time"
)

// SyncConfig holds job engine configuration
type SyncConfig struct {
	Workers        int
	QueueCapacity  int
	MilestoneStep  int
	PollInterval   time.Duration
	TaskRetention  time.Duration
	PendingTimeout time.Duration
	ReapInterval   time.Duration
}

// WatchConfig holds folder watcher configuration
type WatchConfig struct {
	Enabled  bool
	Debounce time.Duration
}

// DefaultSyncConfig returns the default sync configuration
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		Workers:        3,
		QueueCapacity:  100,
		MilestoneStep:  10,
		PollInterval:   time.Second,
		TaskRetention:  time.Hour,
		PendingTimeout: 15 * time.Minute,
		ReapInterval:   5 * time.Minute,
	}
}

// Validate rejects values the engine cannot run with
func (c *SyncConfig) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("SYNC_WORKERS must be positive, got %d", c.Workers)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("QUEUE_CAPACITY must be positive, got %d", c.QueueCapacity)
	}
	if c.MilestoneStep <= 0 || c.MilestoneStep > 100 {
		return fmt.Errorf("MILESTONE_PERCENT must be within 1..100, got %d", c.MilestoneStep)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("STATUS_POLL_INTERVAL_MS must be positive")
	}
	return nil
}
