package queue

import (
	"sync"
	"time"

	"github.com/Kamar-Folarin/docsync/internal/models"
)

// Backend holds ephemeral task state
type Backend interface {
	Set(taskID string, state models.TaskState, info models.TaskInfo) bool
	Get(taskID string) models.TaskResult
	Evict(olderThan time.Time) int
}

type entry struct {
	state      models.TaskState
	info       models.TaskInfo
	finishedAt time.Time
}

// MemoryBackend keeps task state in process memory
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Set records a new state. Tasks in a terminal state keep it; Set then returns false.
func (b *MemoryBackend) Set(taskID string, state models.TaskState, info models.TaskInfo) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[taskID]
	if ok && e.state.IsTerminal() {
		return false
	}
	if !ok {
		e = &entry{}
		b.entries[taskID] = e
	}

	e.state = state
	e.info = info
	if state.IsTerminal() {
		e.finishedAt = b.now()
	}
	return true
}

// Get returns the state of a task. Unknown ids read as PENDING.
func (b *MemoryBackend) Get(taskID string) models.TaskResult {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[taskID]
	if !ok {
		return models.TaskResult{TaskID: taskID, State: models.TaskPending}
	}
	return models.TaskResult{TaskID: taskID, State: e.state, Info: e.info}
}

// Evict drops terminal tasks that finished before olderThan
func (b *MemoryBackend) Evict(olderThan time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for id, e := range b.entries {
		if e.state.IsTerminal() && e.finishedAt.Before(olderThan) {
			delete(b.entries, id)
			n++
		}
	}
	return n
}
