package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/docsync/internal/config"
	apperrors "github.com/Kamar-Folarin/docsync/internal/errors"
	"github.com/Kamar-Folarin/docsync/internal/models"
)

// TaskFunc is the body of a dispatched task. The context is cancelled when the task is
// revoked or the processor shuts down.
type TaskFunc func(ctx context.Context, taskID string) error

type task struct {
	id      string
	fn      TaskFunc
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// Processor runs tasks on a fixed pool of workers fed from a bounded backlog
type Processor struct {
	workers   int
	retention time.Duration
	backend   Backend
	logger    *logrus.Logger

	tasks   chan *task
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	baseCtx context.Context
	abort   context.CancelFunc
	active  map[string]*task
}

// NewProcessor creates a processor sized from the sync configuration
func NewProcessor(cfg *config.SyncConfig, backend Backend, logger *logrus.Logger) *Processor {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Processor{
		workers:   cfg.Workers,
		retention: cfg.TaskRetention,
		backend:   backend,
		logger:    logger,
		tasks:     make(chan *task, cfg.QueueCapacity),
		stop:      make(chan struct{}),
		active:    make(map[string]*task),
	}
}

// Start launches the workers and the retention janitor
func (p *Processor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	p.baseCtx, p.abort = context.WithCancel(context.WithoutCancel(ctx))
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	if p.retention > 0 {
		p.wg.Add(1)
		go p.janitor()
	}

	p.logger.WithField("workers", p.workers).Info("Task processor started")
}

// Stop stops accepting tasks and waits for running ones. When ctx expires first,
// running tasks are cancelled. Tasks still queued run with a cancelled context so
// they can record their own failure.
func (p *Processor) Stop(ctx context.Context) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("Shutdown deadline reached, cancelling running tasks")
		p.abort()
		<-done
	}

	p.abort()
	p.drain()
	p.logger.Info("Task processor stopped")
}

// Enqueue schedules fn and returns its task id without waiting for it
func (p *Processor) Enqueue(fn TaskFunc) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return "", apperrors.NewUnavailableError("task queue is not running", nil)
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(p.baseCtx)
	t := &task{id: id, fn: fn, ctx: ctx, cancel: cancel, done: make(chan struct{})}

	p.backend.Set(id, models.TaskPending, models.TaskInfo{TaskID: id})

	select {
	case p.tasks <- t:
		p.active[id] = t
		return id, nil
	default:
		cancel()
		p.backend.Set(id, models.TaskFailure, models.TaskInfo{TaskID: id, Error: "queue full"})
		return "", apperrors.NewUnavailableError("task queue is full", fmt.Errorf("backlog of %d reached", cap(p.tasks)))
	}
}

// UpdateState records the ephemeral state of a task
func (p *Processor) UpdateState(taskID string, state models.TaskState, info models.TaskInfo) {
	if !p.backend.Set(taskID, state, info) {
		p.logger.WithFields(logrus.Fields{
			"task_id": taskID,
			"state":   state,
		}).Debug("Ignoring state update for finished task")
	}
}

// GetResult returns the ephemeral state of a task
func (p *Processor) GetResult(taskID string) models.TaskResult {
	return p.backend.Get(taskID)
}

// Revoke cancels a queued or running task. A queued task is marked REVOKED at once.
func (p *Processor) Revoke(taskID string) error {
	p.mu.Lock()
	t, ok := p.active[taskID]
	p.mu.Unlock()

	if !ok {
		return apperrors.NewResourceNotFoundError("task", taskID)
	}

	t.cancel()
	if p.backend.Get(taskID).State == models.TaskPending {
		p.backend.Set(taskID, models.TaskRevoked, models.TaskInfo{TaskID: taskID, Error: "revoked"})
	}
	return nil
}

// Wait blocks until a running task returns or ctx is done. A task still in the
// backlog is not waited for: once revoked it starts with a cancelled context.
func (p *Processor) Wait(ctx context.Context, taskID string) error {
	p.mu.Lock()
	t, ok := p.active[taskID]
	started := ok && t.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) work() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		case t := <-p.tasks:
			p.run(t)
		}
	}
}

func (p *Processor) run(t *task) {
	p.mu.Lock()
	t.started = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.active, t.id)
		p.mu.Unlock()
		t.cancel()
		close(t.done)
	}()

	err := p.invoke(t)

	res := p.backend.Get(t.id)
	if res.State.IsTerminal() {
		return
	}

	switch {
	case err == nil:
		p.backend.Set(t.id, models.TaskSuccess, res.Info)
	case t.ctx.Err() != nil:
		p.backend.Set(t.id, models.TaskRevoked, models.TaskInfo{TaskID: t.id, Error: err.Error()})
	default:
		p.backend.Set(t.id, models.TaskFailure, models.TaskInfo{TaskID: t.id, Error: err.Error()})
	}
}

func (p *Processor) invoke(t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(logrus.Fields{
				"task_id": t.id,
				"panic":   r,
			}).Error("Task panicked")
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return t.fn(t.ctx, t.id)
}

func (p *Processor) drain() {
	for {
		select {
		case t := <-p.tasks:
			t.cancel()
			p.run(t)
		default:
			return
		}
	}
}

func (p *Processor) janitor() {
	defer p.wg.Done()

	interval := p.retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if n := p.backend.Evict(time.Now().Add(-p.retention)); n > 0 {
				p.logger.WithField("evicted", n).Debug("Evicted finished task states")
			}
		}
	}
}
