// Package app wires the job store, content store, task queue and HTTP layer together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/docsync/internal/api"
	"github.com/Kamar-Folarin/docsync/internal/config"
	"github.com/Kamar-Folarin/docsync/internal/content"
	"github.com/Kamar-Folarin/docsync/internal/db"
	"github.com/Kamar-Folarin/docsync/internal/ingest"
	"github.com/Kamar-Folarin/docsync/internal/queue"
	"github.com/Kamar-Folarin/docsync/internal/stream"
	"github.com/Kamar-Folarin/docsync/internal/syncer"
	"github.com/Kamar-Folarin/docsync/internal/utils"
	"github.com/Kamar-Folarin/docsync/internal/watch"
)

type App struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Store    *db.SQLStore
	Content  *content.SQLiteStore
	Queue    *queue.Processor
	Service  *syncer.Service
	Bridge   *stream.Bridge
	Registry *ingest.Registry
}

// Options tune how New prepares the stores
type Options struct {
	MigrateAttempts int
	MigrateDelay    time.Duration
}

// New opens both stores, migrates the job store and builds the sync service.
// The queue is not started.
func New(cfg *config.Config, logger *logrus.Logger, opts Options) (*App, error) {
	if opts.MigrateAttempts <= 0 {
		opts.MigrateAttempts = 3
	}
	if opts.MigrateDelay <= 0 {
		opts.MigrateDelay = 5 * time.Second
	}

	store, err := db.Open(cfg.DBDriver, cfg.DBConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run migrations with retry logic
	if err := retry(opts.MigrateAttempts, opts.MigrateDelay, store.Migrate); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations after retries: %w", err)
	}

	contentStore, err := content.NewSQLiteStore(cfg.ContentDBPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize content store: %w", err)
	}

	translate := utils.HostMountTranslator(cfg.HostHomeMount)
	registry := ingest.NewRegistry(ingest.Options{
		ChunkWords:   cfg.Pipeline.ChunkWords,
		ChunkOverlap: cfg.Pipeline.ChunkOverlap,
	}, contentStore, logger)

	processor := queue.NewProcessor(cfg.Sync, queue.NewMemoryBackend(), logger)
	status := syncer.NewStatusManager(store, cfg.Sync.MilestoneStep, logger)
	worker := syncer.NewWorker(status, processor, translate, logger)
	service := syncer.NewService(
		store,
		status,
		processor,
		worker,
		registry,
		contentStore,
		ingest.SettingsFromConfig(cfg.Pipeline),
		cfg.Sync,
		logger,
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Content:  contentStore,
		Queue:    processor,
		Service:  service,
		Bridge:   stream.NewBridge(processor, store, cfg.Sync.PollInterval, logger),
		Registry: registry,
	}, nil
}

// Router builds the HTTP router over the app's services
func (a *App) Router() *gin.Engine {
	handler := api.NewHandler(a.Service, a.Content, a.Bridge, a.Store, a.Logger)
	return api.SetupRouter(handler)
}

// Start launches the queue workers, the pending job reaper and, when enabled,
// the folder watcher. They all stop when ctx is done.
func (a *App) Start(ctx context.Context) error {
	a.Queue.Start(ctx)

	if a.Config.Sync.ReapInterval > 0 {
		go a.Service.RunReaper(ctx, a.Config.Sync.ReapInterval)
	}

	if a.Config.ConfigFile != "" {
		err := config.WatchFile(a.Config.ConfigFile, a.ReloadPipeline, func(err error) {
			a.Logger.WithError(err).Warn("Ignoring invalid configuration change")
		})
		if err != nil {
			return err
		}
	}

	if a.Config.Watch.Enabled {
		w, err := watch.New(a.Config.Watch, a.Store, a.Service, utils.HostMountTranslator(a.Config.HostHomeMount), a.Logger)
		if err != nil {
			return err
		}
		go func() {
			defer w.Close()
			w.Run(ctx)
		}()
		a.Logger.Info("Folder watcher started")
	}
	return nil
}

// ReloadPipeline switches new jobs to the pipeline settings of cfg. Cached pipelines
// are dropped so the next job builds a fresh one.
func (a *App) ReloadPipeline(cfg *config.Config) {
	settings := ingest.SettingsFromConfig(cfg.Pipeline)
	if settings == a.Service.Settings() {
		return
	}

	a.Service.SetSettings(settings)
	a.Registry.Invalidate()
	a.Logger.WithFields(logrus.Fields{
		"provider": settings.Provider,
		"model":    settings.Model,
	}).Info("Pipeline settings changed")
}

// Shutdown waits for running jobs up to the ctx deadline and closes both stores
func (a *App) Shutdown(ctx context.Context) {
	a.Queue.Stop(ctx)

	if err := a.Content.Close(); err != nil {
		a.Logger.WithError(err).Error("Failed to close content store")
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.WithError(err).Error("Failed to close database")
	}
}

// Close releases the stores without touching the queue
func (a *App) Close() {
	a.Content.Close()
	a.Store.Close()
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
