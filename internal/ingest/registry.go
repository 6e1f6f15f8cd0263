package ingest

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/docsync/internal/content"
)

// Registry caches one pipeline per Settings value
type Registry struct {
	mu        sync.Mutex
	pipelines map[Settings]*Pipeline
	opts      Options
	store     content.Store
	logger    *logrus.Logger
}

func NewRegistry(opts Options, store content.Store, logger *logrus.Logger) *Registry {
	return &Registry{
		pipelines: make(map[Settings]*Pipeline),
		opts:      opts,
		store:     store,
		logger:    logger,
	}
}

// Get returns the pipeline for settings, building it on first use
func (r *Registry) Get(settings Settings) *Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pipelines[settings]; ok {
		return p
	}

	p := NewPipeline(settings, r.opts, r.store, r.logger)
	r.pipelines[settings] = p
	r.logger.WithFields(logrus.Fields{
		"provider": settings.Provider,
		"model":    settings.Model,
	}).Info("Built ingestion pipeline")
	return p
}

// Invalidate drops every cached pipeline, e.g. after a settings change
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines = make(map[Settings]*Pipeline)
}

// Ingester returns the cached pipeline for settings as an Ingester
func (r *Registry) Ingester(settings Settings) Ingester {
	return r.Get(settings)
}
