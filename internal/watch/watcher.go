// Package watch resubmits synced folders when files under them change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/docsync/internal/config"
	"github.com/Kamar-Folarin/docsync/internal/models"
	"github.com/Kamar-Folarin/docsync/internal/syncer"
	"github.com/Kamar-Folarin/docsync/internal/utils"
)

// FolderSource lists the folders that have completed at least one sync
type FolderSource interface {
	LatestCompletedPerFolder(ctx context.Context) ([]*models.SyncJob, error)
}

// Submitter dispatches a folder sync
type Submitter interface {
	Submit(ctx context.Context, folderPath, homeDir string) (*syncer.SubmitResult, error)
}

type folder struct {
	folderPath string
	homeDir    string
}

// Watcher watches every synced folder recursively and submits a new sync once a
// folder has been quiet for the debounce period after a change
type Watcher struct {
	fs        *fsnotify.Watcher
	source    FolderSource
	submitter Submitter
	translate utils.PathTranslator
	debounce  time.Duration
	refresh   time.Duration
	logger    *logrus.Logger

	mu      sync.Mutex
	roots   map[string]folder
	watched map[string]struct{}
	timers  map[string]*time.Timer
	fire    chan string
	done    chan struct{}
}

// New creates a watcher. Refresh must be called (Run does it) before changes are seen.
func New(cfg *config.WatchConfig, source FolderSource, submitter Submitter, translate utils.PathTranslator, logger *logrus.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 5 * time.Second
	}

	return &Watcher{
		fs:        fsw,
		source:    source,
		submitter: submitter,
		translate: translate,
		debounce:  debounce,
		refresh:   time.Minute,
		logger:    logger,
		roots:     make(map[string]folder),
		watched:   make(map[string]struct{}),
		timers:    make(map[string]*time.Timer),
		fire:      make(chan string, 16),
		done:      make(chan struct{}),
	}, nil
}

// Refresh reloads the synced folders, watches any new ones and stops watching
// folders that are no longer synced
func (w *Watcher) Refresh(ctx context.Context) error {
	jobs, err := w.source.LatestCompletedPerFolder(ctx)
	if err != nil {
		return fmt.Errorf("failed to load synced folders: %w", err)
	}

	current := make(map[string]struct{}, len(jobs))
	defer func() { w.prune(current) }()

	for _, job := range jobs {
		root, err := w.translate(job.FolderPath, job.HomeDir)
		if err != nil {
			w.logger.WithError(err).WithField("folder", job.FolderPath).Warn("Cannot resolve synced folder")
			continue
		}

		f := folder{folderPath: job.FolderPath, homeDir: job.HomeDir}
		current[root] = struct{}{}

		w.mu.Lock()
		_, known := w.roots[root]
		if known {
			w.roots[root] = f
		}
		w.mu.Unlock()
		if known {
			continue
		}

		if err := w.addTree(root); err != nil {
			w.logger.WithError(err).WithField("folder", root).Warn("Cannot watch synced folder")
			continue
		}
		w.mu.Lock()
		w.roots[root] = f
		w.mu.Unlock()
		w.logger.WithField("folder", root).Info("Watching synced folder")
	}
	return nil
}

// prune drops every root missing from current along with its pending timer.
// Directories that another root still covers stay watched.
func (w *Watcher) prune(current map[string]struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for root := range w.roots {
		if _, ok := current[root]; ok {
			continue
		}
		delete(w.roots, root)
		if t, ok := w.timers[root]; ok {
			t.Stop()
			delete(w.timers, root)
		}

		for path := range w.watched {
			if !within(path, root) {
				continue
			}
			if _, covered := w.ownerLocked(path); covered {
				continue
			}
			if err := w.fs.Remove(path); err != nil {
				w.logger.WithError(err).WithField("path", path).Debug("Failed to remove watch")
			}
			delete(w.watched, path)
		}
		w.logger.WithField("folder", root).Info("Stopped watching folder")
	}
}

// Run processes file system events until ctx is done
func (w *Watcher) Run(ctx context.Context) {
	if err := w.Refresh(ctx); err != nil {
		w.logger.WithError(err).Error("Failed to load folders to watch")
	}

	ticker := time.NewTicker(w.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil {
				w.logger.WithError(err).Error("Failed to refresh watched folders")
			}
		case root := <-w.fire:
			w.resubmit(ctx, root)
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("File watcher error")
		}
	}
}

// Close stops watching and cancels pending resubmissions
func (w *Watcher) Close() error {
	w.mu.Lock()
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	for root, t := range w.timers {
		t.Stop()
		delete(w.timers, root)
	}
	w.mu.Unlock()
	return w.fs.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	if hidden(event.Name) {
		return
	}

	root, ok := w.owner(event.Name)
	if !ok {
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.mu.Lock()
		delete(w.watched, event.Name)
		w.mu.Unlock()
	}
	if event.Has(fsnotify.Create) {
		// New directories are not covered by the existing watches
		if err := w.addTree(event.Name); err != nil {
			w.logger.WithError(err).WithField("path", event.Name).Debug("Skipped new path")
		}
	}

	w.schedule(root)
}

func (w *Watcher) schedule(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[root]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[root] = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- root:
		case <-w.done:
		}
	})
}

func (w *Watcher) resubmit(ctx context.Context, root string) {
	w.mu.Lock()
	delete(w.timers, root)
	f, ok := w.roots[root]
	w.mu.Unlock()
	if !ok {
		return
	}

	logger := w.logger.WithField("folder", f.folderPath)
	res, err := w.submitter.Submit(ctx, f.folderPath, f.homeDir)
	if err != nil {
		logger.WithError(err).Error("Failed to resubmit changed folder")
		return
	}
	logger.WithField("job_id", res.JobID).Info("Resubmitted changed folder")
}

// owner returns the deepest watched root containing path
func (w *Watcher) owner(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ownerLocked(path)
}

func (w *Watcher) ownerLocked(path string) (string, bool) {
	best := ""
	for root := range w.roots {
		if within(path, root) && len(root) > len(best) {
			best = root
		}
	}
	return best, best != ""
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// addTree watches dir and every non-hidden directory below it
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		w.mu.Lock()
		_, seen := w.watched[path]
		w.mu.Unlock()
		if seen {
			return nil
		}

		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.mu.Lock()
		w.watched[path] = struct{}{}
		w.mu.Unlock()
		return nil
	})
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
