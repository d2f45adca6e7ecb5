package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the engine when schema files change on disk. Events are
// debounced so an editor save burst triggers one reload.
type Watcher struct {
	engine   *Engine
	root     string
	debounce time.Duration
	log      *zap.Logger
	onReload func(*Snapshot)

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides the event settle window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatchLogger sets the diagnostic logger.
func WithWatchLogger(log *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log }
}

// WithOnReload registers a callback invoked after each successful reload.
func WithOnReload(fn func(*Snapshot)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher builds a watcher over the schema root directory, which holds
// the entities and relationships trees.
func NewWatcher(engine *Engine, root string, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &Watcher{
		engine:   engine,
		root:     root,
		debounce: 250 * time.Millisecond,
		log:      zap.NewNop(),
		watcher:  fsw,
		stopChan: make(chan struct{}),
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start registers every schema directory and begins watching in the
// background. New entity directories created while running are picked up.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop ends watching and releases the underlying watcher.
func (w *Watcher) Stop() error {
	select {
	case <-w.stopChan:
		return nil
	default:
		close(w.stopChan)
	}
	w.wg.Wait()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("schema watcher error", zap.Error(err))
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	// A new entity directory needs its own watch before its files produce
	// events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.log.Warn("cannot watch new directory",
					zap.String("path", event.Name),
					zap.Error(err))
			}
			return
		}
	}
	if !isSchemaFile(event.Name) {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.flush(ctx) })
	w.mu.Unlock()
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	w.log.Info("schema change detected, reloading metadata",
		zap.Strings("files", changed))
	snap, err := w.engine.Reload(ctx)
	if err != nil {
		w.log.Error("metadata reload failed", zap.Error(err))
		return
	}
	if w.onReload != nil {
		w.onReload(snap)
	}
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
