package inspect

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"bman/internal/logging"
	"bman/internal/pathmodel"
)

// DocPackWatcher watches every doc-pack subdirectory that can hold a
// browsable artifact (enrich/, scenarios/, inventory/, man/) and emits a
// debounced refresh signal on Changed whenever one of those files settles
// after a burst of writes. Grounded directly on the teacher's
// MangleWatcher in internal/core/mangle_watcher.go: same fsnotify.Watcher
// plus debounceMap-guarded-by-mutex plus stopCh/doneCh shape, generalized
// from one file suffix to the doc pack's whole artifact surface.
type DocPackWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	paths       pathmodel.Paths
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	Changed chan struct{}
}

// NewDocPackWatcher creates a watcher over paths' doc pack root.
func NewDocPackWatcher(paths pathmodel.Paths) (*DocPackWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DocPackWatcher{
		watcher:     w,
		paths:       paths,
		debounceMap: make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		Changed:     make(chan struct{}, 1),
	}, nil
}

func (dw *DocPackWatcher) watchDirs() []string {
	return []string{
		dw.paths.EnrichDir(),
		dw.paths.Root(),
		filepath.Join(dw.paths.Root(), "scenarios"),
		filepath.Join(dw.paths.Root(), "inventory"),
		filepath.Join(dw.paths.Root(), "inventory", "scenarios"),
		filepath.Join(dw.paths.Root(), "man"),
	}
}

// Start begins watching in a background goroutine. Non-blocking.
func (dw *DocPackWatcher) Start(ctx context.Context) error {
	dw.mu.Lock()
	if dw.running {
		dw.mu.Unlock()
		return nil
	}
	dw.running = true
	dw.mu.Unlock()

	for _, dir := range dw.watchDirs() {
		if _, err := os.Stat(dir); err != nil {
			continue // produced later by plan/apply; fine to miss it for now
		}
		if err := dw.watcher.Add(dir); err != nil {
			logging.InspectWarn("DocPackWatcher: failed to watch %s: %v", dir, err)
		}
	}

	go dw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (dw *DocPackWatcher) Stop() {
	dw.mu.Lock()
	if !dw.running {
		dw.mu.Unlock()
		return
	}
	dw.running = false
	dw.mu.Unlock()

	close(dw.stopCh)
	<-dw.doneCh
	_ = dw.watcher.Close()
}

func (dw *DocPackWatcher) run(ctx context.Context) {
	defer close(dw.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-dw.stopCh:
			return
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dw.handleEvent(event)
		case _, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
		case <-debounceTicker.C:
			dw.flushDebounced()
		}
	}
}

func (dw *DocPackWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Ext(event.Name) != ".json" {
		return
	}
	dw.mu.Lock()
	dw.debounceMap[event.Name] = time.Now()
	dw.mu.Unlock()
}

func (dw *DocPackWatcher) flushDebounced() {
	dw.mu.Lock()
	now := time.Now()
	settled := false
	for path, t := range dw.debounceMap {
		if now.Sub(t) >= dw.debounceDur {
			delete(dw.debounceMap, path)
			settled = true
		}
	}
	dw.mu.Unlock()

	if !settled {
		return
	}
	select {
	case dw.Changed <- struct{}{}:
	default: // a refresh is already pending; the model hasn't drained it yet
	}
}
