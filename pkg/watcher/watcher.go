package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/hopgraph/pkg/logging"
)

// ChangeType represents the kind of input file that changed
type ChangeType int

const (
	ChangeTypeConfig ChangeType = iota
	ChangeTypeGraph
	ChangeTypeQueries
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeConfig:
		return "config"
	case ChangeTypeGraph:
		return "graph"
	case ChangeTypeQueries:
		return "queries"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchWindow groups the burst of events a single save produces.
const batchWindow = 100 * time.Millisecond

// FileWatcher watches individual input files for changes. Parent
// directories are watched since editors often replace a file instead of
// writing it in place.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]ChangeType // absolute path -> type
	dirs    map[string]bool
	events  chan ChangeEvent
	mu      sync.Mutex
}

// NewFileWatcher creates a new file system watcher
func NewFileWatcher() (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		files:   make(map[string]ChangeType),
		dirs:    make(map[string]bool),
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Watch adds a file. Empty paths are ignored so optional inputs can be
// passed unconditionally. The file itself does not need to exist yet.
func (fw *FileWatcher) Watch(path string, t ChangeType) error {
	if path == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	dir := filepath.Dir(abs)
	if !fw.dirs[dir] {
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		fw.dirs[dir] = true
	}
	fw.files[abs] = t

	logging.Debug("watching file", "path", abs, "type", t)
	return nil
}

// Clear forgets every watched file and releases the directory watches.
// Files watched after Clear are reported as usual.
func (fw *FileWatcher) Clear() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for dir := range fw.dirs {
		if err := fw.watcher.Remove(dir); err != nil {
			logging.Debug("failed to remove directory watch", "dir", dir, "error", err)
		}
	}
	fw.files = make(map[string]ChangeType)
	fw.dirs = make(map[string]bool)
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) {
	fw.mu.Lock()
	count := len(fw.files)
	fw.mu.Unlock()
	logging.Info("started watching inputs", "files", count)

	go fw.processEvents(ctx)
}

func (fw *FileWatcher) classify(name string) (ChangeType, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return 0, false
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	t, ok := fw.files[abs]
	return t, ok
}

// processEvents filters file system events to the watched files and
// batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeConfig, ChangeTypeGraph, ChangeTypeQueries} {
			paths := pending[t]
			if len(paths) == 0 {
				continue
			}
			select {
			case fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
		pending = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			t, watched := fw.classify(event.Name)
			if !watched {
				continue
			}
			logging.Trace("file event", "path", event.Name, "op", event.Op.String())
			pending[t] = appendUnique(pending[t], event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

func appendUnique(paths []string, path string) []string {
	for _, p := range paths {
		if p == path {
			return paths
		}
	}
	return append(paths, path)
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
