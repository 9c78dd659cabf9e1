// Package watch re-runs the pipeline when raw input tables change on
// disk. Events are debounced so a rapid burst of saves from an export
// tool triggers a single run.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// tableExts are the file extensions treated as input tables.
var tableExts = map[string]struct{}{
	".tabular": {},
	".tsv":     {},
	".csv":     {},
}

// TriggerFunc is invoked once per settled batch of changed table files.
type TriggerFunc func(ctx context.Context, paths []string)

// Watcher monitors one input directory and invokes the trigger after
// changes settle.
type Watcher struct {
	mu      sync.Mutex
	fs      *fsnotify.Watcher
	dir     string
	log     *zap.Logger
	trigger TriggerFunc

	pending map[string]time.Time
	settle  time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New builds a watcher for dir. A zero settle uses a 500ms default.
func New(dir string, settle time.Duration, log *zap.Logger, trigger TriggerFunc) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		fs:      fs,
		dir:     dir,
		log:     log,
		trigger: trigger,
		pending: make(map[string]time.Time),
		settle:  settle,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in one
// goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fs.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.log.Info("watching input directory", zap.String("dir", w.dir))

	go w.run(ctx)
	return nil
}

// Stop halts the event loop and closes the underlying watcher. Safe to
// call more than once, and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.fs.Close(); err != nil {
		w.log.Warn("closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-ticker.C:
			w.flushSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if _, ok := tableExts[strings.ToLower(filepath.Ext(event.Name))]; !ok {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	w.log.Debug("table changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// flushSettled fires the trigger for paths whose last event is older than
// the settle window. All settled paths go out in one batch so one run
// covers them.
func (w *Watcher) flushSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(settled) == 0 {
		return
	}
	sort.Strings(settled)
	w.log.Info("input settled, triggering run", zap.Strings("paths", settled))
	w.trigger(ctx, settled)
}
