package artifact

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.ArtifactWatcher = (*Watcher)(nil)

// DefaultSettleDelay is how long a burst of events must be quiet before a
// change is reported.
const DefaultSettleDelay = 100 * time.Millisecond

// Watcher reports changes to an artifact file using fsnotify.
// It watches the parent directory so that replacing the file by rename,
// as FileWriter does, is seen as well.
type Watcher struct {
	settle time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// NewWatcher creates a watcher that coalesces events within settle.
// A non-positive settle uses DefaultSettleDelay.
func NewWatcher(settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Watcher{settle: settle}
}

// Watch starts watching path. Only one path can be watched per Watcher.
func (w *Watcher) Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, errors.New("watcher closed")
	}
	if w.watcher != nil {
		return nil, errors.New("watcher already started")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	w.watcher = fsw

	changes := make(chan struct{}, 1)
	go w.run(ctx, fsw, abs, changes)
	logger.Debug("artifact: watching %s", abs)
	return changes, nil
}

// Close stops the watcher and closes the change channel.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, path string, changes chan<- struct{}) {
	defer close(changes)

	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !relevant(event, path) {
				continue
			}
			logger.Debug("artifact: %s %s", event.Op, event.Name)
			timer.Reset(w.settle)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("artifact watcher: %v", err)

		case <-timer.C:
			select {
			case changes <- struct{}{}:
			default:
				// A change is already pending.
			}
		}
	}
}

// relevant reports whether event may have changed the file at path.
// Removals are ignored; the following create reports the new file.
func relevant(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != path {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
