package signature

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDefault coalesces the write-then-rename event bursts editors and
// config-management tools produce when replacing the artifact.
const debounceDefault = 200 * time.Millisecond

// Watcher reloads a registry from its artifact file on change. A reload
// that fails to compile keeps the previous snapshot serving: a bad
// signature must never be able to reach live traffic evaluation.
type Watcher struct {
	registry *Registry
	path     string
	debounce time.Duration
}

func NewWatcher(registry *Registry, path string) *Watcher {
	return &Watcher{
		registry: registry,
		path:     path,
		debounce: debounceDefault,
	}
}

// Run watches the artifact until ctx is cancelled. The parent directory is
// watched rather than the file itself so atomic replace (write temp,
// rename over) is observed.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(w.path)
	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case pending <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}

		case <-pending:
			timer = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[REGISTRY] watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	snap, err := LoadFile(w.path)
	if err != nil {
		log.Printf("[REGISTRY] reload rejected, keeping %s: %v", w.registry.Snapshot().Version(), err)
		return
	}
	prev := w.registry.Snapshot().Version()
	w.registry.Swap(snap)
	log.Printf("[REGISTRY] reloaded %s -> %s (%d signatures)", prev, snap.Version(), snap.Len())
}
