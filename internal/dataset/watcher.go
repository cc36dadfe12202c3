package dataset

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last change event
// before reloading.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a dataset file when it changes on disk and hands the new
// Dataset to a callback. The parent directory is watched so editors that
// replace the file by rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(*Dataset, LoadReport)
	fw       *fsnotify.Watcher
}

// NewWatcher starts watching path. onReload runs on the Run goroutine after
// each successful reload; failed reloads are logged and the previous dataset
// stays in use.
func NewWatcher(path string, debounce time.Duration, onReload func(*Dataset, LoadReport)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, debounce: debounce, onReload: onReload, fw: fw}, nil
}

// Run processes change events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[dataset] watcher error: %v", err)

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	d, report, err := LoadFile(w.path)
	if err != nil {
		log.Printf("[dataset] reload of %s failed, keeping previous dataset: %v", w.path, err)
		return
	}
	log.Printf("[dataset] reloaded %s: %d hits loaded, %d rejected", w.path, report.Loaded, report.Rejected)
	w.onReload(d, report)
}
