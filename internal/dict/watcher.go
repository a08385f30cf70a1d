package dict

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads dictionary overlay files when they change on disk,
// so a long `gk run` picks up new corrections without a restart.
// Reload failures keep the last good tables.
type Watcher struct {
	dicts    *Dictionaries
	dir      string
	watcher  *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce time.Duration

	mu      sync.Mutex
	lastErr error
}

// Watch starts watching dir for dictionary file changes and merging
// them into dicts. Returns an error if the watch cannot be
// established; callers without inotify support just skip hot reload.
func Watch(dicts *Dictionaries, dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		dicts:    dicts,
		dir:      dir,
		watcher:  fsw,
		cancel:   cancel,
		debounce: 250 * time.Millisecond,
	}
	w.wg.Add(1)
	go w.loop(ctx)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			ext := filepath.Ext(ev.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			// Editors fire bursts of writes; coalesce them.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			err := w.dicts.mergeDir(w.dir)
			w.mu.Lock()
			w.lastErr = err
			w.mu.Unlock()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Err returns the error from the most recent reload attempt, nil if
// the last reload succeeded.
func (w *Watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Close stops the watcher and waits for the reload loop to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
