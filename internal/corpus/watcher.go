package corpus

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/librarian/internal/observe"
)

// reloadDelay coalesces bursts of write events into a single reload.
const reloadDelay = 250 * time.Millisecond

// Watcher reloads the store when the backing corpus file changes on disk.
// Editors tend to emit several writes per save, so reloads are debounced.
type Watcher struct {
	store    *Store
	patterns []string
	obs      *observe.Observer
	fw       *fsnotify.Watcher
}

// NewWatcher watches the directory containing the store's corpus file.
// patterns are doublestar globs matched against event base names; empty
// patterns default to the corpus file itself.
func NewWatcher(store *Store, patterns []string, obs *observe.Observer) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(patterns) == 0 {
		patterns = []string{filepath.Base(store.Path())}
	}

	return &Watcher{
		store:    store,
		patterns: patterns,
		obs:      obs,
		fw:       fw,
	}, nil
}

// Start begins watching until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.store.Path())
	if err := w.fw.Add(dir); err != nil {
		return err
	}

	go func() {
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if !w.matches(event.Name) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDelay, func() {
					if err := w.store.Reload(); err != nil {
						w.obs.Log().Error().Err(err).Msg("corpus reload after file change failed")
						return
					}
					w.obs.Log().Info().Str("file", event.Name).Int("books", w.store.Count()).Msg("corpus reloaded after file change")
				})
			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				w.obs.Log().Warn().Err(err).Msg("corpus watcher error")
			}
		}
	}()

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fw.Close()
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.patterns {
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
