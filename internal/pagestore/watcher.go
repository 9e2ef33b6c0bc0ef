package pagestore

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-xpdf-session/internal/util"
)

// Watcher reports changes to the pages file made by any process. It watches
// the parent directory because saves replace the file by rename.
type Watcher struct {
	watcher *fsnotify.Watcher
	target  string
	changes chan struct{}
	done    chan struct{}
}

// NewWatcher starts watching the directory that holds path.
func NewWatcher(path string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: watcher,
		target:  target,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.processEvents()
	return w, nil
}

func (w *Watcher) processEvents() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			util.LogDebug("Pages file changed on disk", util.F("op", event.Op.String()))
			// Coalesce: one pending notification is enough to trigger a re-sync.
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			util.LogWarn("Pages file watch error", util.F("error", err))
		}
	}
}

// Changes delivers a value after the pages file was modified.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
