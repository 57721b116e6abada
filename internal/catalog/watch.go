package catalog

import (
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher signals when files appear in, or vanish from, the catalog
// directories. Bursts of events collapse into a single notification.
type Watcher struct {
	watcher *fsnotify.Watcher
	changed chan struct{}
	done    chan struct{}
}

// Watch starts watching the catalog directories. Directories that cannot be
// watched are logged and skipped; an error is only returned when none can be.
func (c *Catalog) Watch() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	var lastErr error
	watched := 0
	for _, dir := range c.dirs {
		if err := fw.Add(dir); err != nil {
			log.Debugf("catalog: unable to watch %v: %v", dir, err)
			lastErr = err
			continue
		}
		watched++
	}
	if watched == 0 && lastErr != nil {
		fw.Close()
		return nil, lastErr
	}

	w := &Watcher{
		watcher: fw,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Changed fires after the watched directories changed.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) &&
				!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
				continue
			}
			select {
			case w.changed <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("catalog: watch error: %v", err)
		}
	}
}
