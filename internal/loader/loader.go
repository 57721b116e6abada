// Package loader decodes wallpapers in the background and queues them for display.
package loader

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matjam/scrollpaper/internal/catalog"
	"github.com/matjam/scrollpaper/internal/decoder"
	"github.com/matjam/scrollpaper/internal/metrics"
	"github.com/matjam/scrollpaper/internal/types"
)

// StarvationPasses is the number of consecutive passes without a single
// decodable image after which the loader reports the directories as starved.
const StarvationPasses = 9

const defaultPollInterval = 5 * time.Second

// Decoder turns a path into an image fitted to frame.
type Decoder interface {
	Decode(path string, frame types.FrameSize) (*decoder.Image, error)
}

type Config struct {
	Name         string          // Stream name, used in logs and metric labels
	Frame        types.FrameSize // Size images are fitted to
	Backlog      int             // Images queued ahead of the consumer; 0 hands over one at a time
	PollInterval time.Duration   // How often an empty catalog is re-read when it cannot be watched
}

// Loader owns a catalog and feeds decoded images into a bounded channel. The
// channel is closed when the loader exits, whether because it was released
// or because it crashed.
type Loader struct {
	cfg     Config
	catalog *catalog.Catalog
	decoder Decoder
	metrics metrics.StreamMetrics
	logger  *log.Logger

	images      chan *decoder.Image
	done        chan struct{}
	releaseOnce sync.Once
	barren      atomic.Int64
}

// Start launches a loader goroutine.
func Start(cfg Config, cat *catalog.Catalog, dec Decoder, m metrics.StreamMetrics) *Loader {
	if cfg.Backlog < 0 {
		cfg.Backlog = 0
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	l := &Loader{
		cfg:     cfg,
		catalog: cat,
		decoder: dec,
		metrics: m,
		logger:  log.WithPrefix(fmt.Sprintf("loader[%s]", cfg.Name)),
		images:  make(chan *decoder.Image, cfg.Backlog),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Images returns the channel decoded images are delivered on. It is closed
// when the loader stops.
func (l *Loader) Images() <-chan *decoder.Image {
	return l.images
}

// Release tells the loader its consumer has gone away. The loader exits the
// next time it tries to deliver an image or is waiting for files.
func (l *Loader) Release() {
	l.releaseOnce.Do(func() {
		close(l.done)
	})
}

// BarrenPasses returns the number of consecutive catalog passes that did not
// produce a single image.
func (l *Loader) BarrenPasses() int {
	return int(l.barren.Load())
}

func (l *Loader) released() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *Loader) run() {
	var watcher *catalog.Watcher

	defer close(l.images)
	defer func() {
		if watcher != nil {
			watcher.Close()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("loader crashed: %v", r)
		}
	}()

	for !l.released() {
		paths := l.catalog.Refresh()
		if len(paths) == 0 {
			l.logger.Warnf("no files found in %v, waiting for wallpapers to appear", l.catalog.Dirs())
			l.recordBarrenPass()
			if !l.waitForFiles(&watcher) {
				return
			}
			continue
		}
		l.logger.Debugf("starting pass over %d files", len(paths))

		delivered := 0
		for _, path := range paths {
			if l.released() {
				return
			}

			img, err := l.decoder.Decode(path, l.cfg.Frame)
			if err != nil {
				l.logger.Warnf("unable to load %v: %v", path, err)
				l.metrics.DecodeFailures.Inc()
				continue
			}
			l.logger.Debugf("loaded %v (%dx%d, %v scroll)", path, img.Width(), img.Height(), img.Direction)

			select {
			case l.images <- img:
				delivered++
				l.metrics.ImagesDecoded.Inc()
			case <-l.done:
				return
			}
		}

		if delivered > 0 {
			l.barren.Store(0)
			continue
		}

		l.recordBarrenPass()
		if !l.waitForFiles(&watcher) {
			return
		}
	}
}

func (l *Loader) recordBarrenPass() {
	n := l.barren.Add(1)
	l.metrics.BarrenPasses.Inc()
	if n >= StarvationPasses {
		l.logger.Errorf("no valid images found in %v after %d passes", l.catalog.Dirs(), n)
	}
}

// waitForFiles blocks until the catalog directories change, the poll interval
// passes, or the loader is released. It returns false in the last case.
func (l *Loader) waitForFiles(watcher **catalog.Watcher) bool {
	if *watcher == nil {
		w, err := l.catalog.Watch()
		if err != nil {
			l.logger.Debugf("unable to watch %v, polling every %v: %v", l.catalog.Dirs(), l.cfg.PollInterval, err)
		} else {
			*watcher = w
		}
	}

	var changed <-chan struct{}
	if *watcher != nil {
		changed = (*watcher).Changed()
	}

	timer := time.NewTimer(l.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-changed:
		return true
	case <-timer.C:
		return true
	case <-l.done:
		return false
	}
}
