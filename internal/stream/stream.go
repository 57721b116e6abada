// Package stream hands decoded wallpapers to the renderer and keeps a loader
// alive behind them.
package stream

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/matjam/scrollpaper/internal/catalog"
	"github.com/matjam/scrollpaper/internal/decoder"
	"github.com/matjam/scrollpaper/internal/loader"
	"github.com/matjam/scrollpaper/internal/metrics"
)

var ErrClosed = errors.New("stream closed")

type Options struct {
	Loader    loader.Config
	Dirs      []string
	Recursive bool
	Decoder   loader.Decoder // defaults to decoder.Default
	Rand      *rand.Rand     // seeds each loader's catalog shuffle
	Clock     clockwork.Clock
}

// Stats is a snapshot of a stream's health.
type Stats struct {
	Name         string        `json:"name"`
	Connected    bool          `json:"connected"`
	Reconnects   int           `json:"reconnects"`
	BarrenPasses int           `json:"barren_passes"`
	Backoff      time.Duration `json:"backoff"`
}

// Stream owns exactly one live loader at a time. When the loader dies the
// stream waits out an exponential backoff and starts a fresh one with a fresh
// catalog. A Stream is not safe for concurrent use; it belongs to the render
// loop.
type Stream struct {
	opts    Options
	rng     *rand.Rand
	clock   clockwork.Clock
	metrics metrics.StreamMetrics
	logger  *log.Logger

	current    *loader.Loader
	backoff    Backoff
	retryAt    time.Time
	reconnects int
	closed     bool
}

// New creates a stream and starts its first loader.
func New(opts Options) *Stream {
	if opts.Decoder == nil {
		opts.Decoder = decoder.Default
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s := &Stream{
		opts:    opts,
		rng:     rng,
		clock:   opts.Clock,
		metrics: metrics.NewStreamMetrics(opts.Loader.Name),
		logger:  log.WithPrefix("stream[" + opts.Loader.Name + "]"),
		backoff: NewBackoff(DefaultInitialBackoff, DefaultMaxBackoff),
	}
	s.spawn()
	return s
}

// Name returns the stream's name.
func (s *Stream) Name() string {
	return s.opts.Loader.Name
}

// Metrics returns the counters labelled with this stream's name.
func (s *Stream) Metrics() metrics.StreamMetrics {
	return s.metrics
}

// NextImage blocks until an image is available, reconnecting as often as
// needed. It only gives up when ctx is done or the stream is closed.
func (s *Stream) NextImage(ctx context.Context) (*decoder.Image, error) {
	for {
		if s.closed {
			return nil, ErrClosed
		}

		if s.current == nil {
			if wait := s.retryAt.Sub(s.clock.Now()); wait > 0 {
				s.logger.Infof("restarting loader in %v", wait)
				select {
				case <-s.clock.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			s.spawn()
		}

		select {
		case img, ok := <-s.current.Images():
			if ok {
				s.backoff.Reset()
				return img, nil
			}
			s.disconnected()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryNextImage returns the next queued image, or nil when none is ready. It
// never blocks: after a disconnect the replacement loader is started by the
// first call made once the backoff has elapsed.
func (s *Stream) TryNextImage() *decoder.Image {
	if s.closed {
		return nil
	}

	if s.current == nil {
		if s.clock.Now().Before(s.retryAt) {
			return nil
		}
		s.spawn()
		return nil
	}

	select {
	case img, ok := <-s.current.Images():
		if ok {
			s.backoff.Reset()
			return img
		}
		s.disconnected()
	default:
	}
	return nil
}

// Reload replaces the directories images are read from. The running loader
// is released and a new one started immediately.
func (s *Stream) Reload(dirs []string) {
	if s.closed {
		return
	}
	s.opts.Dirs = append([]string(nil), dirs...)
	if s.current != nil {
		s.current.Release()
	}
	s.backoff.Reset()
	s.spawn()
}

// Stats returns a snapshot of the stream's state.
func (s *Stream) Stats() Stats {
	st := Stats{
		Name:       s.opts.Loader.Name,
		Connected:  s.current != nil,
		Reconnects: s.reconnects,
		Backoff:    s.backoff.Timeout(),
	}
	if s.current != nil {
		st.BarrenPasses = s.current.BarrenPasses()
	}
	return st
}

// Close releases the current loader. Further calls return no images.
func (s *Stream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.current != nil {
		s.current.Release()
		s.current = nil
	}
}

func (s *Stream) spawn() {
	cat := catalog.New(s.opts.Dirs, s.opts.Recursive, rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64())))
	s.current = loader.Start(s.opts.Loader, cat, s.opts.Decoder, s.metrics)
	s.logger.Debugf("started loader over %v", s.opts.Dirs)
}

func (s *Stream) disconnected() {
	s.current.Release()
	s.current = nil

	delay := s.backoff.Next()
	s.retryAt = s.clock.Now().Add(delay)
	s.reconnects++
	s.metrics.LoaderRestarts.Inc()
	s.logger.Warnf("loader disconnected, retrying in %v", delay)
}
