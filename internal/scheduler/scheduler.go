// Package scheduler advances the scroll and cross-fade of every slot once per
// rendered frame.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/matjam/scrollpaper/internal/decoder"
	"github.com/matjam/scrollpaper/internal/metrics"
	"github.com/matjam/scrollpaper/internal/types"
)

// ErrStarved means a slot reached its fade with no successor image and could
// not get one in time. Rendering cannot continue correctly after this.
var ErrStarved = errors.New("no image available for cross-fade")

var errNotStarted = errors.New("scheduler not started")

// progressEpsilon absorbs the rounding error accumulated by adding the tick
// step, so a fade scheduled for tick N starts on tick N.
const progressEpsilon = 1e-9

type TextureHandle uint32

// Renderer is the part of the display the scheduler draws with.
type Renderer interface {
	UploadTexture(img *decoder.Image) (TextureHandle, error)
	ReleaseTexture(tex TextureHandle)
	// Draw samples the texture window [offset-extent, offset] into viewport.
	Draw(tex TextureHandle, viewport types.Rect, offset, extent mgl32.Vec2, alpha float32) error
}

// ImageSource supplies decoded images to a slot.
type ImageSource interface {
	NextImage(ctx context.Context) (*decoder.Image, error)
	TryNextImage() *decoder.Image
}

type Config struct {
	Duration  time.Duration    // Time each image is shown, fade included
	Fade      float64          // Fraction of Duration at which the cross-fade starts, in [0.5, 1]
	TickRate  float64          // Ticks per second
	ForceWait time.Duration    // Longest a slot blocks for an image once its fade has started
	Easing    types.EasingMode // Curve applied to the cross-fade
	Desync    bool             // Start every slot at a random point of its cycle
}

func (c Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", c.Duration)
	}
	if c.Fade < 0.5 || c.Fade > 1 {
		return fmt.Errorf("fade must be between 0.5 and 1.0, got %v", c.Fade)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %v", c.TickRate)
	}
	if c.ForceWait <= 0 {
		return fmt.Errorf("force wait must be positive, got %v", c.ForceWait)
	}
	if c.Easing != "" && !c.Easing.Valid() {
		return fmt.Errorf("unknown easing mode %q", c.Easing)
	}
	return nil
}

// Scheduler drives a set of slots. It is not safe for concurrent use and
// should only be called from the render loop.
type Scheduler struct {
	cfg      Config
	renderer Renderer
	rng      *rand.Rand
	step     float64
	slots    []*Slot
	started  bool
}

func New(cfg Config, renderer Renderer, rng *rand.Rand) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Easing == "" {
		cfg.Easing = types.EasingLinear
	}
	return &Scheduler{
		cfg:      cfg,
		renderer: renderer,
		rng:      rng,
		step:     1 / cfg.TickRate / cfg.Duration.Seconds(),
	}, nil
}

// AddSlot adds a slot drawing into viewport with images from source.
func (s *Scheduler) AddSlot(name string, viewport types.Rect, source ImageSource) *Slot {
	sl := &Slot{
		name:     name,
		viewport: viewport,
		source:   source,
		metrics:  metrics.NewStreamMetrics(name),
		logger:   log.WithPrefix("slot[" + name + "]"),
	}
	if s.cfg.Desync {
		sl.progress = s.rng.Float64() * s.cfg.Fade
	}
	s.slots = append(s.slots, sl)
	return sl
}

func (s *Scheduler) Slots() []*Slot {
	return s.slots
}

// Start blocks until every slot has its first image.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, sl := range s.slots {
		for sl.current == nil {
			img, err := sl.source.NextImage(ctx)
			if err != nil {
				return fmt.Errorf("slot %s: unable to get first image: %w", sl.name, err)
			}
			pic, err := sl.upload(s, img)
			if err != nil {
				sl.logger.Errorf("%v", err)
				continue
			}
			sl.current = pic
			sl.logger.Infof("now showing %v", pic.path)
		}
		sl.tryFetch(s)
	}
	s.started = true
	return nil
}

// Tick advances and draws every slot. Only ErrStarved is returned for slot
// failures; failed draws are logged and the frame carries on.
func (s *Scheduler) Tick(ctx context.Context) error {
	if !s.started {
		return errNotStarted
	}
	for _, sl := range s.slots {
		if err := sl.tick(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Skip moves every slot that is not fading yet to the start of its fade.
func (s *Scheduler) Skip() {
	for _, sl := range s.slots {
		if !reached(sl.progress, s.cfg.Fade) {
			sl.progress = s.cfg.Fade - s.step
		}
	}
}

func (s *Scheduler) Status() []SlotStatus {
	statuses := make([]SlotStatus, 0, len(s.slots))
	for _, sl := range s.slots {
		statuses = append(statuses, sl.status())
	}
	return statuses
}

// Close releases every texture held by the slots.
func (s *Scheduler) Close() {
	for _, sl := range s.slots {
		if sl.current != nil {
			s.renderer.ReleaseTexture(sl.current.texture)
			sl.current = nil
		}
		if sl.next != nil {
			s.renderer.ReleaseTexture(sl.next.texture)
			sl.next = nil
		}
	}
	s.started = false
}

// reached reports whether progress has got to mark.
func reached(progress, mark float64) bool {
	return progress+progressEpsilon >= mark
}
