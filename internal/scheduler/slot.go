package scheduler

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/matjam/scrollpaper/internal/decoder"
	"github.com/matjam/scrollpaper/internal/metrics"
	"github.com/matjam/scrollpaper/internal/types"
	"github.com/matjam/scrollpaper/internal/uv"
)

// picture is an image that has been handed to the renderer.
type picture struct {
	path    string
	texture TextureHandle
	window  uv.Window
}

// Slot is one independently scrolling and fading area of the surface.
type Slot struct {
	name     string
	viewport types.Rect
	source   ImageSource
	metrics  metrics.StreamMetrics
	logger   *log.Logger

	progress float64
	current  *picture
	next     *picture
}

// SlotStatus is a snapshot of a slot for status reports.
type SlotStatus struct {
	Name      string     `json:"name"`
	Viewport  types.Rect `json:"viewport"`
	Progress  float64    `json:"progress"`
	Current   string     `json:"current"`
	Next      string     `json:"next,omitempty"`
	NextReady bool       `json:"next_ready"`
}

func (sl *Slot) Name() string {
	return sl.name
}

// Progress returns how far the current image is through its cycle, in [0,1).
func (sl *Slot) Progress() float64 {
	return sl.progress
}

// NextReady reports whether the successor image has been fetched.
func (sl *Slot) NextReady() bool {
	return sl.next != nil
}

func (sl *Slot) status() SlotStatus {
	st := SlotStatus{
		Name:      sl.name,
		Viewport:  sl.viewport,
		Progress:  sl.progress,
		NextReady: sl.next != nil,
	}
	if sl.current != nil {
		st.Current = sl.current.path
	}
	if sl.next != nil {
		st.Next = sl.next.path
	}
	return st
}

// upload hands img to the renderer and picks a scroll direction for it.
func (sl *Slot) upload(s *Scheduler, img *decoder.Image) (*picture, error) {
	tex, err := s.renderer.UploadTexture(img)
	if err != nil {
		sl.metrics.RenderErrors.Inc()
		return nil, fmt.Errorf("unable to upload %v: %w", img.Path, err)
	}
	reversed := s.rng.IntN(2) == 1
	return &picture{
		path:    img.Path,
		texture: tex,
		window:  uv.New(img.Width(), img.Height(), sl.viewport.Width, sl.viewport.Height, reversed),
	}, nil
}

func (sl *Slot) accept(s *Scheduler, img *decoder.Image) {
	pic, err := sl.upload(s, img)
	if err != nil {
		sl.logger.Errorf("%v", err)
		return
	}
	sl.next = pic
	sl.logger.Debugf("next image ready: %v", pic.path)
}

func (sl *Slot) tryFetch(s *Scheduler) {
	if img := sl.source.TryNextImage(); img != nil {
		sl.accept(s, img)
	}
}

// forceFetch blocks for the next image. Failing to get one is fatal for the slot.
func (sl *Slot) forceFetch(ctx context.Context, s *Scheduler) error {
	sl.metrics.ForceWaits.Inc()
	sl.logger.Warnf("no image ready at fade start, waiting up to %v", s.cfg.ForceWait)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ForceWait)
	defer cancel()

	img, err := sl.source.NextImage(ctx)
	if err != nil {
		return fmt.Errorf("slot %s: %w: %v", sl.name, ErrStarved, err)
	}
	sl.accept(s, img)
	return nil
}

func (sl *Slot) tick(ctx context.Context, s *Scheduler) error {
	sl.progress += s.step

	if sl.next == nil {
		sl.tryFetch(s)
		if sl.next == nil && reached(sl.progress, s.cfg.Fade) {
			if err := sl.forceFetch(ctx, s); err != nil {
				return err
			}
		}
	}

	if reached(sl.progress, 1) {
		sl.progress = 1 - s.cfg.Fade
		if sl.next != nil {
			s.renderer.ReleaseTexture(sl.current.texture)
			sl.current, sl.next = sl.next, nil
			sl.logger.Infof("now showing %v", sl.current.path)
			sl.tryFetch(s)
		} else {
			sl.logger.Warnf("no successor for %v, replaying it", sl.current.path)
		}
	}

	sl.draw(s)
	return nil
}

func (sl *Slot) draw(s *Scheduler) {
	fade := s.cfg.Fade
	p := float32(sl.progress)

	if sl.next == nil || fade >= 1 || !reached(sl.progress, fade) {
		sl.drawPicture(s, sl.current, p, 1)
		return
	}

	base := (sl.progress - fade) / (1 - fade)
	base = applyEasing(s.cfg.Easing, min(max(base, 0), 1))

	// Each image samples its own window; the next one has been visible for
	// progress-fade of its own cycle.
	if !sl.drawPicture(s, sl.current, p, float32(1-base)) {
		return
	}
	sl.drawPicture(s, sl.next, float32(sl.progress-fade), float32(base))
}

func (sl *Slot) drawPicture(s *Scheduler, pic *picture, progress, alpha float32) bool {
	offset := pic.window.Offset(mgl32.Clamp(progress, 0, 1))
	if err := s.renderer.Draw(pic.texture, sl.viewport, offset, pic.window.Extent(), alpha); err != nil {
		sl.metrics.RenderErrors.Inc()
		sl.logger.Errorf("draw failed, dropping frame: %v", err)
		return false
	}
	return true
}
