package scheduler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matjam/scrollpaper/internal/decoder"
	"github.com/matjam/scrollpaper/internal/types"
)

type drawCall struct {
	tex      TextureHandle
	viewport types.Rect
	offset   mgl32.Vec2
	extent   mgl32.Vec2
	alpha    float32
}

type fakeRenderer struct {
	lastTex    TextureHandle
	live       map[TextureHandle]string
	released   []TextureHandle
	draws      []drawCall
	failDraw   bool
	failUpload bool
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{live: map[TextureHandle]string{}}
}

func (r *fakeRenderer) UploadTexture(img *decoder.Image) (TextureHandle, error) {
	if r.failUpload {
		return 0, errors.New("out of video memory")
	}
	r.lastTex++
	r.live[r.lastTex] = img.Path
	return r.lastTex, nil
}

func (r *fakeRenderer) ReleaseTexture(tex TextureHandle) {
	delete(r.live, tex)
	r.released = append(r.released, tex)
}

func (r *fakeRenderer) Draw(tex TextureHandle, viewport types.Rect, offset, extent mgl32.Vec2, alpha float32) error {
	if r.failDraw {
		return errors.New("context lost")
	}
	r.draws = append(r.draws, drawCall{tex, viewport, offset, extent, alpha})
	return nil
}

// fakeSource hands out numbered 200x100 images. When tryDry is set
// TryNextImage never has anything; when nextDry is set NextImage blocks
// until its context ends.
type fakeSource struct {
	n         int
	tryDry    bool
	nextDry   bool
	nextCalls int
}

func (f *fakeSource) image() *decoder.Image {
	f.n++
	return &decoder.Image{
		Path:   fmt.Sprintf("img%d", f.n),
		Pixels: image.NewRGBA(image.Rect(0, 0, 200, 100)),
	}
}

func (f *fakeSource) NextImage(ctx context.Context) (*decoder.Image, error) {
	f.nextCalls++
	if f.nextDry {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.image(), nil
}

func (f *fakeSource) TryNextImage() *decoder.Image {
	if f.tryDry {
		return nil
	}
	return f.image()
}

var cell = types.Rect{Width: 100, Height: 100}

func testConfig() Config {
	return Config{
		Duration:  10 * time.Second,
		Fade:      0.8,
		TickRate:  60,
		ForceWait: time.Second,
	}
}

func newScheduler(t *testing.T, cfg Config, r Renderer, sources ...ImageSource) *Scheduler {
	t.Helper()
	s, err := New(cfg, r, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	for i, src := range sources {
		s.AddSlot(fmt.Sprintf("slot%d", i), cell, src)
	}
	require.NoError(t, s.Start(context.Background()))
	return s
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, testConfig().Validate())

	bad := []func(*Config){
		func(c *Config) { c.Fade = 0.4 },
		func(c *Config) { c.Fade = 1.1 },
		func(c *Config) { c.Duration = 0 },
		func(c *Config) { c.TickRate = 0 },
		func(c *Config) { c.ForceWait = 0 },
		func(c *Config) { c.Easing = "bounce" },
	}
	for i, mutate := range bad {
		cfg := testConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), "case %d", i)
	}
}

func TestTickBeforeStart(t *testing.T) {
	s, err := New(testConfig(), newFakeRenderer(), rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Error(t, s.Tick(context.Background()))
}

func TestFadeBeginsOnTick480(t *testing.T) {
	r := newFakeRenderer()
	s := newScheduler(t, testConfig(), r, &fakeSource{})
	sl := s.Slots()[0]
	ctx := context.Background()

	for tick := 1; tick < 480; tick++ {
		r.draws = nil
		require.NoError(t, s.Tick(ctx))
		require.Len(t, r.draws, 1, "tick %d", tick)
		assert.Equal(t, float32(1), r.draws[0].alpha)
	}

	r.draws = nil
	require.NoError(t, s.Tick(ctx))
	assert.InDelta(t, 0.8, sl.Progress(), 1e-6)
	require.Len(t, r.draws, 2)
	assert.InDelta(t, 1, r.draws[0].alpha, 1e-6)
	assert.InDelta(t, 0, r.draws[1].alpha, 1e-6)
}

func TestCrossFadeAlphaAndOffsets(t *testing.T) {
	r := newFakeRenderer()
	s := newScheduler(t, testConfig(), r, &fakeSource{})
	sl := s.Slots()[0]
	ctx := context.Background()

	for i := 0; i < 540; i++ {
		r.draws = nil
		require.NoError(t, s.Tick(ctx))
	}

	p := sl.Progress()
	base := (p - 0.8) / 0.2
	require.Len(t, r.draws, 2)
	assert.InDelta(t, 1-base, r.draws[0].alpha, 1e-5)
	assert.InDelta(t, base, r.draws[1].alpha, 1e-5)
	assert.InDelta(t, 1, r.draws[0].alpha+r.draws[1].alpha, 1e-5)

	cur, next := sl.current.window, sl.next.window
	assert.True(t, cur.Offset(float32(p)).ApproxEqualThreshold(r.draws[0].offset, 1e-5))
	assert.True(t, next.Offset(float32(p-0.8)).ApproxEqualThreshold(r.draws[1].offset, 1e-5))
	assert.Equal(t, cur.Extent(), r.draws[0].extent)
	assert.Equal(t, cell, r.draws[1].viewport)
}

func TestProgressIncreasesUntilResetToFadeComplement(t *testing.T) {
	cfg := testConfig()
	cfg.Duration = time.Second
	r := newFakeRenderer()
	s := newScheduler(t, cfg, r, &fakeSource{})
	sl := s.Slots()[0]
	ctx := context.Background()

	prev := sl.Progress()
	swaps := 0
	for i := 0; i < 300; i++ {
		before := sl.status()
		require.NoError(t, s.Tick(ctx))
		p := sl.Progress()
		if p > prev {
			prev = p
			continue
		}
		swaps++
		assert.Equal(t, 1-cfg.Fade, p)
		assert.Equal(t, before.Next, sl.status().Current, "current must be the old next after a swap")
		prev = p
	}
	assert.Greater(t, swaps, 3)
	assert.Less(t, sl.Progress(), 1.0)
}

func TestSwapReleasesOldTexture(t *testing.T) {
	cfg := testConfig()
	cfg.Duration = time.Second
	r := newFakeRenderer()
	s := newScheduler(t, cfg, r, &fakeSource{})
	first := s.Slots()[0].current.texture

	for i := 0; i < 60; i++ {
		require.NoError(t, s.Tick(context.Background()))
	}
	assert.Contains(t, r.released, first)
	assert.Len(t, r.live, 2)

	s.Close()
	assert.Empty(t, r.live)
}

func TestForceWaitFetchesAtFadeStart(t *testing.T) {
	r := newFakeRenderer()
	src := &fakeSource{tryDry: true}
	s := newScheduler(t, testConfig(), r, src)
	sl := s.Slots()[0]
	ctx := context.Background()
	startCalls := src.nextCalls

	for i := 1; i < 480; i++ {
		require.NoError(t, s.Tick(ctx))
		assert.False(t, sl.NextReady())
	}
	assert.Equal(t, startCalls, src.nextCalls)

	r.draws = nil
	require.NoError(t, s.Tick(ctx))
	assert.Equal(t, startCalls+1, src.nextCalls)
	assert.True(t, sl.NextReady())
	assert.Len(t, r.draws, 2)
}

func TestStarvationIsFatal(t *testing.T) {
	cfg := testConfig()
	cfg.ForceWait = 10 * time.Millisecond
	src := &fakeSource{tryDry: true}
	s := newScheduler(t, cfg, newFakeRenderer(), src)
	src.nextDry = true

	var err error
	for i := 0; i < 600 && err == nil; i++ {
		err = s.Tick(context.Background())
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStarved)
	assert.InDelta(t, 0.8, s.Slots()[0].Progress(), 1e-6)
}

func TestDrawFailureKeepsScheduling(t *testing.T) {
	r := newFakeRenderer()
	s := newScheduler(t, testConfig(), r, &fakeSource{})
	r.failDraw = true

	for i := 0; i < 10; i++ {
		assert.NoError(t, s.Tick(context.Background()))
	}
	assert.InDelta(t, 10.0/600.0, s.Slots()[0].Progress(), 1e-9)
}

func TestUploadFailureLeavesNextPending(t *testing.T) {
	r := newFakeRenderer()
	src := &fakeSource{}
	s, err := New(testConfig(), r, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	sl := s.AddSlot("slot", cell, src)
	require.NoError(t, s.Start(context.Background()))
	require.True(t, sl.NextReady())

	sl.next = nil
	r.failUpload = true
	require.NoError(t, s.Tick(context.Background()))
	assert.False(t, sl.NextReady())

	r.failUpload = false
	require.NoError(t, s.Tick(context.Background()))
	assert.True(t, sl.NextReady())
}

func TestGridSlotsAreDesynchronised(t *testing.T) {
	cfg := testConfig()
	cfg.Desync = true
	r := newFakeRenderer()
	s := newScheduler(t, cfg, r, &fakeSource{}, &fakeSource{}, &fakeSource{}, &fakeSource{})

	seen := map[float64]bool{}
	for _, sl := range s.Slots() {
		assert.GreaterOrEqual(t, sl.Progress(), 0.0)
		assert.Less(t, sl.Progress(), cfg.Fade)
		seen[sl.Progress()] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestSkipStartsFadeOnNextTick(t *testing.T) {
	r := newFakeRenderer()
	s := newScheduler(t, testConfig(), r, &fakeSource{})

	require.NoError(t, s.Tick(context.Background()))
	s.Skip()
	r.draws = nil
	require.NoError(t, s.Tick(context.Background()))
	assert.Len(t, r.draws, 2)
}

func TestHardCutWhenFadeIsOne(t *testing.T) {
	cfg := testConfig()
	cfg.Fade = 1
	cfg.Duration = time.Second
	r := newFakeRenderer()
	s := newScheduler(t, cfg, r, &fakeSource{})
	sl := s.Slots()[0]
	first := sl.status().Current

	for i := 0; i < 61; i++ {
		r.draws = nil
		require.NoError(t, s.Tick(context.Background()))
		assert.Len(t, r.draws, 1)
	}
	assert.NotEqual(t, first, sl.status().Current)
}

func TestEasing(t *testing.T) {
	for _, mode := range []types.EasingMode{types.EasingLinear, types.EasingEaseIn, types.EasingEaseOut, types.EasingEaseInOut} {
		assert.InDelta(t, 0, applyEasing(mode, 0), 1e-9, mode)
		assert.InDelta(t, 1, applyEasing(mode, 1), 1e-9, mode)
	}
	assert.InDelta(t, 0.25, applyEasing(types.EasingEaseIn, 0.5), 1e-9)
}
