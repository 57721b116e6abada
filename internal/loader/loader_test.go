package loader

import (
	"errors"
	"image"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matjam/scrollpaper/internal/catalog"
	"github.com/matjam/scrollpaper/internal/decoder"
	"github.com/matjam/scrollpaper/internal/metrics"
	"github.com/matjam/scrollpaper/internal/types"
)

// fakeDecoder succeeds for every path that does not contain "bad" and panics
// on paths containing "panic".
type fakeDecoder struct {
	calls atomic.Int64
}

func (d *fakeDecoder) Decode(path string, frame types.FrameSize) (*decoder.Image, error) {
	d.calls.Add(1)
	if strings.Contains(path, "panic") {
		panic("decoder exploded")
	}
	if strings.Contains(path, "bad") {
		return nil, errors.New("unsupported")
	}
	return &decoder.Image{Path: path, Pixels: image.NewRGBA(image.Rect(0, 0, 1, 1))}, nil
}

func newCatalog(t *testing.T, names ...string) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	return catalog.New([]string{dir}, false, rand.New(rand.NewPCG(1, 2)))
}

func testConfig(backlog int) Config {
	return Config{
		Name:         "test",
		Frame:        types.FrameSize{Width: 10, Height: 10},
		Backlog:      backlog,
		PollInterval: 10 * time.Millisecond,
	}
}

func receive(t *testing.T, l *Loader) *decoder.Image {
	t.Helper()
	select {
	case img, ok := <-l.Images():
		require.True(t, ok, "loader channel closed")
		return img
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for image")
		return nil
	}
}

func waitClosed(t *testing.T, l *Loader) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-l.Images():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("loader channel was not closed")
		}
	}
}

func TestLoaderDeliversEachGoodImageOncePerPass(t *testing.T) {
	cat := newCatalog(t, "a", "b", "bad1", "c", "bad2")
	l := Start(testConfig(0), cat, &fakeDecoder{}, metrics.NewStreamMetrics("test"))
	defer l.Release()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		img := receive(t, l)
		assert.False(t, seen[img.Path], "duplicate within a pass: %v", img.Path)
		seen[img.Path] = true
	}
	for path := range seen {
		assert.NotContains(t, filepath.Base(path), "bad")
	}

	// The next pass starts over with a fresh shuffle.
	assert.Contains(t, seen, receive(t, l).Path)
}

func TestLoaderAppliesBackpressure(t *testing.T) {
	cat := newCatalog(t, "a", "b", "c", "d", "e", "f")
	dec := &fakeDecoder{}
	l := Start(testConfig(2), cat, dec, metrics.NewStreamMetrics("test"))
	defer l.Release()

	// Two queued plus one blocked on send.
	assert.Eventually(t, func() bool { return dec.calls.Load() == 3 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 3, dec.calls.Load())

	receive(t, l)
	assert.Eventually(t, func() bool { return dec.calls.Load() == 4 }, 5*time.Second, 5*time.Millisecond)
}

func TestLoaderRendezvous(t *testing.T) {
	cat := newCatalog(t, "a", "b", "c")
	dec := &fakeDecoder{}
	l := Start(testConfig(0), cat, dec, metrics.NewStreamMetrics("test"))
	defer l.Release()

	assert.Eventually(t, func() bool { return dec.calls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, dec.calls.Load())
}

func TestLoaderExitsWhenReleased(t *testing.T) {
	cat := newCatalog(t, "a", "b")
	l := Start(testConfig(0), cat, &fakeDecoder{}, metrics.NewStreamMetrics("test"))

	receive(t, l)
	l.Release()
	l.Release()
	waitClosed(t, l)
}

func TestLoaderClosesChannelWhenItCrashes(t *testing.T) {
	cat := newCatalog(t, "panic")
	l := Start(testConfig(0), cat, &fakeDecoder{}, metrics.NewStreamMetrics("test"))
	defer l.Release()

	waitClosed(t, l)
}

func TestLoaderBlocksOnEmptyCatalog(t *testing.T) {
	cat := newCatalog(t)
	dec := &fakeDecoder{}
	l := Start(testConfig(0), cat, dec, metrics.NewStreamMetrics("test"))

	assert.Eventually(t, func() bool { return l.BarrenPasses() >= 3 }, 5*time.Second, 5*time.Millisecond)
	assert.Zero(t, dec.calls.Load())

	select {
	case <-l.Images():
		t.Fatal("empty catalog produced an image")
	default:
	}

	l.Release()
	waitClosed(t, l)
}

func TestLoaderCountsBarrenPassesAndRecovers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"), nil, 0o644))
	cat := catalog.New([]string{dir}, false, rand.New(rand.NewPCG(1, 2)))

	l := Start(testConfig(0), cat, &fakeDecoder{}, metrics.NewStreamMetrics("test"))
	defer l.Release()

	assert.Eventually(t, func() bool { return l.BarrenPasses() >= StarvationPasses }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "good"), nil, 0o644))
	img := receive(t, l)
	assert.Equal(t, filepath.Join(dir, "good"), img.Path)
	assert.Eventually(t, func() bool { return l.BarrenPasses() == 0 }, 5*time.Second, 5*time.Millisecond)
}
