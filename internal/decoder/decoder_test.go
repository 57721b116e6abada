package decoder

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matjam/scrollpaper/internal/types"
)

// writePNG writes a w x h image whose top row is red and everything else blue.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{B: 255, A: 255}
			if y == 0 {
				c = color.RGBA{R: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

var fullHD = types.FrameSize{Width: 1920, Height: 1080}

func TestScrollDirection(t *testing.T) {
	assert.Equal(t, Horizontal, ScrollDirection(3840, 1080, 1920, 1080))
	assert.Equal(t, Vertical, ScrollDirection(1080, 1920, 1920, 1080))
	assert.Equal(t, NoScroll, ScrollDirection(3840, 2160, 1920, 1080))
	assert.Equal(t, NoScroll, ScrollDirection(16, 9, 1920, 1080))
	// Off by a single pixel on a huge image, well past float32 precision.
	assert.Equal(t, Vertical, ScrollDirection(1920*1000001, 1080*1000001+1, 1920, 1080))
}

func TestFitSize(t *testing.T) {
	cases := []struct {
		name         string
		iw, ih       int
		wantW, wantH int
	}{
		{"wide panorama keeps size", 3840, 1080, 3840, 1080},
		{"tall wide image shrinks to frame height", 7680, 2160, 3840, 1080},
		{"portrait shrinks to frame width", 3840, 4320, 1920, 2160},
		{"small image never grows", 800, 600, 800, 600},
		{"same aspect shrinks to frame", 3840, 2160, 1920, 1080},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := ScrollDirection(tc.iw, tc.ih, fullHD.Width, fullHD.Height)
			w, h := FitSize(tc.iw, tc.ih, fullHD, dir)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}
}

func TestDecodeHorizontalPanorama(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.png")
	writePNG(t, path, 3840, 1080)

	img, err := Decode(path, fullHD)
	require.NoError(t, err)
	assert.Equal(t, Horizontal, img.Direction)
	assert.Equal(t, 3840, img.Width())
	assert.Equal(t, 1080, img.Height())
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, path, img.Path)
}

func TestDecodeFlipsVertically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.png")
	writePNG(t, path, 4, 3)

	img, err := Decode(path, fullHD)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.Pixels.RGBAAt(0, 2))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.Pixels.RGBAAt(0, 0))
}

func TestDecodeShrinksPortrait(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portrait.png")
	writePNG(t, path, 400, 800)

	img, err := Decode(path, types.FrameSize{Width: 200, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, Vertical, img.Direction)
	assert.Equal(t, 200, img.Width())
	assert.Equal(t, 400, img.Height())
}

func TestDecodeSniffsContentNotExtension(t *testing.T) {
	dir := t.TempDir()
	disguised := filepath.Join(dir, "actually-a-png.jpg")
	writePNG(t, disguised, 10, 10)

	img, err := Decode(disguised, fullHD)
	require.NoError(t, err)
	assert.Equal(t, "png", img.Format)

	notImage := filepath.Join(dir, "fake.png")
	require.NoError(t, os.WriteFile(notImage, []byte("definitely not an image"), 0o644))
	_, err = Decode(notImage, fullHD)
	assert.Error(t, err)
}

func TestDecodeMissingFile(t *testing.T) {
	_, err := Decode(filepath.Join(t.TempDir(), "nope.png"), fullHD)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	writePNG(t, path, 1000, 700)
	frame := types.FrameSize{Width: 300, Height: 200}

	a, err := Decode(path, frame)
	require.NoError(t, err)
	b, err := Decode(path, frame)
	require.NoError(t, err)
	assert.Equal(t, a.Width(), b.Width())
	assert.Equal(t, a.Height(), b.Height())
}

func TestFitRejectsZeroDimensions(t *testing.T) {
	_, err := Fit(image.NewRGBA(image.Rect(0, 0, 0, 10)), fullHD)
	assert.ErrorIs(t, err, ErrZeroDimension)

	_, err = Fit(image.NewRGBA(image.Rect(0, 0, 10, 10)), types.FrameSize{})
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestFitHandlesOffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 15, 25))
	img, err := Fit(src, fullHD)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 20), img.Pixels.Rect)
}
