// Package decoder turns image files into RGBA bitmaps fitted to a frame.
package decoder

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"os"

	// import image formats to register them
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"github.com/matjam/scrollpaper/internal/types"
)

var (
	ErrZeroDimension = errors.New("image has a zero dimension")
	ErrEmptyFrame    = errors.New("frame has a zero dimension")
)

// Direction is the axis along which an image scrolls through its frame.
type Direction int

const (
	NoScroll Direction = iota
	Horizontal
	Vertical
)

func (d Direction) String() string {
	switch d {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "none"
	}
}

// Image is a decoded bitmap, flipped so that row 0 is the bottom of the picture.
type Image struct {
	Path      string
	Format    string
	Pixels    *image.RGBA
	Direction Direction
}

func (i *Image) Width() int {
	return i.Pixels.Rect.Dx()
}

func (i *Image) Height() int {
	return i.Pixels.Rect.Dy()
}

// Func adapts a plain function to the loader's decoder interface.
type Func func(path string, frame types.FrameSize) (*Image, error)

func (f Func) Decode(path string, frame types.FrameSize) (*Image, error) {
	return f(path, frame)
}

// Default is the file decoder used outside of tests.
var Default = Func(Decode)

// Decode reads the file at path, sniffing its format from the content, and
// fits it to frame.
func Decode(path string, frame types.FrameSize) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("unable to decode image: %w", err)
	}

	fitted, err := Fit(img, frame)
	if err != nil {
		return nil, err
	}
	fitted.Path = path
	fitted.Format = format
	return fitted, nil
}

// Fit shrinks img so that its non-scrolling axis matches the frame, converts
// it to RGBA and flips it vertically. Images are never enlarged.
func Fit(img image.Image, frame types.FrameSize) (*Image, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrZeroDimension, b.Dx(), b.Dy())
	}

	dir := ScrollDirection(b.Dx(), b.Dy(), frame.Width, frame.Height)
	w, h := FitSize(b.Dx(), b.Dy(), frame, dir)
	if w != b.Dx() || h != b.Dy() {
		img = resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
	}

	return &Image{
		Pixels:    flipRGBA(img),
		Direction: dir,
	}, nil
}

// ScrollDirection compares the aspect ratio of an image against the frame's.
// The comparison is done on integer cross products so equal ratios are
// detected exactly.
func ScrollDirection(imageW, imageH, frameW, frameH int) Direction {
	img := uint64(imageW) * uint64(frameH)
	frm := uint64(frameW) * uint64(imageH)
	switch {
	case img == frm:
		return NoScroll
	case img > frm:
		return Horizontal
	default:
		return Vertical
	}
}

// FitSize returns the dimensions an image should be resized to. A horizontally
// scrolling image keeps its height at most the frame height, a vertically
// scrolling one its width at most the frame width.
func FitSize(imageW, imageH int, frame types.FrameSize, dir Direction) (int, int) {
	switch dir {
	case Vertical:
		if imageW <= frame.Width {
			return imageW, imageH
		}
		return frame.Width, max(1, scale(imageH, frame.Width, imageW))
	default:
		if imageH <= frame.Height {
			return imageW, imageH
		}
		return max(1, scale(imageW, frame.Height, imageH)), frame.Height
	}
}

// scale returns round(v * num / den).
func scale(v, num, den int) int {
	return int((uint64(v)*uint64(num) + uint64(den)/2) / uint64(den))
}

func flipRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	stride := rgba.Stride
	row := make([]byte, stride)
	h := rgba.Rect.Dy()
	for y := 0; y < h/2; y++ {
		top := rgba.Pix[y*stride : (y+1)*stride]
		bottom := rgba.Pix[(h-1-y)*stride : (h-y)*stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
	return rgba
}
