// Package uv computes which part of an oversized texture is visible in a frame
// and how that window moves as an image scrolls past.
package uv

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Window describes a scroll through a texture. Start is the visible fraction
// of the texture along each axis; the scrolling axis runs from Start to End
// (1.0) as progress goes from 0 to 1, or the other way round when Reversed.
type Window struct {
	Start    mgl32.Vec2
	End      mgl32.Vec2
	Reversed bool
}

// New computes the window for an image of imageW x imageH shown in a frame of
// frameW x frameH. The image fills the frame along its shorter relative axis
// and scrolls along the other.
func New(imageW, imageH, frameW, frameH int, reversed bool) Window {
	img := uint64(imageW) * uint64(frameH)
	frm := uint64(frameW) * uint64(imageH)

	start := mgl32.Vec2{1, 1}
	switch {
	case img > frm:
		start[0] = float32(float64(frm) / float64(img))
	case img < frm:
		start[1] = float32(float64(img) / float64(frm))
	}

	return Window{
		Start:    start,
		End:      mgl32.Vec2{1, 1},
		Reversed: reversed,
	}
}

// Offset returns the texture offset for progress in [0,1].
func (w Window) Offset(progress float32) mgl32.Vec2 {
	from, to := w.Start, w.End
	if w.Reversed {
		from, to = to, from
	}
	off := from.Add(to.Sub(from).Mul(progress))
	return mgl32.Vec2{mgl32.Clamp(off[0], 0, 1), mgl32.Clamp(off[1], 0, 1)}
}

// Extent is the fraction of the texture visible at once along each axis.
func (w Window) Extent() mgl32.Vec2 {
	return w.Start
}

// Scrolls reports whether the image moves at all.
func (w Window) Scrolls() bool {
	return w.Start != w.End
}
