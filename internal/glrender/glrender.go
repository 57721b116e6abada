// Package glrender draws scrolling wallpapers into a desktop-type GLFW window
// using the OpenGL 2.1 fixed pipeline.
package glrender

/*
#cgo LDFLAGS: -lGL -lX11
#include <GL/gl.h>
#include <X11/Xlib.h>
#include <X11/Xatom.h>
#include <X11/Xutil.h>
#include <stdlib.h>
#include <string.h>

void set_window_override_redirect(Display* display, Window win) {
    XSetWindowAttributes attrs;
    attrs.override_redirect = True;
    XChangeWindowAttributes(display, win, CWOverrideRedirect, &attrs);
}

void set_net_wm_window_type_desktop(Display* display, Window win) {
    Atom net_wm_window_type = XInternAtom(display, "_NET_WM_WINDOW_TYPE", False);
    Atom net_wm_window_type_desktop = XInternAtom(display, "_NET_WM_WINDOW_TYPE_DESKTOP", False);
    XChangeProperty(display, win, net_wm_window_type, XA_ATOM, 32, PropModeReplace, (unsigned char *)&net_wm_window_type_desktop, 1);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/matjam/scrollpaper/internal/decoder"
	"github.com/matjam/scrollpaper/internal/scheduler"
	"github.com/matjam/scrollpaper/internal/types"
)

const (
	defaultFramerate = 60
	maxFramerate     = 240
)

var errWindowClosed = errors.New("window closed")

// Display is a fullscreen desktop window. All methods must be called from the
// goroutine that created it.
type Display struct {
	win        *glfw.Window
	size       types.FrameSize
	frameTime  time.Duration
	frameStart time.Time
	textures   map[scheduler.TextureHandle]struct{}
	logger     *log.Logger
}

// New opens a window covering the primary monitor and makes its GL context
// current on the calling OS thread.
func New(title string, framerate int) (*Display, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init failed: %w", err)
	}
	glfw.WindowHint(glfw.Decorated, glfw.False)
	glfw.WindowHint(glfw.Focused, glfw.False)
	glfw.WindowHint(glfw.Floating, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Visible, glfw.False) // prevent auto-map
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)

	vidMode := glfw.GetPrimaryMonitor().GetVideoMode()
	win, err := glfw.CreateWindow(vidMode.Width, vidMode.Height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window failed: %w", err)
	}

	// --- Begin compositor-safe setup ---
	display := C.XOpenDisplay(nil)
	if display != nil {
		displayWindow := C.Window(win.GetX11Window())
		C.set_window_override_redirect(display, displayWindow)
		C.set_net_wm_window_type_desktop(display, displayWindow)
		C.XMapWindow(display, displayWindow)
		C.XLowerWindow(display, displayWindow)
		C.XFlush(display)
	}
	// --- End compositor-safe setup ---

	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("gl init failed: %w", err)
	}

	logger := log.WithPrefix("glrender")
	logger.Infof("OpenGL %v on %v", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))

	width, height := win.GetFramebufferSize()
	gl.ClearColor(0.0, 0.0, 0.0, 1.0)
	gl.Enable(gl.TEXTURE_2D)

	if framerate <= 0 {
		framerate = defaultFramerate
	} else if framerate > maxFramerate {
		framerate = maxFramerate
	}

	return &Display{
		win:       win,
		size:      types.FrameSize{Width: width, Height: height},
		frameTime: time.Second / time.Duration(framerate),
		textures:  map[scheduler.TextureHandle]struct{}{},
		logger:    logger,
	}, nil
}

func (d *Display) FrameSize() types.FrameSize {
	return d.size
}

func (d *Display) IsRunning() bool {
	return !d.win.ShouldClose()
}

// BeginFrame polls window events and clears the whole surface.
func (d *Display) BeginFrame() error {
	d.frameStart = time.Now()
	glfw.PollEvents()
	if d.win.ShouldClose() {
		return errWindowClosed
	}
	gl.Viewport(0, 0, int32(d.size.Width), int32(d.size.Height))
	gl.Clear(gl.COLOR_BUFFER_BIT)
	return nil
}

// EndFrame presents the frame and sleeps off whatever is left of the frame
// budget.
func (d *Display) EndFrame() error {
	d.win.SwapBuffers()
	if err := glError("swap"); err != nil {
		return err
	}
	if rest := d.frameTime - time.Since(d.frameStart); rest > 0 {
		time.Sleep(rest)
	}
	return nil
}

// UploadTexture copies the decoded pixels of img into a new texture. Row 0 of
// img is the bottom of the picture.
func (d *Display) UploadTexture(img *decoder.Image) (scheduler.TextureHandle, error) {
	rgba := img.Pixels
	if rgba == nil || rgba.Rect.Empty() {
		return 0, fmt.Errorf("%v: %w", img.Path, decoder.ErrEmptyFrame)
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(rgba.Stride/4))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
		int32(rgba.Rect.Dx()), int32(rgba.Rect.Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	if err := glError("upload " + img.Path); err != nil {
		gl.DeleteTextures(1, &tex)
		return 0, err
	}

	h := scheduler.TextureHandle(tex)
	d.textures[h] = struct{}{}
	d.logger.Debugf("uploaded %v as texture %d (%dx%d)", img.Path, tex, rgba.Rect.Dx(), rgba.Rect.Dy())
	return h, nil
}

func (d *Display) ReleaseTexture(tex scheduler.TextureHandle) {
	if _, ok := d.textures[tex]; !ok {
		return
	}
	delete(d.textures, tex)
	t := uint32(tex)
	gl.DeleteTextures(1, &t)
}

// Draw samples the texture window [offset-extent, offset] into viewport.
// Draws are blended additively so two images drawn with alphas summing to one
// cross-fade over the cleared background.
func (d *Display) Draw(tex scheduler.TextureHandle, viewport types.Rect, offset, extent mgl32.Vec2, alpha float32) error {
	if _, ok := d.textures[tex]; !ok {
		return fmt.Errorf("draw: unknown texture %d", tex)
	}

	gl.Viewport(int32(viewport.X), int32(viewport.Y), int32(viewport.Width), int32(viewport.Height))
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.Color4f(1, 1, 1, alpha)

	from := offset.Sub(extent)
	drawQuad(from, offset)

	gl.Disable(gl.BLEND)
	return glError("draw")
}

func drawQuad(from, to mgl32.Vec2) {
	gl.Begin(gl.QUADS)
	gl.TexCoord2f(from.X(), from.Y())
	gl.Vertex2f(-1, -1)
	gl.TexCoord2f(to.X(), from.Y())
	gl.Vertex2f(1, -1)
	gl.TexCoord2f(to.X(), to.Y())
	gl.Vertex2f(1, 1)
	gl.TexCoord2f(from.X(), to.Y())
	gl.Vertex2f(-1, 1)
	gl.End()
}

func (d *Display) Cleanup() {
	for tex := range d.textures {
		t := uint32(tex)
		gl.DeleteTextures(1, &t)
	}
	clear(d.textures)
	if d.win != nil {
		d.win.Destroy()
		d.win = nil
	}
	glfw.Terminate()
	runtime.UnlockOSThread()
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: gl error 0x%04x", op, code)
	}
	return nil
}
