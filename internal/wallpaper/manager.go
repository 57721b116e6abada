// Package wallpaper runs the render loop: it owns the display, the image
// sources of every grid cell and the scheduler that draws them.
package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matjam/scrollpaper/internal/ipc"
	"github.com/matjam/scrollpaper/internal/scheduler"
	"github.com/matjam/scrollpaper/internal/stream"
	"github.com/matjam/scrollpaper/internal/types"
)

const commandQueueSize = 8

var errQueueFull = errors.New("command queue full")

// Surface is the window being drawn into.
type Surface interface {
	FrameSize() types.FrameSize // Size of the whole surface, queried once
	BeginFrame() error          // Poll events and clear
	EndFrame() error            // Present the frame
	IsRunning() bool
	Cleanup()
}

// Display is a surface that can also hold and draw textures.
type Display interface {
	Surface
	scheduler.Renderer
}

// Source is an image source that can be pointed at new directories.
type Source interface {
	scheduler.ImageSource
	Reload(dirs []string)
	Stats() stream.Stats
	Close()
}

// SourceFactory creates the source for one grid cell. frame is the size of
// the cell images must be fitted to.
type SourceFactory func(name string, frame types.FrameSize) Source

type Config struct {
	Grid      types.GridSize
	Scheduler scheduler.Config
}

type Manager struct {
	sync.Mutex
	display Display
	sched   *scheduler.Scheduler
	sources []Source
	grid    types.GridSize
	frame   types.FrameSize
	cmds    chan ipc.Command
	status  ipc.ManagerStatus
	started time.Time
}

// NewManager splits the display into grid cells and creates a slot and a
// source for each of them.
func NewManager(display Display, cfg Config, rng *rand.Rand, newSource SourceFactory) (*Manager, error) {
	if cfg.Grid.Columns < 1 || cfg.Grid.Rows < 1 {
		return nil, fmt.Errorf("invalid grid %v", cfg.Grid)
	}
	frame := display.FrameSize()
	if frame.Empty() {
		return nil, fmt.Errorf("display has no usable size: %v", frame)
	}

	schedCfg := cfg.Scheduler
	schedCfg.Desync = cfg.Grid.Cells() > 1
	sched, err := scheduler.New(schedCfg, display, rng)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		display: display,
		sched:   sched,
		grid:    cfg.Grid,
		frame:   frame,
		cmds:    make(chan ipc.Command, commandQueueSize),
	}

	for i, viewport := range cfg.Grid.Split(frame) {
		name := fmt.Sprintf("cell%d", i)
		if cfg.Grid.Cells() == 1 {
			name = "main"
		}
		src := newSource(name, viewport.Size())
		m.sources = append(m.sources, src)
		sched.AddSlot(name, viewport, src)
	}

	log.Infof("Display %v split into %v cells", frame, cfg.Grid)
	return m, nil
}

// Status returns the state recorded at the end of the last frame.
func (m *Manager) Status() ipc.ManagerStatus {
	m.Lock()
	defer m.Unlock()
	return m.status
}

// EnqueueCommand queues cmd for the render loop without blocking.
func (m *Manager) EnqueueCommand(cmd ipc.Command) error {
	select {
	case m.cmds <- cmd:
		return nil
	default:
		return errQueueFull
	}
}

func (m *Manager) Stop() {
	_ = m.EnqueueCommand(ipc.Command{Type: ipc.CommandStop})
}

// Run blocks until the display closes, a stop command arrives or ctx is
// done. It must be called from the goroutine that created the display. Only
// errors that leave the wallpaper unable to continue are returned.
func (m *Manager) Run(ctx context.Context) error {
	log.Info("Starting wallpaper manager...")
	defer m.cleanup()

	m.started = time.Now()
	log.Info("Waiting for the first image of every cell...")
	if err := m.sched.Start(ctx); err != nil {
		return err
	}
	m.snapshot()

	for m.display.IsRunning() {
		if ctx.Err() != nil {
			log.Info("Context cancelled, stopping wallpaper manager ...")
			return nil
		}
		if !m.drainCommands() {
			return nil
		}

		if err := m.display.BeginFrame(); err != nil {
			log.Errorf("BeginFrame failed: %v", err)
			continue
		}

		if err := m.sched.Tick(ctx); err != nil {
			if errors.Is(err, scheduler.ErrStarved) {
				return err
			}
			log.Errorf("Tick failed: %v", err)
		}

		if err := m.display.EndFrame(); err != nil {
			log.Errorf("EndFrame failed: %v", err)
		}

		m.snapshot()
	}

	log.Info("Display closed")
	return nil
}

// drainCommands handles every queued command and reports whether the loop
// should keep running.
func (m *Manager) drainCommands() bool {
	for {
		select {
		case cmd := <-m.cmds:
			switch cmd.Type {
			case ipc.CommandStop:
				log.Info("Stopping wallpaper manager ...")
				return false
			case ipc.CommandNext:
				log.Info("Received next command")
				m.sched.Skip()
			case ipc.CommandLoad:
				if len(cmd.Args) == 0 {
					log.Error("No directories specified for load command")
					continue
				}
				log.Infof("Loading wallpapers from %v", cmd.Args)
				for _, src := range m.sources {
					src.Reload(cmd.Args)
				}
			default:
				log.Errorf("Unknown command: %v", cmd.Type)
			}
		default:
			return true
		}
	}
}

func (m *Manager) snapshot() {
	streams := make([]stream.Stats, 0, len(m.sources))
	for _, src := range m.sources {
		streams = append(streams, src.Stats())
	}
	st := ipc.ManagerStatus{
		Frame:   m.frame,
		Grid:    m.grid.String(),
		Uptime:  time.Since(m.started).Round(time.Second).String(),
		Slots:   m.sched.Status(),
		Streams: streams,
	}

	m.Lock()
	m.status = st
	m.Unlock()
}

func (m *Manager) cleanup() {
	m.sched.Close()
	for _, src := range m.sources {
		src.Close()
	}
	m.display.Cleanup()
	log.Info("Wallpaper manager stopped.")
}
