package cmd

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matjam/scrollpaper/internal/cli/cmd/utils"
	"github.com/matjam/scrollpaper/internal/glrender"
	"github.com/matjam/scrollpaper/internal/ipc"
	"github.com/matjam/scrollpaper/internal/loader"
	"github.com/matjam/scrollpaper/internal/stream"
	"github.com/matjam/scrollpaper/internal/types"
	"github.com/matjam/scrollpaper/internal/wallpaper"
)

func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start scrollpaper",
		Long:  `Starts drawing wallpapers. With --background the process detaches and logs to a file.`,
		Run: func(cmd *cobra.Command, args []string) {
			StartManager()
		},
	}
}

// StartManager runs the wallpaper until it is stopped. When --background is
// set the parent process returns as soon as the daemon has been forked.
func StartManager() {
	if _, err := ipc.SendStatus(); err == nil {
		log.Infof("scrollpaper is already running, exiting")
		return
	}

	settings, err := utils.LoadSettings()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if viper.GetBool("background") {
		dctx := &daemon.Context{
			PidFileName: filepath.Join(xdg.RuntimeDir, "scrollpaper.pid"),
			PidFilePerm: 0644,
			WorkDir:     "/",
			Umask:       027,
		}
		child, err := dctx.Reborn()
		if err != nil {
			log.Fatalf("Unable to run in the background: %v", err)
		}
		if child != nil {
			log.Infof("scrollpaper started in the background with PID %d", child.Pid)
			return
		}
		defer dctx.Release()
		setupRotatingLogger(settings.Debug)
	}

	log.Infof("StartManager() started in PID: %d", os.Getpid())
	if err := run(settings); err != nil {
		log.Fatalf("scrollpaper stopped: %v", err)
	}
	log.Infof("scrollpaper exited")
}

func run(settings utils.Settings) error {
	seed := settings.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log.Infof("Random seed: %d", seed)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	display, err := glrender.New("scrollpaper", settings.Framerate)
	if err != nil {
		return err
	}

	newSource := func(name string, frame types.FrameSize) wallpaper.Source {
		return stream.New(stream.Options{
			Loader: loader.Config{
				Name:         name,
				Frame:        frame,
				Backlog:      settings.Backlog,
				PollInterval: settings.PollInterval,
			},
			Dirs:      settings.Wallpapers,
			Recursive: settings.Recursive,
			Rand:      rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())),
		})
	}

	manager, err := wallpaper.NewManager(display, wallpaper.Config{
		Grid:      settings.Grid,
		Scheduler: settings.SchedulerConfig(),
	}, rng, newSource)
	if err != nil {
		display.Cleanup()
		return err
	}

	server, err := ipc.Start(manager, settings.Metrics)
	if err != nil {
		log.Errorf("Control socket unavailable: %v", err)
	} else {
		defer server.Shutdown()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Running with wallpapers from %v", settings.Wallpapers)
	if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func setupRotatingLogger(debug bool) {
	logDir := utils.DataDir()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Fatalf("failed to create log directory: %v", err)
	}
	logPath := filepath.Join(logDir, "scrollpaper.log")

	writer, err := rotatelogs.New(
		logPath+".%Y%m%d%H%M",
		rotatelogs.WithLinkName(logPath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationSize(10*1024*1024),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		log.Fatalf("failed to configure log rotation: %v", err)
	}

	log.SetOutput(writer)
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
