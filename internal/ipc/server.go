package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/matjam/scrollpaper/internal/middleware"
)

const socketName = "scrollpaper.sock"

// SocketPath is where the control socket lives.
func SocketPath() string {
	dir := xdg.RuntimeDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, socketName)
}

// Server is the control API listening on the unix socket.
type Server struct {
	echo *echo.Echo
	path string
}

// Start listens on the control socket and serves requests in the
// background.
func Start(manager ManagerInterface, withMetrics bool) (*Server, error) {
	sockPath := SocketPath()
	if _, err := os.Stat(sockPath); err == nil {
		_ = os.Remove(sockPath)
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("unable to listen on %v: %w", sockPath, err)
	}

	e := newEcho(manager, withMetrics)
	e.Listener = listener

	go func() {
		server := new(http.Server)
		if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Socket server error: %v", err)
		}
	}()

	log.Infof("Listening on %v", sockPath)
	return &Server{echo: e, path: sockPath}, nil
}

func newEcho(manager ManagerInterface, withMetrics bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.CharmLog())

	RegisterRoutes(e, manager, withMetrics)
	return e
}

// Shutdown stops serving and removes the socket.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		log.Warnf("Socket server shutdown: %v", err)
	}
	_ = os.Remove(s.path)
}
