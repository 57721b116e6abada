package ipc

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/viper"

	"github.com/matjam/scrollpaper"
)

// GET /status
func statusHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, StatusResponse{
			Status:  "ok",
			Message: "scrollpaper is running",
			Version: strings.Trim(scrollpaper.Version, "\n\r "),
			PID:     os.Getpid(),
			Socket:  SocketPath(),
			Config:  viper.ConfigFileUsed(),
			Manager: m.Status(),
		}, "  ")
	}
}

// POST /stop
func stopHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		return enqueue(c, m, Command{Type: CommandStop})
	}
}

// POST /next
func nextHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		return enqueue(c, m, Command{Type: CommandNext})
	}
}

// POST /load
func loadHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		var dirs []string
		if err := c.Bind(&dirs); err != nil || len(dirs) == 0 {
			return c.JSON(http.StatusBadRequest, Response{Status: "error", Error: "expected a JSON array of directories"})
		}

		for _, dir := range dirs {
			if !filepath.IsAbs(dir) {
				return c.JSON(http.StatusBadRequest, Response{Status: "error", Error: "directory must be absolute: " + dir})
			}
		}

		if err := m.EnqueueCommand(Command{Type: CommandLoad, Args: dirs}); err != nil {
			return c.JSON(http.StatusServiceUnavailable, Response{Status: "error", Error: err.Error()})
		}
		return c.JSON(http.StatusOK, Response{Status: "ok", Loaded: len(dirs)})
	}
}

func enqueue(c echo.Context, m ManagerInterface, cmd Command) error {
	if err := m.EnqueueCommand(cmd); err != nil {
		return c.JSON(http.StatusServiceUnavailable, Response{Status: "error", Error: err.Error()})
	}
	return c.JSON(http.StatusOK, Response{Status: "ok"})
}
