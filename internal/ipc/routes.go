package ipc

import (
	"github.com/labstack/echo/v4"

	"github.com/matjam/scrollpaper/internal/metrics"
)

func RegisterRoutes(e *echo.Echo, manager ManagerInterface, withMetrics bool) {
	e.GET("/status", statusHandler(manager))
	e.POST("/stop", stopHandler(manager))
	e.POST("/next", nextHandler(manager))
	e.POST("/load", loadHandler(manager))
	if withMetrics {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}
}
