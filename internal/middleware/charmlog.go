// Package middleware holds echo middleware for the control socket.
package middleware

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
)

// CharmLog logs every request on the control socket at debug level, and
// failed ones at warn.
func CharmLog() echo.MiddlewareFunc {
	logger := log.WithPrefix("ipc")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			fields := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", status,
				"took", time.Since(start).Round(time.Microsecond),
			}
			if status >= 400 {
				logger.Warn("request failed", fields...)
			} else {
				logger.Debug("request", fields...)
			}
			return nil
		}
	}
}
