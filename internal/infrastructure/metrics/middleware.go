package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Middleware returns an Echo middleware that records HTTP request metrics.
func Middleware(m *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// let the error handler write the response so the real status is recorded
				c.Error(err)
			}

			m.RecordHTTPRequest(
				c.Request().Method,
				normalizePath(c),
				strconv.Itoa(c.Response().Status),
				time.Since(start).Seconds(),
			)

			return nil
		}
	}
}

// normalizePath returns the route pattern rather than the raw path to keep
// label cardinality bounded, e.g. /api/v1/communities/:id/join.
func normalizePath(c echo.Context) string {
	if path := c.Path(); path != "" {
		return path
	}
	return "unmatched"
}
