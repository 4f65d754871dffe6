package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "DripView/pkg/logger"
)

// RequestLogging logs one line per HTTP request.
func RequestLogging(log *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", routeOf(c)),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency_ms", time.Since(start)),
				applogger.String("request_id", GetRequestID(c)),
			}
			if uid := UserID(c); uid != "" {
				fields = append(fields, applogger.String("user_id", uid))
			}
			log.Debug("request", fields...)
			return nil
		}
	}
}

func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}
