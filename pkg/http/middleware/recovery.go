package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	applogger "DripView/pkg/logger"
)

// Recover turns handler panics into a 500 envelope.
func Recover(log *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					perr, ok := r.(error)
					if !ok {
						perr = fmt.Errorf("%v", r)
					}
					log.Error("panic recovered",
						applogger.Error(perr),
						applogger.String("route", routeOf(c)),
						applogger.String("stack", string(debug.Stack())),
					)
					err = writeError(c, http.StatusInternalServerError, "ERR_INTERNAL", "Internal server error", nil)
				}
			}()
			return next(c)
		}
	}
}

// writeError renders the standard error envelope without importing the
// parent http package.
func writeError(c echo.Context, status int, code, message string, params map[string]interface{}) error {
	item := map[string]interface{}{"code": code, "message": message}
	if len(params) > 0 {
		item["params"] = params
	}
	return c.JSON(status, map[string]interface{}{
		"status":  status,
		"message": http.StatusText(status),
		"data":    []interface{}{item},
	})
}
