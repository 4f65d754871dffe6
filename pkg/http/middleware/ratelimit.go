package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const HeaderRetryAfter = "Retry-After"

// RateDecision is the outcome of a rate-limit check.
type RateDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateChecker decides whether identity may call route now.
type RateChecker interface {
	Check(ctx context.Context, route, identity string) (RateDecision, error)
}

// RateLimit rejects requests over the limit with 429 and Retry-After.
// Checker failures let the request through and are reported to onErr.
func RateLimit(route string, checker RateChecker, onErr func(error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if checker == nil {
				return next(c)
			}
			d, err := checker.Check(c.Request().Context(), route, Identity(c))
			if err != nil {
				if onErr != nil {
					onErr(err)
				}
				return next(c)
			}
			if d.Allowed {
				return next(c)
			}

			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Response().Header().Set(HeaderRetryAfter, strconv.Itoa(secs))
			return writeError(c, http.StatusTooManyRequests, "ERR_RATE_LIMITED", "Rate limit exceeded",
				map[string]interface{}{"retryAfterSeconds": secs})
		}
	}
}

// Identity is the rate-limit key for a request: the authenticated user,
// then X-User-Id, then the first forwarded IP, then "anon".
func Identity(c echo.Context) string {
	if uid := UserID(c); uid != "" {
		return "user:" + uid
	}
	req := c.Request()
	if v := strings.TrimSpace(req.Header.Get(HeaderUserID)); v != "" {
		return v
	}
	if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	return "anon"
}
