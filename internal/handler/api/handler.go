package api

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	domrepo "DripView/internal/domain/repository"
	svcmetrics "DripView/internal/service/metrics"
	"DripView/internal/usecase"
	xhttp "DripView/pkg/http"
	"DripView/pkg/http/middleware"
	applogger "DripView/pkg/logger"
)

const (
	epReturns   = "returns"
	epStats     = "stats"
	epPrices    = "prices"
	epDividends = "dividends"
	epArchive   = "archive_bars"
	epKey       = "user_key"
)

// Deps are the collaborators of the API handler. Archive and Limiter may be
// nil, which disables the archive route and rate limiting.
type Deps struct {
	Returns    *usecase.ReturnsUseCase
	Stats      *usecase.StatsUseCase
	Prices     *usecase.PricesUseCase
	Dividends  *usecase.DividendsUseCase
	Keys       *usecase.KeysUseCase
	Archive    domrepo.Storage
	Metrics    *svcmetrics.Endpoint
	Auth       middleware.AuthConfig
	Limiter    middleware.RateChecker
	Production bool
	Log        *applogger.Logger
}

// Handler serves the /api routes.
type Handler struct {
	Deps
	log *applogger.Logger
}

func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = applogger.NewNop()
	}
	return &Handler{Deps: d, log: log.With("api")}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", middleware.Auth(h.Auth))

	onLimitErr := func(err error) {
		h.log.Warn("rate limiter unavailable, allowing request", applogger.Error(err))
	}
	g.GET("/returns", h.ReturnsSeries, echomw.Gzip(), middleware.RateLimit(epReturns, h.Limiter, onLimitErr))
	g.GET("/stats", h.StatsItems, middleware.RateLimit(epStats, h.Limiter, onLimitErr))
	g.GET("/prices", h.PricesItems)
	g.GET("/dividends", h.DividendsItems)
	if h.Archive != nil {
		g.GET("/archive/bars", h.ArchiveBars)
	}

	g.GET("/user/key", h.KeyStatus)
	g.POST("/user/key", h.SaveKey)
	g.DELETE("/user/key", h.DeleteKey)
}

// apiKey resolves the caller's stored provider key.
func (h *Handler) apiKey(c echo.Context) (string, error) {
	return h.Keys.Resolve(c.Request().Context(), middleware.UserID(c))
}

func (h *Handler) fail(c echo.Context, endpoint string, start time.Time, err error) error {
	appErr := toAppError(err, h.Production)
	h.Metrics.Observe(endpoint, start, appErr.Code)
	if appErr.Status >= 500 {
		h.log.Error(endpoint+" failed",
			applogger.String("code", appErr.Code),
			applogger.String("user", middleware.UserID(c)),
			applogger.Error(err),
		)
	} else {
		h.log.Debug(endpoint+" rejected", applogger.String("code", appErr.Code), applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *Handler) invalid(c echo.Context, endpoint string, start time.Time, verr []xhttp.ValidationError) error {
	h.Metrics.Observe(endpoint, start, "VALIDATION")
	return xhttp.BadRequestResponse(c, verr)
}

func (h *Handler) ok(c echo.Context, endpoint string, start time.Time, data interface{}) error {
	h.Metrics.Observe(endpoint, start, "")
	return xhttp.SuccessResponse(c, data)
}
