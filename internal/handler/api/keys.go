package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"DripView/internal/domain/models"
	xhttp "DripView/pkg/http"
	"DripView/pkg/http/middleware"
)

func (h *Handler) KeyStatus(c echo.Context) error {
	start := time.Now()
	has, err := h.Keys.Status(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return h.fail(c, epKey, start, err)
	}
	return h.ok(c, epKey, start, map[string]bool{"hasKey": has})
}

// SaveKey encrypts and stores the caller's provider key. The key is never
// echoed back or logged.
func (h *Handler) SaveKey(c echo.Context) error {
	start := time.Now()
	req := &models.SaveKeyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, epKey, start, verr)
	}
	if err := h.Keys.Save(c.Request().Context(), middleware.UserID(c), req.RapidAPIKey); err != nil {
		return h.fail(c, epKey, start, err)
	}
	return h.ok(c, epKey, start, map[string]bool{"ok": true})
}

func (h *Handler) DeleteKey(c echo.Context) error {
	start := time.Now()
	if err := h.Keys.Delete(c.Request().Context(), middleware.UserID(c)); err != nil {
		return h.fail(c, epKey, start, err)
	}
	return h.ok(c, epKey, start, map[string]bool{"ok": true})
}
