package api

import (
	"errors"
	"net/http"

	"DripView/internal/domain/models"
	"DripView/internal/service/keystore"
	"DripView/internal/service/yahoo"
	"DripView/internal/services/drip"
	xhttp "DripView/pkg/http"
)

// toAppError maps domain and provider errors to the API error shape. In
// production messages are generic and params are dropped.
func toAppError(err error, production bool) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var tv *models.TickerValidationError
	if errors.As(err, &tv) {
		e := xhttp.NewAppError("INVALID_TICKER", "symbols", tv.Error(), http.StatusBadRequest)
		if !production && tv.Symbol != "" {
			e.WithParam("symbol", tv.Symbol)
		}
		return e.WithError(err)
	}

	var pe *yahoo.ProviderError
	if errors.As(err, &pe) {
		code := "PROVIDER_EVENTS_ERROR"
		if pe.Area == yahoo.AreaCandles {
			code = "PROVIDER_CANDLES_ERROR"
		}
		status := pe.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		status = min(max(status, 400), 599)

		if production {
			return xhttp.NewAppError(code, "", "Upstream provider error", status).WithError(err)
		}
		e := xhttp.NewAppError(code, "", pe.Message, status).WithError(err)
		if pe.BodySnippet != "" {
			e.WithParam("bodySnippet", pe.BodySnippet)
		}
		return e
	}

	switch {
	case errors.Is(err, drip.ErrInvalidArgument):
		return xhttp.NewAppError("INVALID_ARGUMENT", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, keystore.ErrKeyNotSet):
		return xhttp.NewAppError("KEY_NOT_SET", "", "RapidAPI key not set, save one under /api/user/key", http.StatusBadRequest).WithError(err)
	case errors.Is(err, keystore.ErrInvalidKey):
		return xhttp.NewAppError("INVALID_KEY", "rapidapiKey", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, keystore.ErrMisconfiguredSecret):
		return xhttp.NewAppError("MISCONFIGURED_SECRET", "", "Server secret not configured", http.StatusInternalServerError).WithError(err)
	}

	msg := "Internal server error"
	if !production {
		msg = err.Error()
	}
	return xhttp.NewAppError("INTERNAL_ERROR", "", msg, http.StatusInternalServerError).WithError(err)
}
