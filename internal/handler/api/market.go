package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"DripView/internal/domain/models"
	"DripView/internal/usecase"
	xhttp "DripView/pkg/http"
)

// ReturnsSeries serves the DRIP valuation series of a basket.
func (h *Handler) ReturnsSeries(c echo.Context) error {
	start := time.Now()
	req := &models.ReturnsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, epReturns, start, verr)
	}
	symbols, err := models.ParseBasket(req.Symbols)
	if err != nil {
		return h.fail(c, epReturns, start, err)
	}
	key, err := h.apiKey(c)
	if err != nil {
		return h.fail(c, epReturns, start, err)
	}
	h.Metrics.ObserveSymbols(epReturns, len(symbols))

	res, err := h.Returns.Execute(c.Request().Context(), usecase.ReturnsParams{
		Symbols: symbols,
		Horizon: models.Horizon(req.Horizon),
		Base:    req.Base,
		Period1: req.Period1,
		Period2: req.Period2,
		APIKey:  key,
	})
	if err != nil {
		return h.fail(c, epReturns, start, err)
	}
	return h.ok(c, epReturns, start, res)
}

func (h *Handler) StatsItems(c echo.Context) error {
	start := time.Now()
	req := &models.StatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, epStats, start, verr)
	}
	p, err := h.rangeParams(c, epStats, req.Symbols, req.Range, req.Period1, req.Period2)
	if err != nil {
		return h.fail(c, epStats, start, err)
	}
	items, err := h.Stats.Execute(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, epStats, start, err)
	}
	return h.ok(c, epStats, start, xhttp.ItemsData{Items: items})
}

func (h *Handler) PricesItems(c echo.Context) error {
	start := time.Now()
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, epPrices, start, verr)
	}
	p, err := h.rangeParams(c, epPrices, req.Symbols, req.Range, req.Period1, req.Period2)
	if err != nil {
		return h.fail(c, epPrices, start, err)
	}
	items, err := h.Prices.Execute(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, epPrices, start, err)
	}
	return h.ok(c, epPrices, start, xhttp.ItemsData{Items: items})
}

func (h *Handler) DividendsItems(c echo.Context) error {
	start := time.Now()
	req := &models.DividendsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, epDividends, start, verr)
	}
	p, err := h.rangeParams(c, epDividends, req.Symbols, req.Range, 0, 0)
	if err != nil {
		return h.fail(c, epDividends, start, err)
	}
	items, err := h.Dividends.Execute(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, epDividends, start, err)
	}
	return h.ok(c, epDividends, start, xhttp.ItemsData{Items: items})
}

// ArchiveBars reads archived bars of one symbol back from storage.
func (h *Handler) ArchiveBars(c echo.Context) error {
	start := time.Now()
	req := &models.ArchiveBarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, epArchive, start, verr)
	}
	sym, err := models.NormalizeTicker(req.Symbol)
	if err != nil {
		return h.fail(c, epArchive, start, err)
	}
	bars, err := h.Archive.LoadBars(c.Request().Context(), sym, req.From, req.To, req.Limit)
	if err != nil {
		return h.fail(c, epArchive, start, err)
	}
	if bars == nil {
		bars = []models.ArchivedBar{}
	}
	return h.ok(c, epArchive, start, xhttp.ListDataResponse{Rows: bars, Total: int64(len(bars))})
}

func (h *Handler) rangeParams(c echo.Context, endpoint, rawSymbols, rng string, period1, period2 int64) (usecase.RangeParams, error) {
	symbols, err := models.ParseBasket(rawSymbols)
	if err != nil {
		return usecase.RangeParams{}, err
	}
	key, err := h.apiKey(c)
	if err != nil {
		return usecase.RangeParams{}, err
	}
	h.Metrics.ObserveSymbols(endpoint, len(symbols))
	return usecase.RangeParams{
		Symbols: symbols,
		Range:   models.Range(rng),
		Period1: period1,
		Period2: period2,
		APIKey:  key,
	}, nil
}
