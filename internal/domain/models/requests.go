package models

import "strings"

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type ReturnsRequest struct {
	Symbols string  `query:"symbols" json:"symbols" validate:"required"`
	Horizon string  `query:"horizon" json:"horizon" default:"5y" validate:"oneof=5y max"`
	Base    float64 `query:"base" json:"base" default:"1000" validate:"gt=0"`
	Period1 int64   `query:"period1" json:"period1" validate:"omitempty,gt=0"`
	Period2 int64   `query:"period2" json:"period2" validate:"omitempty,gt=0"`
}

func (r *ReturnsRequest) Normalize() {
	r.Horizon = strings.ToLower(strings.TrimSpace(r.Horizon))
}

type StatsRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required"`
	Range   string `query:"range" json:"range" default:"5y" validate:"oneof=1y 5y max"`
	Period1 int64  `query:"period1" json:"period1" validate:"omitempty,gt=0"`
	Period2 int64  `query:"period2" json:"period2" validate:"omitempty,gt=0"`
}

func (r *StatsRequest) Normalize() {
	r.Range = strings.ToLower(strings.TrimSpace(r.Range))
}

type PricesRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required"`
	Range   string `query:"range" json:"range" default:"5y" validate:"oneof=1y 5y max"`
	Period1 int64  `query:"period1" json:"period1" validate:"omitempty,gt=0"`
	Period2 int64  `query:"period2" json:"period2" validate:"omitempty,gt=0"`
}

func (r *PricesRequest) Normalize() {
	r.Range = strings.ToLower(strings.TrimSpace(r.Range))
}

type DividendsRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required"`
	Range   string `query:"range" json:"range" default:"5y" validate:"oneof=1y 5y max"`
}

func (r *DividendsRequest) Normalize() {
	r.Range = strings.ToLower(strings.TrimSpace(r.Range))
}

type ArchiveBarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"2000" validate:"gte=1,lte=20000"`
}

type SaveKeyRequest struct {
	RapidAPIKey string `json:"rapidapiKey" validate:"required,min=20"`
}

func (r *SaveKeyRequest) Normalize() {
	r.RapidAPIKey = strings.TrimSpace(r.RapidAPIKey)
}

// SpanFor builds the provider span from a named range and optional periods.
func SpanFor(r Range, period1, period2 int64) Span {
	if period1 > 0 {
		return Span{Range: r, Period1: period1, Period2: period2}
	}
	return RangeSpan(r)
}
