package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Symbols string  `query:"symbols" validate:"required"`
	Range   string  `query:"range" default:"5y" validate:"oneof=1y 5y max"`
	Base    float64 `query:"base" default:"1000" validate:"gt=0"`
}

func (r *sampleRequest) Normalize() { r.Range = strings.ToLower(r.Range) }

func newContext(target string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestReadAndValidateRequest(t *testing.T) {
	var req sampleRequest
	errs := ReadAndValidateRequest(newContext("/?symbols=AAPL&range=MAX"), &req)
	require.Nil(t, errs)
	assert.Equal(t, "max", req.Range)
	assert.Equal(t, 1000.0, req.Base)

	var bad sampleRequest
	errs = ReadAndValidateRequest(newContext("/?range=10y&base=-3"), &bad)
	require.Len(t, errs, 3)
	codes := []string{errs[0].Code, errs[1].Code, errs[2].Code}
	assert.ElementsMatch(t, []string{"ERR_REQUIRED", "ERR_ONEOF", "ERR_GT"}, codes)

	var unparsable sampleRequest
	errs = ReadAndValidateRequest(newContext("/?symbols=A&base=abc"), &unparsable)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}

func TestAppErrorResponseUsesStatus(t *testing.T) {
	c := newContext("/")
	err := TooManyRequestsError("slow down").WithParam("retryAfterSeconds", 3)
	require.NoError(t, AppErrorResponse(c, err))

	rec := c.Response().Writer.(*httptest.ResponseRecorder)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
	assert.Equal(t, "Too Many Requests", body.Message)
}

func TestAppErrorResponseFallsBackToInternal(t *testing.T) {
	c := newContext("/")
	require.NoError(t, AppErrorResponse(c, assert.AnError))
	rec := c.Response().Writer.(*httptest.ResponseRecorder)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_INTERNAL")
}

func TestAppErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   int
	}{
		{0, http.StatusInternalServerError},
		{http.StatusOK, http.StatusBadRequest},
		{http.StatusNotFound, http.StatusNotFound},
		{http.StatusBadGateway, http.StatusBadGateway},
		{700, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		e := NewAppError("X", "", "x", tt.status)
		assert.Equal(t, tt.want, e.HTTPStatus(), tt.status)
	}
}

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream"))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()), WithUserAgent("dripview-test"))
	opts := &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL + "/ok",
		Headers:     map[string]string{"x-api-key": "k"},
		QueryParams: map[string][]string{"symbol": {"AAPL"}},
	}

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.SendAndParse(context.Background(), opts, &out))
	assert.True(t, out.OK)

	opts.URL = srv.URL + "/fail"
	err := c.SendAndParse(context.Background(), opts, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "upstream", string(se.Body))
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
}

func TestServerRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := NewServer(Handlers{pingHandler{}}, nil, WithMetrics("/metrics", reg, reg))

	for _, path := range []string{"/ping", "/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
