package yahoo

import (
	"errors"
	"fmt"

	"DripView/pkg/util"
)

// Area names the provider call that failed.
type Area string

const (
	AreaCandles Area = "candles"
	AreaEvents  Area = "events"
)

const snippetLen = 300

var ErrSymbolNotFound = errors.New("yahoo: symbol not found")

// ProviderError is any failed or unusable upstream response.
type ProviderError struct {
	Area        Area
	Status      int
	Message     string
	BodySnippet string
	Err         error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *ProviderError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500 || e.Status == 0
}

func statusError(area Area, status int, body []byte) *ProviderError {
	return &ProviderError{
		Area:        area,
		Status:      status,
		Message:     fmt.Sprintf("Yahoo provider %s request failed (%d)", area, status),
		BodySnippet: util.Truncate(string(body), snippetLen),
	}
}

func parseError(area Area, detail string) *ProviderError {
	if detail == "" {
		detail = "Empty or malformed response"
	}
	return &ProviderError{
		Area:    area,
		Status:  502,
		Message: fmt.Sprintf("Yahoo provider %s parse error: %s", area, detail),
	}
}

func notFound(area Area, symbol, description string) *ProviderError {
	msg := fmt.Sprintf("Yahoo provider %s: no data for %s", area, symbol)
	if description != "" {
		msg += " (" + description + ")"
	}
	return &ProviderError{Area: area, Status: 404, Message: msg, Err: ErrSymbolNotFound}
}
