package http

import (
	"fmt"
	"net/http"
)

// Generic error codes shared by middleware and request validation. Domain
// codes are defined next to the handlers that emit them.
const (
	CodeBind         = "ERR_BIND"
	CodeUnknown      = "ERR_UNKNOWN"
	CodeUnauthorized = "ERR_UNAUTHORIZED"
	CodeRateLimited  = "ERR_RATE_LIMITED"
	CodeInternal     = "ERR_INTERNAL"
)

// AppError is the single error shape written to API clients. Status is the
// HTTP status and never serialized.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// HTTPStatus is Status clamped to an error range, 500 when unset.
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Status == 0:
		return http.StatusInternalServerError
	case e.Status < 400:
		return http.StatusBadRequest
	case e.Status > 599:
		return http.StatusInternalServerError
	}
	return e.Status
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(CodeRateLimited, "", message, http.StatusTooManyRequests)
}

func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}
