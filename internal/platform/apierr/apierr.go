package apierr

import (
	"fmt"
	"net/http"
)

// Stable machine-readable codes surfaced to API clients. Each maps to exactly
// one HTTP status via its constructor below.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeSchemaValidation = "schema_validation_failed"
	CodeNoCandidates     = "no_candidates"
	CodeConfiguration    = "configuration_error"
	CodeIndexRuntime     = "index_runtime_error"
	CodeInternal         = "internal_error"
)

// Error carries the HTTP status a failure should surface as, alongside its
// code and the underlying cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// One constructor per engine error taxonomy outcome.

func InvalidRequest(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidRequest, err)
}

func SchemaValidation(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeSchemaValidation, err)
}

func NoCandidates(err error) *Error {
	return New(http.StatusConflict, CodeNoCandidates, err)
}

func Configuration(err error) *Error {
	return New(http.StatusInternalServerError, CodeConfiguration, err)
}

func IndexRuntime(err error) *Error {
	return New(http.StatusServiceUnavailable, CodeIndexRuntime, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}
