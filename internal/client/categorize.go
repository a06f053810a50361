package client

import (
	"context"
	"errors"
)

// ErrorCategory is a stable label for error classification in logs and metrics.
type ErrorCategory string

const (
	ErrorCategoryTimeout      ErrorCategory = "timeout"
	ErrorCategoryNetwork      ErrorCategory = "network"
	ErrorCategoryNotFound     ErrorCategory = "not_found"
	ErrorCategoryUnauthorized ErrorCategory = "unauthorized"
	ErrorCategoryUpstreamHTTP ErrorCategory = "upstream_http"
	ErrorCategoryParsing      ErrorCategory = "parsing"
	ErrorCategoryCircuitOpen  ErrorCategory = "circuit_open"
	ErrorCategoryUnknown      ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryTimeout
	case errors.Is(err, ErrTransport), errors.Is(err, context.Canceled):
		return ErrorCategoryNetwork
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownCounty):
		return ErrorCategoryNotFound
	case errors.Is(err, ErrUnauthorized):
		return ErrorCategoryUnauthorized
	case errors.Is(err, ErrUpstreamHTTP):
		return ErrorCategoryUpstreamHTTP
	case errors.Is(err, ErrMalformedResponse):
		return ErrorCategoryParsing
	case errors.Is(err, ErrCircuitOpen):
		return ErrorCategoryCircuitOpen
	}
	return ErrorCategoryUnknown
}
