package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	dErrors "cortex/pkg/domain-errors"
)

// failureClass categorizes a backend error for retry and sanitization
// decisions. Only transport-level trouble is worth another attempt.
type failureClass int

const (
	failureUnknown failureClass = iota
	failureRateLimit
	failureServer
	failureTimeout
	failureAuth
	failureBadRequest
)

func (f failureClass) retryable() bool {
	switch f {
	case failureRateLimit, failureServer, failureTimeout:
		return true
	}
	return false
}

func (f failureClass) String() string {
	switch f {
	case failureRateLimit:
		return "rate_limit"
	case failureServer:
		return "server"
	case failureTimeout:
		return "timeout"
	case failureAuth:
		return "auth"
	case failureBadRequest:
		return "bad_request"
	}
	return "unknown"
}

// Callers receive a small, fixed vocabulary of generic messages; raw
// provider detail never crosses the trust boundary.
const (
	msgRateLimited   = "rate limit exceeded, try again later"
	msgTimeout       = "the AI request timed out"
	msgFailed        = "AI generation failed, try again later"
	msgShapeMismatch = "the AI response did not match the expected format"
)

// classify maps an arbitrary backend error to a failure class. Backends
// with typed SDK errors pre-classify via statusError; everything else is
// matched on transport signals.
func classify(err error) failureClass {
	var se *statusError
	if errors.As(err, &se) {
		return classifyStatus(se.status)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return failureTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return failureTimeout
	}
	// Last resort for SDKs that flatten API errors into strings.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return failureRateLimit
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return failureTimeout
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "api key"):
		return failureAuth
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "overloaded"):
		return failureServer
	}
	return failureUnknown
}

func classifyStatus(status int) failureClass {
	switch {
	case status == http.StatusTooManyRequests:
		return failureRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return failureTimeout
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return failureAuth
	case status >= 500:
		return failureServer
	case status >= 400:
		return failureBadRequest
	}
	return failureUnknown
}

// sanitized converts the final failure into the caller-facing domain error.
func sanitized(class failureClass, err error) error {
	switch class {
	case failureRateLimit:
		return dErrors.Wrap(err, dErrors.CodeRateLimited, msgRateLimited)
	case failureTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout, msgTimeout)
	default:
		return dErrors.Wrap(err, dErrors.CodeGenerationFailed, msgFailed)
	}
}

// statusError carries an HTTP status extracted from a typed SDK error so
// classification stays in one place.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string {
	return e.err.Error()
}

func (e *statusError) Unwrap() error {
	return e.err
}
