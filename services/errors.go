package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNoData is returned when a provider answers successfully but has nothing for the request
var ErrNoData = errors.New("no data")

// ErrServiceUnavailable is returned when a circuit breaker rejects a call
var ErrServiceUnavailable = errors.New("service unavailable")

// maxErrorBody bounds how much of a provider error body is kept as the message
const maxErrorBody = 512

// ProviderError describes a failed provider call. StatusCode is the provider's
// HTTP status, or 0 when no response was received or the body could not be decoded.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " returned status %d", e.StatusCode)
	} else {
		b.WriteString(" request failed")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message != e.Err.Error() {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status to surface to API callers for err
func HTTPStatus(err error) int {
	var perr *ProviderError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &perr) && perr.StatusCode >= 400 && perr.StatusCode <= 599:
		return perr.StatusCode
	default:
		return http.StatusInternalServerError
	}
}

// statusError builds a ProviderError from a non-2xx response, keeping a bounded
// prefix of the body as the message
func statusError(provider string, resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Message: msg}
}

// transportError wraps a failure to reach the provider
func transportError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Message: "unreachable", Err: err}
}

// decodeError wraps a malformed provider payload
func decodeError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Message: "failed to decode response", Err: err}
}

// categorizeAPIError categorizes an error for metrics purposes
func categorizeAPIError(err error) string {
	var perr *ProviderError
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrServiceUnavailable):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &perr) && perr.StatusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case errors.As(err, &perr) && (perr.StatusCode == http.StatusUnauthorized || perr.StatusCode == http.StatusForbidden):
		return "auth_error"
	case errors.As(err, &perr) && perr.StatusCode != 0:
		return fmt.Sprintf("status_%d", perr.StatusCode)
	case errors.As(err, &perr) && perr.Err != nil && perr.Message == "unreachable":
		return "connection_error"
	case errors.As(err, &perr):
		return "decode_error"
	default:
		return "unknown"
	}
}

// countsAsFailure reports whether err reflects provider health. Client-side
// outcomes (no data, 4xx other than 429, canceled requests) do not trip breakers.
func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled) {
		return false
	}
	var perr *ProviderError
	if errors.As(err, &perr) && perr.StatusCode >= 400 && perr.StatusCode < 500 && perr.StatusCode != http.StatusTooManyRequests {
		return false
	}
	return true
}
