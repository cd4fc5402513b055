package engine

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error taxonomy. InputError is fatal to the input path that produced it;
// UpstreamError is recoverable per unit of work and fatal only when it
// prevents building the initial identifier list. Failures are terminal for
// their unit either way: nothing here drives a retry.

// InputError marks bad user-supplied input (identifiers, paths, API keys).
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *InputError) Unwrap() error { return e.Err }

// Inputf builds an InputError from a format string.
func Inputf(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// IsInput reports whether err is (or wraps) an InputError.
func IsInput(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// UpstreamError marks a host platform or transcript service failure.
type UpstreamError struct {
	Op     string // upstream operation, e.g. "search.list", "watch page"
	Status int    // HTTP status when known, 0 otherwise
	Err    error
}

func (e *UpstreamError) Error() string {
	s := "upstream " + e.Op
	if e.Status != 0 {
		s += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// IsTransient classifies an error as a passing upstream condition.
// Informational only (log labels, metrics): no caller retries on it.
func IsTransient(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) && ue.Status != 0 {
		return IsTransientStatus(ue.Status)
	}

	// Connection errors (dial failures, connection refused, etc.)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// Timeout errors (net.Error includes OpError, so check after OpError)
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// IsTransientStatus reports whether an HTTP status signals a passing condition.
func IsTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
