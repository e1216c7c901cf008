package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"

	"github.com/akio-byte/navaltutka/internal/circuitbreaker"
)

// ErrorCode is the closed set of normalized upstream failures.
type ErrorCode string

const (
	CodeMissingKey  ErrorCode = "MISSING_KEY"
	CodeAuthInvalid ErrorCode = "AUTH_INVALID"
	CodeTimeout     ErrorCode = "TIMEOUT"
	CodeRateLimit   ErrorCode = "RATE_LIMIT"
	CodeGeneric     ErrorCode = "GENERIC_UPSTREAM_ERROR"
)

var ErrMissingKey = errors.New("upstream api key is not configured")

// Error is the only error type that leaves this package. Err keeps the raw
// provider error for server-side logs.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusError carries the HTTP status a provider reported.
type StatusError struct {
	Status  int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

var (
	rateLimitVocab = regexp.MustCompile(`(?i)rate.?limit|quota|resource.?exhausted|too many requests`)
	timeoutVocab   = regexp.MustCompile(`(?i)time.?out|timed out|deadline|aborted`)
)

// Classify maps any error onto exactly one ErrorCode, checking missing key,
// auth status, rate limiting, then timeouts before falling back to generic.
func Classify(err error) ErrorCode {
	if err == nil {
		return CodeGeneric
	}

	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	if errors.Is(err, ErrMissingKey) {
		return CodeMissingKey
	}

	status := 0
	var se *StatusError
	if errors.As(err, &se) {
		status = se.Status
	}
	msg := err.Error()

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CodeAuthInvalid
	case status == http.StatusTooManyRequests || rateLimitVocab.MatchString(msg):
		return CodeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout,
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		isNetTimeout(err),
		timeoutVocab.MatchString(msg):
		return CodeTimeout
	}

	return CodeGeneric
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// countsAgainstCircuit keeps caller-side problems (bad key, quota) from
// opening the breaker.
func countsAgainstCircuit(err error) bool {
	switch Classify(err) {
	case CodeTimeout, CodeGeneric:
		return true
	}
	return false
}

func breakerError(err error) *Error {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return &Error{Code: CodeGeneric, Err: err}
	}
	return &Error{Code: Classify(err), Err: err}
}
