// Package relay shapes adapter output for callers: the JSON envelope, ndjson
// stream framing and the ranking post-filter.
package relay

import (
	"net/http"

	"github.com/akio-byte/navaltutka/internal/upstream"
)

// Code is a caller-visible outcome code.
type Code string

const (
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodePayloadTooLarge    Code = "PAYLOAD_TOO_LARGE"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeUpstreamMissingKey Code = "UPSTREAM_MISSING_KEY"
	CodeUpstreamAuth       Code = "UPSTREAM_AUTH_INVALID"
	CodeUpstreamTimeout    Code = "UPSTREAM_TIMEOUT"
	CodeUpstreamRateLimit  Code = "UPSTREAM_RATE_LIMIT"
	CodeUpstreamError      Code = "UPSTREAM_ERROR"
	CodeInternal           Code = "INTERNAL_ERROR"

	// CodeFetchError never leaves the server; clients use it when the relay
	// itself is unreachable.
	CodeFetchError Code = "FETCH_ERROR"
)

var statuses = map[Code]int{
	CodeRateLimitExceeded:  http.StatusTooManyRequests,
	CodePayloadTooLarge:    http.StatusRequestEntityTooLarge,
	CodeInvalidInput:       http.StatusBadRequest,
	CodeUpstreamMissingKey: http.StatusInternalServerError,
	CodeUpstreamAuth:       http.StatusInternalServerError,
	CodeUpstreamTimeout:    http.StatusInternalServerError,
	CodeUpstreamRateLimit:  http.StatusInternalServerError,
	CodeUpstreamError:      http.StatusInternalServerError,
	CodeInternal:           http.StatusInternalServerError,
}

var messages = map[Code]string{
	CodeRateLimitExceeded:  "Too many requests",
	CodePayloadTooLarge:    "Payload too large",
	CodeInvalidInput:       "Invalid input",
	CodeUpstreamMissingKey: "AI service is not configured",
	CodeUpstreamAuth:       "AI service rejected the configured credentials",
	CodeUpstreamTimeout:    "AI service did not respond in time",
	CodeUpstreamRateLimit:  "AI service is busy, try again shortly",
	CodeUpstreamError:      "AI service request failed",
	CodeInternal:           "Internal server error",
	CodeFetchError:         "Relay is unreachable",
}

// Status is the HTTP status paired with c.
func (c Code) Status() int {
	if s, ok := statuses[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Message is the fixed user-visible text for c.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return messages[CodeInternal]
}

// FromUpstream maps a normalized adapter failure to its caller-visible code.
func FromUpstream(code upstream.ErrorCode) Code {
	switch code {
	case upstream.CodeMissingKey:
		return CodeUpstreamMissingKey
	case upstream.CodeAuthInvalid:
		return CodeUpstreamAuth
	case upstream.CodeTimeout:
		return CodeUpstreamTimeout
	case upstream.CodeRateLimit:
		return CodeUpstreamRateLimit
	default:
		return CodeUpstreamError
	}
}
