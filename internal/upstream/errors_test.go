package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akio-byte/navaltutka/internal/circuitbreaker"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"missing key", ErrMissingKey, CodeMissingKey},
		{"wrapped missing key", fmt.Errorf("resolve: %w", ErrMissingKey), CodeMissingKey},
		{"already classified", &Error{Code: CodeRateLimit}, CodeRateLimit},
		{"401", &StatusError{Status: 401}, CodeAuthInvalid},
		{"403", &StatusError{Status: 403}, CodeAuthInvalid},
		{"auth wins over quota text", &StatusError{Status: 403, Message: "quota project not set"}, CodeAuthInvalid},
		{"429", &StatusError{Status: 429}, CodeRateLimit},
		{"quota vocabulary", errors.New("Quota exceeded for metric"), CodeRateLimit},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED"), CodeRateLimit},
		{"rate wins over timeout text", &StatusError{Status: 504, Message: "rate limit hit before timeout"}, CodeRateLimit},
		{"408", &StatusError{Status: 408}, CodeTimeout},
		{"504", &StatusError{Status: 504}, CodeTimeout},
		{"deadline", context.DeadlineExceeded, CodeTimeout},
		{"wrapped deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), CodeTimeout},
		{"abort", context.Canceled, CodeTimeout},
		{"timeout vocabulary", errors.New("request timed out"), CodeTimeout},
		{"500", &StatusError{Status: 500, Message: "internal"}, CodeGeneric},
		{"plain", errors.New("boom"), CodeGeneric},
		{"open circuit", circuitbreaker.ErrCircuitOpen, CodeGeneric},
		{"nil", nil, CodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorKeepsCause(t *testing.T) {
	cause := &StatusError{Status: 500, Message: "stack trace here"}
	err := &Error{Code: CodeGeneric, Err: cause}

	var se *StatusError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, "MISSING_KEY", (&Error{Code: CodeMissingKey}).Error())
}
