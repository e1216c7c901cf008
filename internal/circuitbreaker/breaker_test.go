package circuitbreaker

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errUpstream = errors.New("upstream 500")
	errBadKey   = errors.New("bad key")
)

func newTestBreaker(now *time.Time) *CircuitBreaker {
	return New(Config{
		MaxFailures:     3,
		Cooldown:        10 * time.Second,
		HalfOpenSuccess: 1,
		IsFailure:       func(err error) bool { return !errors.Is(err, errBadKey) },
		Now:             func() time.Time { return *now },
	})
}

func TestOpensAfterMaxFailures(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := newTestBreaker(&now)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return errUpstream }), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open circuit must not invoke the call")
}

func TestIgnoredErrorsDoNotOpen(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := newTestBreaker(&now)

	for i := 0; i < 10; i++ {
		_ = cb.Call(func() error { return errBadKey })
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Metrics().FailureCount)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := newTestBreaker(&now)

	_ = cb.Call(func() error { return errUpstream })
	_ = cb.Call(func() error { return errUpstream })
	require.NoError(t, cb.Call(func() error { return nil }))
	_ = cb.Call(func() error { return errUpstream })

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Metrics().FailureCount)
}

func TestHalfOpenRecovery(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := newTestBreaker(&now)

	for i := 0; i < 3; i++ {
		cb.Record(errUpstream)
	}
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(11 * time.Second)
	require.NoError(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.Record(nil)
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := newTestBreaker(&now)

	for i := 0; i < 3; i++ {
		cb.Record(errUpstream)
	}
	now = now.Add(11 * time.Second)
	require.NoError(t, cb.Allow())

	cb.Record(errUpstream)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

func TestReset(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := newTestBreaker(&now)
	for i := 0; i < 3; i++ {
		cb.Record(errUpstream)
	}
	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Allow())
	assert.Equal(t, "closed", cb.State().String())
}

func TestStateChangeHook(t *testing.T) {
	now := time.Unix(1000, 0)
	var seen []string
	cb := New(Config{
		MaxFailures: 1,
		Cooldown:    time.Second,
		Now:         func() time.Time { return now },
		OnStateChange: func(from, to State) {
			seen = append(seen, from.String()+">"+to.String())
		},
	})

	cb.Record(errUpstream)
	now = now.Add(2 * time.Second)
	require.NoError(t, cb.Allow())
	cb.Record(nil)

	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, seen)
}

func TestMetricsJSON(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := newTestBreaker(&now)
	cb.Record(errUpstream)

	b, err := json.Marshal(cb.Metrics())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"state":"closed"`)
	assert.Contains(t, string(b), `"failure_count":1`)
}
