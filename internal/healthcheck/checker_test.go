package healthcheck

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func TestHealthyUntilMaxFailures(t *testing.T) {
	c := NewChecker(Config{
		Dependencies: []Dependency{{Name: "redis", Probe: failing}},
		MaxFailures:  2,
	})

	c.CheckAll(context.Background())
	st := c.GetStatus("redis")
	require.NotNil(t, st)
	assert.True(t, st.IsHealthy)
	assert.Equal(t, 1, st.FailureCount)
	assert.Equal(t, "connection refused", st.LastError)

	c.CheckAll(context.Background())
	assert.False(t, c.GetStatus("redis").IsHealthy)
	assert.Equal(t, Degraded, c.OverallHealth())
}

func TestCriticalFailureIsUnhealthy(t *testing.T) {
	c := NewChecker(Config{
		Dependencies: []Dependency{
			{Name: "snapshot", Probe: failing, Critical: true},
			{Name: "database", Probe: ok},
		},
		MaxFailures: 1,
	})

	c.CheckAll(context.Background())
	assert.Equal(t, Unhealthy, c.OverallHealth())
	assert.Equal(t, "unhealthy", c.OverallHealth().String())
	assert.True(t, c.GetAllStatus()["database"].IsHealthy)
}

func TestRecovery(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	probe := func(context.Context) error {
		if fail.Load() {
			return errors.New("down")
		}
		return nil
	}
	c := NewChecker(Config{
		Dependencies: []Dependency{{Name: "upstream_key", Probe: probe}},
		MaxFailures:  1,
	})

	c.CheckAll(context.Background())
	assert.Equal(t, Degraded, c.OverallHealth())

	fail.Store(false)
	c.CheckAll(context.Background())
	st := c.GetStatus("upstream_key")
	assert.True(t, st.IsHealthy)
	assert.Zero(t, st.FailureCount)
	assert.Empty(t, st.LastError)
	assert.Equal(t, Healthy, c.OverallHealth())
}

func TestProbeTimeout(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	c := NewChecker(Config{
		Dependencies: []Dependency{{Name: "database", Probe: slow}},
		Timeout:      10 * time.Millisecond,
		MaxFailures:  1,
	})

	c.CheckAll(context.Background())
	assert.False(t, c.GetStatus("database").IsHealthy)
}

func TestRunStopsWithContext(t *testing.T) {
	var calls atomic.Int32
	c := NewChecker(Config{
		Dependencies: []Dependency{{Name: "snapshot", Probe: func(context.Context) error {
			calls.Add(1)
			return nil
		}}},
		Interval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestUnknownDependency(t *testing.T) {
	c := NewChecker(Config{})
	assert.Nil(t, c.GetStatus("nope"))
	assert.Equal(t, Healthy, c.OverallHealth())
}
