package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answer struct {
	ok   bool
	text string
}

func (a answer) Succeeded() bool { return a.ok }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func counting(calls *atomic.Int32, a answer) func(context.Context) (answer, error) {
	return func(context.Context) (answer, error) {
		calls.Add(1)
		return a, nil
	}
}

func TestHitWithinTTLSkipsProducer(t *testing.T) {
	clk := &clock{now: time.Unix(0, 0)}
	c := NewWithClock[answer](DefaultTTL, clk.Now)
	var calls atomic.Int32

	first, err := c.GetOrCompute(context.Background(), "v1|rank|carriers", counting(&calls, answer{ok: true, text: "one"}))
	require.NoError(t, err)
	clk.Advance(4 * time.Minute)
	second, err := c.GetOrCompute(context.Background(), "v1|rank|carriers", counting(&calls, answer{ok: true, text: "two"}))
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)
}

func TestExpiryRecomputes(t *testing.T) {
	clk := &clock{now: time.Unix(0, 0)}
	c := NewWithClock[answer](DefaultTTL, clk.Now)
	var calls atomic.Int32

	_, _ = c.GetOrCompute(context.Background(), "k", counting(&calls, answer{ok: true, text: "old"}))
	clk.Advance(DefaultTTL)
	got, err := c.GetOrCompute(context.Background(), "k", counting(&calls, answer{ok: true, text: "new"}))
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "new", got.text)
}

func TestFailuresAreNotStored(t *testing.T) {
	c := New[answer](time.Minute)
	var calls atomic.Int32

	got, err := c.GetOrCompute(context.Background(), "k", counting(&calls, answer{ok: false}))
	require.NoError(t, err)
	assert.False(t, got.ok)
	assert.Zero(t, c.Len())

	got, err = c.GetOrCompute(context.Background(), "k", counting(&calls, answer{ok: true, text: "recovered"}))
	require.NoError(t, err)
	assert.Equal(t, "recovered", got.text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestProducerErrorIsNotStored(t *testing.T) {
	c := New[answer](time.Minute)
	boom := errors.New("transport")

	_, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (answer, error) {
		return answer{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())
}

func TestConcurrentMissesShareOneCall(t *testing.T) {
	c := New[answer](time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	producer := func(context.Context) (answer, error) {
		calls.Add(1)
		<-release
		return answer{ok: true, text: "shared"}, nil
	}

	var wg sync.WaitGroup
	results := make([]answer, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.GetOrCompute(context.Background(), "k", producer)
		}(i)
	}

	// let the goroutines pile up behind the first producer call
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "shared", r.text)
	}
}

func TestPurge(t *testing.T) {
	c := New[answer](time.Minute)
	var calls atomic.Int32
	_, _ = c.GetOrCompute(context.Background(), "k", counting(&calls, answer{ok: true}))
	c.Purge()
	_, ok := c.Get("k")
	assert.False(t, ok)
}
