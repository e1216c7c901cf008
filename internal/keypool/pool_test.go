package keypool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobin(t *testing.T) {
	rr := NewRoundRobin()
	keys := []string{"a", "b", "c"}

	got := []string{rr.Next(keys), rr.Next(keys), rr.Next(keys), rr.Next(keys)}
	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
	assert.Empty(t, rr.Next(nil))
}

func TestRandomStaysInSet(t *testing.T) {
	r := NewRandom()
	keys := []string{"a", "b"}
	for range 20 {
		assert.Contains(t, keys, r.Next(keys))
	}
	assert.Empty(t, r.Next(nil))
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("")
	require.NoError(t, err)
	assert.Equal(t, "round_robin", s.Name())

	s, err = NewStrategy("random")
	require.NoError(t, err)
	assert.Equal(t, "random", s.Name())

	_, err = NewStrategy("least_connections")
	assert.Error(t, err)
}

func TestPoolDeduplicatesKeys(t *testing.T) {
	p := New(Config{Keys: []string{"a", "", "a", "b"}})
	assert.Equal(t, 2, p.Len())
}

func TestPoolBenchSkipsKeyUntilCooldown(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := New(Config{
		Keys:     []string{"a", "b"},
		Cooldown: 30 * time.Second,
		Now:      func() time.Time { return now },
	})

	p.Bench("a")
	assert.Equal(t, 1, p.Available())
	for range 4 {
		assert.Equal(t, "b", p.Key())
	}

	now = now.Add(31 * time.Second)
	assert.Equal(t, 2, p.Available())
	seen := map[string]bool{}
	for range 4 {
		seen[p.Key()] = true
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
}

func TestPoolAllBenchedFallsBack(t *testing.T) {
	p := New(Config{Keys: []string{"a"}})
	p.Bench("a")
	assert.Equal(t, 0, p.Available())
	assert.Equal(t, "a", p.Key())
}

func TestPoolBenchUnknownKeyIgnored(t *testing.T) {
	p := New(Config{Keys: []string{"a"}})
	p.Bench("zzz")
	assert.Equal(t, 1, p.Available())
}

func TestEmptyPool(t *testing.T) {
	p := New(Config{})
	assert.Empty(t, p.Key())
	assert.Zero(t, p.Len())
}
