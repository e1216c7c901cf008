package keypool

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

type Strategy interface {
	// Selects the next key from the eligible keys
	Next(keys []string) string

	// Returns the strategy name
	Name() string
}

// Creates a key selection strategy based on name
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "round-robin", "round_robin", "":
		return NewRoundRobin(), nil
	case "random":
		return NewRandom(), nil
	default:
		return nil, fmt.Errorf("unknown key strategy: %s", name)
	}
}

type RoundRobin struct {
	mu      sync.Mutex
	current int
}

func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (r *RoundRobin) Next(keys []string) string {
	if len(keys) == 0 {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := keys[r.current%len(keys)]
	r.current++
	return key
}

func (r *RoundRobin) Name() string {
	return "round_robin"
}

type Random struct{}

func NewRandom() *Random {
	return &Random{}
}

func (Random) Next(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[rand.IntN(len(keys))]
}

func (Random) Name() string {
	return "random"
}
