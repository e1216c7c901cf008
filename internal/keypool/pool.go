// Package keypool spreads upstream calls across several API keys and benches
// keys the provider has throttled or rejected.
package keypool

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultCooldown = time.Minute

type Pool struct {
	mu       sync.Mutex
	keys     []string
	benched  map[string]time.Time // key -> benched until
	strategy Strategy
	cooldown time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

type Config struct {
	Keys     []string
	Strategy Strategy
	Cooldown time.Duration
	Now      func() time.Time
	Logger   *zap.Logger
}

func New(cfg Config) *Pool {
	if cfg.Strategy == nil {
		cfg.Strategy = NewRoundRobin()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	keys := make([]string, 0, len(cfg.Keys))
	seen := make(map[string]struct{}, len(cfg.Keys))
	for _, k := range cfg.Keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	return &Pool{
		keys:     keys,
		benched:  make(map[string]time.Time),
		strategy: cfg.Strategy,
		cooldown: cfg.Cooldown,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}
}

// Key returns the next usable key. When every key is benched the pool falls
// back to the full set rather than refusing the call.
func (p *Pool) Key() string {
	p.mu.Lock()
	now := p.now()
	eligible := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		until, ok := p.benched[k]
		if ok && now.Before(until) {
			continue
		}
		if ok {
			delete(p.benched, k)
		}
		eligible = append(eligible, k)
	}
	if len(eligible) == 0 {
		eligible = p.keys
	}
	p.mu.Unlock()

	return p.strategy.Next(eligible)
}

// Bench takes a key out of rotation for the cooldown period.
func (p *Pool) Bench(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, k := range p.keys {
		if k == key {
			p.benched[key] = p.now().Add(p.cooldown)
			p.logger.Warn("api key benched",
				zap.String("key", mask(key)),
				zap.Duration("cooldown", p.cooldown))
			return
		}
	}
}

// Len returns the number of distinct keys.
func (p *Pool) Len() int {
	return len(p.keys)
}

// Available counts keys that are not benched.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	n := 0
	for _, k := range p.keys {
		if until, ok := p.benched[k]; ok && now.Before(until) {
			continue
		}
		n++
	}
	return n
}

func mask(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
