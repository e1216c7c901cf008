package healthcheck

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Probe checks one dependency. A nil error means healthy.
type Probe func(ctx context.Context) error

// Dependency is a named probe. A failing critical dependency makes the relay
// unhealthy, any other failure only degrades it.
type Dependency struct {
	Name     string
	Probe    Probe
	Critical bool
}

// Periodically probes the relay's dependencies
type Checker struct {
	mu          sync.RWMutex
	deps        []Dependency
	status      map[string]*Status
	interval    time.Duration
	timeout     time.Duration
	maxFailures int
	logger      *zap.Logger
}

// Holds health checker configuration
type Config struct {
	Dependencies []Dependency
	Interval     time.Duration // How often to probe (default: 30s)
	Timeout      time.Duration // Per-probe timeout (default: 3s)
	MaxFailures  int           // Failures before marking unhealthy (default: 2)
	Logger       *zap.Logger
}

func NewChecker(cfg Config) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	checker := &Checker{
		deps:        cfg.Dependencies,
		status:      make(map[string]*Status, len(cfg.Dependencies)),
		interval:    cfg.Interval,
		timeout:     cfg.Timeout,
		maxFailures: cfg.MaxFailures,
		logger:      cfg.Logger,
	}

	// Assume healthy until the first probe says otherwise
	now := time.Now()
	for _, d := range cfg.Dependencies {
		checker.status[d.Name] = &Status{
			Name:      d.Name,
			IsHealthy: true,
			Critical:  d.Critical,
			LastCheck: now,
		}
	}

	return checker
}

// Run probes immediately and then on every interval until ctx is done.
func (c *Checker) Run(ctx context.Context) error {
	c.logger.Info("starting dependency checks",
		zap.Int("dependencies", len(c.deps)),
		zap.Duration("interval", c.interval))

	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CheckAll(ctx)
		case <-ctx.Done():
			c.logger.Info("dependency checker stopped")
			return nil
		}
	}
}

// CheckAll probes every dependency concurrently.
func (c *Checker) CheckAll(ctx context.Context) {
	var g errgroup.Group
	for _, d := range c.deps {
		g.Go(func() error {
			c.check(ctx, d)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Checker) check(ctx context.Context, d Dependency) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := d.Probe(ctx); err != nil {
		c.recordFailure(d.Name, err)
		return
	}
	c.recordSuccess(d.Name)
}

func (c *Checker) recordSuccess(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.status[name]
	now := time.Now()
	status.LastCheck = now
	status.LastSuccess = now
	status.LastError = ""
	status.FailureCount = 0

	if !status.IsHealthy {
		c.logger.Info("dependency recovered", zap.String("dependency", name))
		status.IsHealthy = true
	}
}

func (c *Checker) recordFailure(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.status[name]
	now := time.Now()
	status.LastCheck = now
	status.LastFailure = now
	status.LastError = err.Error()
	status.FailureCount++

	if status.IsHealthy && status.FailureCount >= c.maxFailures {
		c.logger.Warn("dependency unhealthy",
			zap.String("dependency", name),
			zap.Int("failures", status.FailureCount),
			zap.Error(err))
		status.IsHealthy = false
	}
}

// Return the status of a single dependency
func (c *Checker) GetStatus(name string) *Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if status, ok := c.status[name]; ok {
		statusCopy := *status
		return &statusCopy
	}
	return nil
}

// Returns the status of every dependency
func (c *Checker) GetAllStatus() map[string]*Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	statusMap := make(map[string]*Status, len(c.status))
	for name, status := range c.status {
		statusCopy := *status
		statusMap[name] = &statusCopy
	}
	return statusMap
}

// Returns the overall health status
func (c *Checker) OverallHealth() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	overall := Healthy
	for _, status := range c.status {
		if status.IsHealthy {
			continue
		}
		if status.Critical {
			return Unhealthy
		}
		overall = Degraded
	}
	return overall
}
