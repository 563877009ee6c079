package registry

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Janitor periodically expires sessions older than a configured TTL.
// Sessions are purely in-memory, so without this an abandoned game
// lives until process exit. The clock is injected so tests can drive
// sweeps deterministically.
type Janitor struct {
	registry *Registry
	clock    quartz.Clock
	ttl      time.Duration
	interval time.Duration
	logger   *log.Logger
}

// NewJanitor creates a janitor sweeping registry every interval and
// expiring sessions older than ttl.
func NewJanitor(registry *Registry, clock quartz.Clock, ttl, interval time.Duration, logger *log.Logger) *Janitor {
	return &Janitor{
		registry: registry,
		clock:    clock,
		ttl:      ttl,
		interval: interval,
		logger:   logger.WithPrefix("janitor"),
	}
}

// Run sweeps until ctx is cancelled. It blocks; callers run it in a
// goroutine or an errgroup.
func (j *Janitor) Run(ctx context.Context) error {
	if j.ttl <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	waiter := j.clock.TickerFunc(ctx, j.interval, func() error {
		cutoff := j.clock.Now().Add(-j.ttl)
		if expired := j.registry.expire(cutoff); expired > 0 {
			j.logger.Info("Expired idle sessions", "count", expired, "ttl", j.ttl)
		}
		return nil
	}, "session-janitor")

	return waiter.Wait()
}
