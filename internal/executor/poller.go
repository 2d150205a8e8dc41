package executor

import (
	"context"
	"time"
)

// DefaultPollInterval is the interval used when none is configured.
const DefaultPollInterval = time.Second

// Poller periodically delivers published results to the consumer.
type Poller struct {
	exec     *Executor
	interval time.Duration
}

// NewPoller creates a poller over e. A non-positive interval selects
// DefaultPollInterval.
func NewPoller(e *Executor, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{exec: e, interval: interval}
}

// Run checks the readiness flag every interval and applies all queued
// results in order. It returns ctx.Err() once ctx is cancelled; tasks still
// running are not affected.
func (p *Poller) Run(ctx context.Context, apply func(Result)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.exec.Drain(apply)
		}
	}
}
