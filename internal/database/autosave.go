package database

import (
	"context"
	"time"
)

// Autosaver flushes dirty stables every interval. It is ticked by the driver
// so saves happen on the same goroutine that mutates stables.
type Autosaver struct {
	registry *Registry
	interval time.Duration
	now      func() time.Time

	last time.Time
}

func NewAutosaver(r *Registry, interval time.Duration, now func() time.Time) *Autosaver {
	return &Autosaver{
		registry: r,
		interval: interval,
		now:      now,
	}
}

func (a *Autosaver) Tick(ctx context.Context) error {
	if a.interval <= 0 {
		return nil
	}

	now := a.now()
	if a.last.IsZero() {
		a.last = now
		return nil
	}
	if now.Sub(a.last) < a.interval {
		return nil
	}

	a.last = now
	a.registry.Flush(ctx)
	return nil
}
