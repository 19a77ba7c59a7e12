package driver

import "time"

type DriverOpt func(*Driver)

func WithTickLength(tickLength time.Duration) DriverOpt {
	return func(d *Driver) {
		d.tickLength = tickLength
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) DriverOpt {
	return func(d *Driver) {
		d.now = now
	}
}

// WithLifecycle adds startup and shutdown work that must share the tick
// goroutine.
func WithLifecycle(l Lifecycle) DriverOpt {
	return func(d *Driver) {
		d.lifecycles = append(d.lifecycles, l)
	}
}
