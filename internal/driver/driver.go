package driver

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultTickLength = time.Millisecond * 250
)

type Manager interface {
	Tick(context.Context) error
}

// Lifecycle is work that runs on the driver goroutine around the tick loop.
// Startup runs before the first tick and Shutdown after the last one.
type Lifecycle interface {
	Startup(context.Context) error
	Shutdown(context.Context) error
}

// Driver runs managers and deferred tasks on a single goroutine, once per
// tick. Everything that mutates stables is funnelled through it.
type Driver struct {
	tickLength time.Duration
	managers   []Manager
	lifecycles []Lifecycle
	now        func() time.Time

	mu    sync.Mutex
	tasks taskQueue
	seq   uint64
}

func NewDriver(managers []Manager, opts ...DriverOpt) *Driver {
	d := &Driver{
		tickLength: DefaultTickLength,
		managers:   managers,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start runs the startup hooks, ticks until ctx is done, then runs the
// shutdown hooks in reverse order. Shutdown always runs once startup began.
func (d *Driver) Start(ctx context.Context) error {
	stopCtx := context.WithoutCancel(ctx)

	var started []Lifecycle
	defer func() {
		for i := len(started) - 1; i >= 0; i-- {
			if err := started[i].Shutdown(stopCtx); err != nil {
				slog.ErrorContext(stopCtx, "driver shutdown hook failed", "error", err)
			}
		}
	}()

	for _, l := range d.lifecycles {
		started = append(started, l)
		if err := l.Startup(ctx); err != nil {
			return fmt.Errorf("starting driver: %w", err)
		}
	}

	return d.run(ctx)
}

func (d *Driver) run(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := d.Tick(ctx)
			if err != nil {
				return err
			}
		}
	}
}

// Tick runs every task that has come due, in due order, then the managers.
func (d *Driver) Tick(ctx context.Context) error {
	for _, fn := range d.due() {
		fn()
	}

	for _, m := range d.managers {
		if err := m.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) Now() time.Time {
	return d.now()
}

// ScheduleAfter queues fn to run on the first tick at least delay from now.
// A zero delay runs fn on the next tick.
func (d *Driver) ScheduleAfter(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	heap.Push(&d.tasks, &task{
		due: d.now().Add(delay),
		seq: d.seq,
		fn:  fn,
	})
}

// Pending returns the number of queued tasks.
func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tasks.Len()
}

func (d *Driver) due() []func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var fns []func()
	for d.tasks.Len() > 0 && !d.tasks[0].due.After(now) {
		fns = append(fns, heap.Pop(&d.tasks).(*task).fn)
	}
	return fns
}
