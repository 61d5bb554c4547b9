package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/signals/pkg/live"
	"github.com/vango-dev/signals/pkg/reactive"
)

// demo is the graph served by the serve command.
type demo struct {
	count  *reactive.Source[int]
	step   *reactive.Source[int]
	total  *reactive.Derived[int]
	parity *reactive.Derived[string]

	todos     *reactive.Source[[]string]
	todoCount *reactive.Derived[int]

	uptime   *reactive.Source[int64]
	uptimeRO *reactive.ReadonlySignal[int64]

	readyCh chan bool
	ready   reactive.Signal[bool]

	stopLog reactive.Unsubscribe
}

// newDemo builds the demo graph. It must be called before loop runs or on
// the loop itself.
func newDemo(rt *reactive.Runtime, loop reactive.Dispatcher, logger *slog.Logger) *demo {
	d := &demo{
		count:   reactive.NewSource(rt, 0),
		step:    reactive.NewSource(rt, 1),
		todos:   reactive.NewSource(rt, []string{}),
		uptime:  reactive.NewSource(rt, int64(0)),
		readyCh: make(chan bool, 1),
	}

	d.total = reactive.NewDerived(rt, func() int {
		return d.count.Value() * d.step.Value()
	})
	d.parity = reactive.Derive[int, string](d.total, func(v int) string {
		if v%2 == 0 {
			return "even"
		}
		return "odd"
	})
	d.todoCount = reactive.Derive[[]string, int](d.todos, func(items []string) int {
		return len(items)
	})
	d.uptimeRO = reactive.NewReadonly[int64](rt, d.uptime.Subscribe)
	d.ready = reactive.NewAwaited(rt, loop, d.readyCh, false)

	d.stopLog = reactive.NewEffect(rt, func() {
		logger.Debug("total changed", "total", d.total.Value())
	})

	return d
}

// bind publishes the graph on h.
func (d *demo) bind(h *live.Hub) error {
	if err := h.Bind("title", "signals demo"); err != nil {
		return err
	}
	if err := live.Writable(h, "count", d.count); err != nil {
		return err
	}
	if err := live.Writable(h, "step", d.step); err != nil {
		return err
	}
	if err := live.Writable(h, "todos", d.todos); err != nil {
		return err
	}
	bindings := []struct {
		name string
		v    any
	}{
		{"total", d.total},
		{"parity", d.parity},
		{"todoCount", d.todoCount},
		{"uptime", d.uptimeRO},
		{"ready", d.ready},
	}
	for _, b := range bindings {
		if err := h.Bind(b.name, b.v); err != nil {
			return err
		}
	}
	return nil
}

// stop disposes the logging effect. Runs on the loop.
func (d *demo) stop() {
	d.stopLog()
}

// run marks the demo ready and ticks uptime until ctx is done.
func (d *demo) run(ctx context.Context, loop reactive.Dispatcher, interval time.Duration) {
	d.readyCh <- true
	close(d.readyCh)

	started := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			secs := int64(now.Sub(started) / time.Second)
			if err := loop.Dispatch(func() { d.uptime.Set(secs) }); err != nil {
				return
			}
		}
	}
}
