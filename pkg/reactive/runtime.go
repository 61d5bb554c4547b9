package reactive

import (
	"log/slog"
	"time"
)

// DefaultMaxDepth is how many times a single signal may be re-entered by its
// own notification or evaluation before the runtime reports a cycle.
const DefaultMaxDepth = 100

// frame is the set of signals read during one evaluation, in first-read order.
type frame struct {
	seen    map[Node]struct{}
	order   []Node
	discard bool
}

func newFrame() *frame {
	return &frame{seen: make(map[Node]struct{})}
}

func (f *frame) add(n Node) {
	if f.discard {
		return
	}
	if _, ok := f.seen[n]; ok {
		return
	}
	f.seen[n] = struct{}{}
	f.order = append(f.order, n)
}

func (f *frame) has(n Node) bool {
	_, ok := f.seen[n]
	return ok
}

func (f *frame) remove(n Node) {
	if _, ok := f.seen[n]; !ok {
		return
	}
	delete(f.seen, n)
	for i, m := range f.order {
		if m == n {
			f.order = append(f.order[:i], f.order[i+1:]...)
			return
		}
	}
}

// Runtime owns the tracking stack of one signal graph.
//
// A Runtime is not safe for concurrent use. All signals created on it must be
// read and written from a single goroutine.
type Runtime struct {
	frames   []*frame
	logger   *slog.Logger
	observer Observer
	maxDepth int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for transition and cycle diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// WithObserver installs an Observer that receives graph events.
func WithObserver(o Observer) Option {
	return func(rt *Runtime) {
		if o != nil {
			rt.observer = o
		}
	}
}

// WithMaxDepth sets the re-entry limit used for cycle detection.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.maxDepth = n
		}
	}
}

// NewRuntime creates an empty runtime.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		logger:   slog.Default(),
		observer: nopObserver{},
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

var defaultRuntime = NewRuntime()

// Default returns the runtime used by Ref, Computed, Effect, Awaited and
// Readonly.
func Default() *Runtime {
	return defaultRuntime
}

// SetDefault replaces the default runtime. Signals created earlier stay
// bound to the runtime they were created on. Call it during startup, before
// any signal exists.
func SetDefault(rt *Runtime) {
	if rt != nil {
		defaultRuntime = rt
	}
}

// Depth returns the number of evaluations currently recording dependencies.
func (rt *Runtime) Depth() int {
	return len(rt.frames)
}

// Untrack runs fn without recording any signal it reads into the
// surrounding evaluation.
func (rt *Runtime) Untrack(fn func()) {
	f := newFrame()
	f.discard = true
	rt.push(f)
	defer rt.pop()
	fn()
}

// track runs fn inside a fresh frame and returns what it read. The frame is
// popped even when fn panics.
func (rt *Runtime) track(fn func()) *frame {
	f := newFrame()
	rt.push(f)
	defer rt.pop()
	fn()
	return f
}

func (rt *Runtime) push(f *frame) {
	rt.frames = append(rt.frames, f)
}

func (rt *Runtime) pop() {
	n := len(rt.frames)
	rt.frames[n-1] = nil
	rt.frames = rt.frames[:n-1]
}

// record adds n to the innermost frame, if any.
func (rt *Runtime) record(n Node) {
	if len(rt.frames) == 0 {
		return
	}
	rt.frames[len(rt.frames)-1].add(n)
}

// cycle reports and raises a CycleError for n.
func (rt *Runtime) cycle(n Node, depth int) {
	err := &CycleError{ID: n.ID(), Kind: n.Kind(), Depth: depth}
	rt.logger.Error("reactive cycle detected",
		"signal_id", err.ID,
		"kind", err.Kind.String(),
		"depth", depth)
	rt.observer.OnCycle(n)
	panic(err)
}

func (rt *Runtime) transition(n Node, hot bool) {
	rt.logger.Debug("signal transition",
		"signal_id", n.ID(),
		"kind", n.Kind().String(),
		"hot", hot)
	rt.observer.OnTransition(n, hot)
}

// now returns a start timestamp, skipping the clock when nobody listens.
func (rt *Runtime) now() time.Time {
	if _, ok := rt.observer.(nopObserver); ok {
		return time.Time{}
	}
	return time.Now()
}
