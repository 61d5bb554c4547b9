package reactive

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Dispatcher runs functions on the goroutine that owns a signal graph.
type Dispatcher interface {
	Dispatch(fn func()) error
}

// Loop is a Dispatcher backed by a single goroutine. Everything the graph
// does should happen inside functions passed to the loop, which keeps the
// graph single-threaded while other goroutines feed it.
type Loop struct {
	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
	onPanic   func(recovered any)
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the logger used for dispatch panics.
func WithLoopLogger(l *slog.Logger) LoopOption {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithQueueSize sets how many dispatched functions may wait to run.
func WithQueueSize(n int) LoopOption {
	return func(lp *Loop) {
		if n > 0 {
			lp.queue = make(chan func(), n)
		}
	}
}

// WithPanicHandler is called with the recovered value of a dispatched
// function that panicked, after it has been logged.
func WithPanicHandler(fn func(recovered any)) LoopOption {
	return func(lp *Loop) {
		lp.onPanic = fn
	}
}

// NewLoop creates a loop. It does nothing until Run is called.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		queue:  make(chan func(), 256),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dispatch queues fn. It blocks while the queue is full and returns
// ErrLoopClosed if the loop closes first.
func (l *Loop) Dispatch(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Call runs fn on the loop and waits for it to finish. A panic in fn is
// handled by the loop, after which Call returns.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	err := l.Dispatch(func() {
		defer close(finished)
		fn()
	})
	if err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Run executes dispatched functions one at a time until ctx is cancelled or
// Close is called. It returns ctx.Err() on cancellation and nil on Close.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.queue:
			l.execute(fn)
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		}
	}
}

// Close stops the loop. Pending functions are discarded.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Done is closed when the loop is closed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// execute runs fn with panic recovery.
func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
			if l.onPanic != nil {
				l.onPanic(r)
			}
		}
	}()
	fn()
}
