package reactive

// SubscribeFunc is an externally implemented subscribe operation, for
// example one that listens to a platform event.
type SubscribeFunc[T any] func(f Follower[T], immediate bool) Unsubscribe

// ReadonlySignal exposes an external subscribe function as a signal. It has
// no Set; its value only changes when the external source says so.
type ReadonlySignal[T any] struct {
	rt        *Runtime
	id        uint64
	subscribe SubscribeFunc[T]
}

// NewReadonly wraps subscribe as a signal on rt.
func NewReadonly[T any](rt *Runtime, subscribe SubscribeFunc[T]) *ReadonlySignal[T] {
	return &ReadonlySignal[T]{
		rt:        rt,
		id:        nextID(),
		subscribe: subscribe,
	}
}

// Readonly wraps subscribe as a signal on the default runtime.
//
// Example:
//
//	online := Readonly(func(f Follower[bool], immediate bool) Unsubscribe {
//	    if immediate {
//	        f(conn.Online())
//	    }
//	    return conn.OnStatusChange(f)
//	})
func Readonly[T any](subscribe SubscribeFunc[T]) *ReadonlySignal[T] {
	return NewReadonly(Default(), subscribe)
}

// Value records the signal and returns the value the external source
// reports for an immediate subscription, which is released before returning.
func (r *ReadonlySignal[T]) Value() T {
	r.rt.record(r)
	var v T
	unsub := r.subscribe(func(x T) { v = x }, true)
	if unsub != nil {
		unsub()
	}
	return v
}

// Subscribe delegates to the external subscribe function.
func (r *ReadonlySignal[T]) Subscribe(f Follower[T], immediate bool) Unsubscribe {
	unsub := r.subscribe(f, immediate)
	if unsub == nil {
		return func() {}
	}
	return once(unsub)
}

// ID returns the unique identifier of the signal.
func (r *ReadonlySignal[T]) ID() uint64 { return r.id }

// Kind returns KindReadonly.
func (r *ReadonlySignal[T]) Kind() Kind { return KindReadonly }

// Follow implements Node.
func (r *ReadonlySignal[T]) Follow(fn func(any), immediate bool) Unsubscribe {
	return r.Subscribe(func(v T) { fn(v) }, immediate)
}

func (r *ReadonlySignal[T]) runtime() *Runtime { return r.rt }

func (r *ReadonlySignal[T]) watch(fn func()) Unsubscribe {
	return r.Subscribe(func(T) { fn() }, false)
}

var _ Signal[int] = (*ReadonlySignal[int])(nil)
