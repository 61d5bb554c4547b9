package reactive

// Derived is a signal computed from other signals.
//
// With no followers a Derived is cold: Value reruns the callback on every
// call and the callback's reads are recorded by the caller, as if the
// callback had been inlined. With followers it is hot: the value is cached
// and the signal subscribes to exactly the dependencies read by its last
// evaluation, recomputing whenever one of them changes.
type Derived[T any] struct {
	rt    *Runtime
	id    uint64
	fn    func() T
	value T
	dirty bool
	hot   bool

	// deps maps each current dependency to the handle that unsubscribes
	// from it. Empty whenever the signal is cold.
	deps map[Node]Unsubscribe

	subs  followers[T]
	guard reentry
}

// NewDerived creates a derived signal on rt. fn is not called until the
// signal is read or followed.
func NewDerived[T any](rt *Runtime, fn func() T) *Derived[T] {
	return &Derived[T]{
		rt:    rt,
		id:    nextID(),
		fn:    fn,
		dirty: true,
		deps:  make(map[Node]Unsubscribe),
	}
}

// Computed creates a derived signal on the default runtime.
func Computed[T any](fn func() T) *Derived[T] {
	return NewDerived(Default(), fn)
}

// Value returns the current value. See the type documentation for how cold
// and hot signals differ.
func (d *Derived[T]) Value() T {
	if d.dirty {
		if d.subs.len() == 0 {
			return d.evaluate()
		}
		d.recompute()
	}
	d.rt.record(d)
	return d.value
}

// Peek is Value without recording anything into the active evaluation.
func (d *Derived[T]) Peek() T {
	var v T
	d.rt.Untrack(func() { v = d.Value() })
	return v
}

// Subscribe registers f, turning the signal hot. The returned handle turns
// the signal cold again once its last follower is gone.
func (d *Derived[T]) Subscribe(f Follower[T], immediate bool) Unsubscribe {
	if d.dirty {
		d.recompute()
	}
	if immediate {
		d.deliver(f)
	}
	unsub := d.subs.add(f)
	if !d.hot {
		d.hot = true
		d.rt.transition(d, true)
	}
	return once(func() {
		unsub()
		if d.subs.len() == 0 {
			d.cool()
		}
	})
}

// Followers returns the number of registered followers.
func (d *Derived[T]) Followers() int {
	return d.subs.len()
}

// Dependencies returns the number of signals the derived signal is currently
// subscribed to.
func (d *Derived[T]) Dependencies() int {
	return len(d.deps)
}

// Dirty reports whether the cached value is stale.
func (d *Derived[T]) Dirty() bool {
	return d.dirty
}

// ID returns the unique identifier of the signal.
func (d *Derived[T]) ID() uint64 { return d.id }

// Kind returns KindDerived.
func (d *Derived[T]) Kind() Kind { return KindDerived }

// Follow implements Node.
func (d *Derived[T]) Follow(fn func(any), immediate bool) Unsubscribe {
	return d.Subscribe(func(v T) { fn(v) }, immediate)
}

func (d *Derived[T]) runtime() *Runtime { return d.rt }

func (d *Derived[T]) watch(fn func()) Unsubscribe {
	return d.Subscribe(func(T) { fn() }, false)
}

// evaluate runs the callback in the caller's frame. Used while cold.
func (d *Derived[T]) evaluate() T {
	d.guard.enter(d.rt, d)
	defer d.guard.leave()
	return d.fn()
}

// recompute runs the callback in its own frame, caches and publishes the
// result, then rewires the subscriptions to match what was read.
func (d *Derived[T]) recompute() {
	d.guard.enter(d.rt, d)
	defer d.guard.leave()

	started := d.rt.now()
	var next T
	read := d.rt.track(func() { next = d.fn() })
	read.remove(d)

	d.dirty = false
	changed := !identical(d.value, next)
	d.value = next
	d.rt.observer.OnRecompute(d, started, changed)

	if changed {
		hadFollowers := d.subs.len() > 0
		n := d.subs.notify(next)
		d.rt.observer.OnNotify(d, n)
		if hadFollowers && d.subs.len() == 0 {
			// The cascade dropped the last follower; do not subscribe to
			// anything new on behalf of nobody.
			d.cool()
			return
		}
	}

	for dep, unsub := range d.deps {
		if !read.has(dep) {
			unsub()
			delete(d.deps, dep)
		}
	}
	for _, dep := range read.order {
		if _, ok := d.deps[dep]; ok {
			continue
		}
		d.deps[dep] = dep.watch(d.dependencyChanged)
	}
}

// deliver calls f with the cached value ahead of its registration. If f
// panics while nothing else follows the signal, the dependencies subscribed
// for it are released before the panic continues.
func (d *Derived[T]) deliver(f Follower[T]) {
	delivered := false
	defer func() {
		if !delivered && d.subs.len() == 0 {
			d.cool()
		}
	}()
	f(d.value)
	delivered = true
}

// dependencyChanged is the listener registered on every dependency.
func (d *Derived[T]) dependencyChanged() {
	if d.subs.len() > 0 {
		d.recompute()
		return
	}
	d.cool()
}

// cool releases every dependency and marks the value stale.
func (d *Derived[T]) cool() {
	deps := d.deps
	d.deps = make(map[Node]Unsubscribe)
	for _, unsub := range deps {
		unsub()
	}
	d.dirty = true
	if d.hot {
		d.hot = false
		d.rt.transition(d, false)
	}
}

var _ Signal[int] = (*Derived[int])(nil)
