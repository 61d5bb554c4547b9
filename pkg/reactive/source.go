package reactive

// Source is a mutable leaf signal. Its value only changes through Set,
// Update or Notify.
type Source[T any] struct {
	rt    *Runtime
	id    uint64
	value T
	subs  followers[T]
	guard reentry
}

// NewSource creates a source signal on rt.
func NewSource[T any](rt *Runtime, initial T) *Source[T] {
	return &Source[T]{
		rt:    rt,
		id:    nextID(),
		value: initial,
	}
}

// Ref creates a source signal on the default runtime.
func Ref[T any](initial T) *Source[T] {
	return NewSource(Default(), initial)
}

// Value returns the current value and records the signal into the active
// evaluation.
func (s *Source[T]) Value() T {
	s.rt.record(s)
	return s.value
}

// Peek returns the current value without recording a dependency.
func (s *Source[T]) Peek() T {
	return s.value
}

// Set stores value and notifies followers, unless value is identical to the
// current one.
func (s *Source[T]) Set(value T) {
	if identical(s.value, value) {
		return
	}
	s.value = value
	s.Notify()
}

// Update sets the value to fn applied to the current value.
func (s *Source[T]) Update(fn func(T) T) {
	s.Set(fn(s.value))
}

// Notify calls every follower with the current value, whether or not it
// changed. Use it after mutating a referenced value in place.
func (s *Source[T]) Notify() {
	s.guard.enter(s.rt, s)
	defer s.guard.leave()
	n := s.subs.notify(s.value)
	s.rt.observer.OnNotify(s, n)
}

// Subscribe registers f to be called on every change.
func (s *Source[T]) Subscribe(f Follower[T], immediate bool) Unsubscribe {
	if immediate {
		f(s.value)
	}
	return s.subs.add(f)
}

// Followers returns the number of registered followers.
func (s *Source[T]) Followers() int {
	return s.subs.len()
}

// ID returns the unique identifier of the signal.
func (s *Source[T]) ID() uint64 { return s.id }

// Kind returns KindSource.
func (s *Source[T]) Kind() Kind { return KindSource }

// Follow implements Node.
func (s *Source[T]) Follow(fn func(any), immediate bool) Unsubscribe {
	return s.Subscribe(func(v T) { fn(v) }, immediate)
}

func (s *Source[T]) runtime() *Runtime { return s.rt }

func (s *Source[T]) watch(fn func()) Unsubscribe {
	return s.Subscribe(func(T) { fn() }, false)
}

var _ Signal[int] = (*Source[int])(nil)
