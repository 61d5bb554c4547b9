package reactive

import (
	"reflect"
	"slices"
)

// Kind discriminates the three signal variants.
type Kind uint8

const (
	KindSource Kind = iota + 1
	KindDerived
	KindReadonly
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindDerived:
		return "derived"
	case KindReadonly:
		return "readonly"
	default:
		return "unknown"
	}
}

// Follower is called with the new value whenever a signal changes.
type Follower[T any] func(value T)

// Unsubscribe removes a follower. Calling it more than once is a no-op.
type Unsubscribe func()

// Node is the type-erased capability shared by every signal.
//
// The interface is sealed: only this package can produce a Node, which is what
// lets IsSignal tell a signal apart from a plain value without reflection.
type Node interface {
	// ID returns the unique identifier of the signal.
	ID() uint64

	// Kind returns the variant of the signal.
	Kind() Kind

	// Follow is Subscribe without the type parameter, for binding layers
	// that handle signals of arbitrary value types.
	Follow(fn func(value any), immediate bool) Unsubscribe

	runtime() *Runtime
	watch(fn func()) Unsubscribe
}

// Signal is the read/subscribe contract implemented by Source, Derived and
// ReadonlySignal.
type Signal[T any] interface {
	Node

	// Value returns the current value and records the signal into the
	// evaluation currently in progress, if any.
	Value() T

	// Subscribe registers f. When immediate is true f is called with the
	// current value before Subscribe returns.
	Subscribe(f Follower[T], immediate bool) Unsubscribe
}

// IsSignal reports whether v is a signal of any value type.
func IsSignal(v any) bool {
	_, ok := v.(Node)
	return ok
}

// KindOf returns the variant of v, or false when v is not a signal.
func KindOf(v any) (Kind, bool) {
	n, ok := v.(Node)
	if !ok {
		return 0, false
	}
	return n.Kind(), true
}

// once wraps fn so that only its first call has an effect.
func once(fn func()) Unsubscribe {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		fn()
	}
}

// followerEntry is one registration in a followers list. Registering the same
// function twice yields two entries.
type followerEntry[T any] struct {
	fn Follower[T]
}

// followers is an insertion-ordered follower set.
type followers[T any] struct {
	entries []*followerEntry[T]
}

func (fs *followers[T]) len() int {
	return len(fs.entries)
}

// add appends f and returns its removal handle.
func (fs *followers[T]) add(f Follower[T]) Unsubscribe {
	e := &followerEntry[T]{fn: f}
	fs.entries = append(fs.entries, e)
	return once(func() {
		if i := slices.Index(fs.entries, e); i >= 0 {
			fs.entries = slices.Delete(fs.entries, i, i+1)
		}
	})
}

// notify calls every follower registered at the time of the call, in order.
// Followers added or removed by the cascade do not change who is called.
func (fs *followers[T]) notify(v T) int {
	if len(fs.entries) == 0 {
		return 0
	}
	snapshot := slices.Clone(fs.entries)
	for _, e := range snapshot {
		e.fn(v)
	}
	return len(snapshot)
}

// reentry counts how deeply a signal is nested inside its own notification
// or evaluation.
type reentry struct {
	depth int
}

// enter increments the depth and panics with a CycleError once the runtime
// limit is exceeded. Every successful enter must be paired with leave.
func (r *reentry) enter(rt *Runtime, n Node) {
	if r.depth >= rt.maxDepth {
		rt.cycle(n, r.depth)
	}
	r.depth++
}

func (r *reentry) leave() {
	r.depth--
}

// identical reports whether a and b are the same value without looking
// inside them. Comparable values use ==; reference kinds compare by
// reference, and slices additionally by length.
func identical[T any](a, b T) bool {
	av := reflect.ValueOf(&a).Elem()
	bv := reflect.ValueOf(&b).Elem()
	return identicalValues(av, bv)
}

func identicalValues(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		ae, be := a.Elem(), b.Elem()
		if ae.Type() != be.Type() {
			return false
		}
		return identicalValues(ae, be)
	case reflect.Slice:
		return a.Len() == b.Len() && a.Pointer() == b.Pointer()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	}
	if a.Comparable() && b.Comparable() {
		return a.Equal(b)
	}
	// Structs and arrays holding slices, maps or funcs have no identity.
	return false
}
