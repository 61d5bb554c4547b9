package reactive

// NewAwaited returns a signal on rt that holds until until future yields a
// value, and that value afterwards. The value is set exactly once, through d,
// so the write happens on the graph goroutine. If future is closed without a
// value the signal keeps until forever.
//
// There is no cancellation: every call waits on its own future
// independently.
func NewAwaited[T any](rt *Runtime, d Dispatcher, future <-chan T, until T) Signal[T] {
	s := NewSource(rt, until)
	go func() {
		v, ok := <-future
		if !ok {
			return
		}
		if err := d.Dispatch(func() { s.Set(v) }); err != nil {
			rt.logger.Warn("awaited value dropped",
				"signal_id", s.id,
				"error", err)
		}
	}()
	return s
}

// Awaited is NewAwaited on the default runtime.
//
// Example:
//
//	user := Awaited(loop, fetchUser(ctx, id), (*User)(nil))
func Awaited[T any](d Dispatcher, future <-chan T, until T) Signal[T] {
	return NewAwaited(Default(), d, future, until)
}
