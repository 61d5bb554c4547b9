package reactive

// NewEffect runs fn on rt immediately and again whenever a signal it read
// during its last run changes. The returned handle disposes the effect; once
// called, fn never runs again.
func NewEffect(rt *Runtime, fn func()) Unsubscribe {
	d := NewDerived(rt, func() struct{} {
		fn()
		return struct{}{}
	})
	return d.Subscribe(func(struct{}) {}, true)
}

// Effect is NewEffect on the default runtime.
//
// Example:
//
//	stop := Effect(func() {
//	    label.SetText(fmt.Sprint(count.Value()))
//	})
//	defer stop()
func Effect(fn func()) Unsubscribe {
	return NewEffect(Default(), fn)
}
