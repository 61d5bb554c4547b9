package reactive

import "time"

// Observer receives graph events for instrumentation. Methods are called
// synchronously on the graph goroutine and must not read or write signals.
type Observer interface {
	// OnRecompute is called after a tracked recomputation of a hot derived
	// signal. started is the time the callback began.
	OnRecompute(n Node, started time.Time, changed bool)

	// OnNotify is called after a signal notified its followers.
	OnNotify(n Node, followers int)

	// OnTransition is called when a derived signal turns hot or cold.
	OnTransition(n Node, hot bool)

	// OnCycle is called right before a CycleError is raised.
	OnCycle(n Node)
}

type nopObserver struct{}

func (nopObserver) OnRecompute(Node, time.Time, bool) {}
func (nopObserver) OnNotify(Node, int)                {}
func (nopObserver) OnTransition(Node, bool)           {}
func (nopObserver) OnCycle(Node)                      {}
