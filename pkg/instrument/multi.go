package instrument

import (
	"time"

	"github.com/vango-dev/signals/pkg/reactive"
)

type multiObserver []reactive.Observer

// Multi fans every event out to each observer in order. Nil observers are
// skipped; with none left Multi returns nil, which reactive.WithObserver
// ignores.
func Multi(observers ...reactive.Observer) reactive.Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func (m multiObserver) OnRecompute(n reactive.Node, started time.Time, changed bool) {
	for _, o := range m {
		o.OnRecompute(n, started, changed)
	}
}

func (m multiObserver) OnNotify(n reactive.Node, followers int) {
	for _, o := range m {
		o.OnNotify(n, followers)
	}
}

func (m multiObserver) OnTransition(n reactive.Node, hot bool) {
	for _, o := range m {
		o.OnTransition(n, hot)
	}
}

func (m multiObserver) OnCycle(n reactive.Node) {
	for _, o := range m {
		o.OnCycle(n)
	}
}
