package reactive

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

// newTestRuntime returns an isolated runtime that logs nowhere.
func newTestRuntime(opts ...Option) *Runtime {
	base := []Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return NewRuntime(append(base, opts...)...)
}

// mustPanic runs fn and returns what it panicked with.
func mustPanic(t *testing.T, fn func()) (recovered any) {
	t.Helper()
	defer func() {
		recovered = recover()
		if recovered == nil {
			t.Fatal("expected panic, got none")
		}
	}()
	fn()
	return nil
}

// recordingObserver counts observer callbacks.
type recordingObserver struct {
	recomputes  int
	changed     int
	notifies    int
	hot         int
	cold        int
	cycles      int
	lastStarted time.Time
}

func (o *recordingObserver) OnRecompute(_ Node, started time.Time, changed bool) {
	o.recomputes++
	o.lastStarted = started
	if changed {
		o.changed++
	}
}

func (o *recordingObserver) OnNotify(Node, int) { o.notifies++ }

func (o *recordingObserver) OnTransition(_ Node, hot bool) {
	if hot {
		o.hot++
	} else {
		o.cold++
	}
}

func (o *recordingObserver) OnCycle(Node) { o.cycles++ }
