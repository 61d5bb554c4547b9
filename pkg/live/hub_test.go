package live

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vango-dev/signals/pkg/reactive"
)

type fixture struct {
	loop    *reactive.Loop
	hub     *Hub
	server  *httptest.Server
	count   *reactive.Source[int]
	doubled *reactive.Derived[int]
}

func newFixture(t *testing.T, config *Config) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := reactive.NewRuntime(reactive.WithLogger(logger))
	loop := reactive.NewLoop(reactive.WithLoopLogger(logger))
	go loop.Run(context.Background())

	if config == nil {
		config = DefaultConfig()
	}
	config.Logger = logger

	f := &fixture{loop: loop, hub: NewHub(loop, config)}
	f.count = reactive.NewSource(rt, 1)
	f.doubled = reactive.NewDerived(rt, func() int { return f.count.Value() * 2 })

	if err := Writable(f.hub, "count", f.count); err != nil {
		t.Fatalf("bind count: %v", err)
	}
	if err := f.hub.Bind("doubled", f.doubled); err != nil {
		t.Fatalf("bind doubled: %v", err)
	}
	if err := f.hub.Bind("title", "demo"); err != nil {
		t.Fatalf("bind title: %v", err)
	}

	f.server = httptest.NewServer(f.hub.Handler())
	t.Cleanup(func() {
		f.server.Close()
		loop.Close()
	})
	return f
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// onLoop runs fn on the fixture's loop and waits for it.
func (f *fixture) onLoop(t *testing.T, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.loop.Call(ctx, fn); err != nil {
		t.Fatalf("loop call failed: %v", err)
	}
}

func readFrame(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	if err := ws.ReadJSON(&f); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return f
}

// readValues reads n value frames and returns their decoded values by name.
func readValues(t *testing.T, ws *websocket.Conn, n int) map[string]any {
	t.Helper()
	out := make(map[string]any, n)
	for i := 0; i < n; i++ {
		f := readFrame(t, ws)
		if f.Type != FrameValue {
			t.Fatalf("expected value frame, got %+v", f)
		}
		var v any
		if err := json.Unmarshal(f.Value, &v); err != nil {
			t.Fatalf("decode %s: %v", f.Name, err)
		}
		out[f.Name] = v
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubSendsInitialValues(t *testing.T) {
	f := newFixture(t, nil)
	ws := f.dial(t)

	got := readValues(t, ws, 3)
	want := map[string]any{"count": float64(1), "doubled": float64(2), "title": "demo"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("initial values mismatch (-want +got):\n%s", diff)
	}
}

func TestHubStreamsChangesAndAcceptsWrites(t *testing.T) {
	f := newFixture(t, nil)
	ws := f.dial(t)
	readValues(t, ws, 3)

	if err := ws.WriteJSON(Frame{Type: FrameSet, Name: "count", Value: json.RawMessage("5")}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got := readValues(t, ws, 2)
	want := map[string]any{"count": float64(5), "doubled": float64(10)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("streamed values mismatch (-want +got):\n%s", diff)
	}

	var value int
	f.onLoop(t, func() { value = f.count.Peek() })
	if value != 5 {
		t.Errorf("expected source to be 5, got %d", value)
	}
}

func TestHubRejectsBadWrites(t *testing.T) {
	f := newFixture(t, nil)
	ws := f.dial(t)
	readValues(t, ws, 3)

	cases := []struct {
		frame Frame
		want  string
	}{
		{Frame{Type: FrameSet, Name: "doubled", Value: json.RawMessage("1")}, ErrReadOnly.Error()},
		{Frame{Type: FrameSet, Name: "missing", Value: json.RawMessage("1")}, ErrUnknownBinding.Error()},
		{Frame{Type: "bogus", Name: "count"}, "unknown frame type"},
	}
	for _, tc := range cases {
		if err := ws.WriteJSON(tc.frame); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		got := readFrame(t, ws)
		if got.Type != FrameError || got.Error != tc.want {
			t.Errorf("expected error %q, got %+v", tc.want, got)
		}
	}

	if err := ws.WriteJSON(Frame{Type: FrameSet, Name: "count", Value: json.RawMessage(`"x"`)}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := readFrame(t, ws); got.Type != FrameError || !strings.Contains(got.Error, "decode count") {
		t.Errorf("expected decode error, got %+v", got)
	}
}

func TestHubReleasesSubscriptionsOnDisconnect(t *testing.T) {
	f := newFixture(t, nil)
	ws := f.dial(t)
	readValues(t, ws, 3)

	var followers, deps int
	f.onLoop(t, func() {
		followers = f.count.Followers()
		deps = f.doubled.Dependencies()
	})
	// One direct follower plus the derived signal's dependency.
	if followers != 2 || deps != 1 {
		t.Fatalf("expected 2 followers and 1 dependency, got %d and %d", followers, deps)
	}

	ws.Close()
	waitFor(t, "disconnect", func() bool { return f.hub.Connections() == 0 })

	f.onLoop(t, func() {
		followers = f.count.Followers()
		deps = f.doubled.Dependencies()
	})
	if followers != 0 || deps != 0 {
		t.Errorf("expected everything released, got %d followers and %d dependencies", followers, deps)
	}
}

func TestHubSnapshotAndHealth(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := http.Get(f.server.URL + "/snapshot")
	if err != nil {
		t.Fatalf("snapshot request failed: %v", err)
	}
	defer resp.Body.Close()

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	want := map[string]any{"count": float64(1), "doubled": float64(2), "title": "demo"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	var deps int
	f.onLoop(t, func() { deps = f.doubled.Dependencies() })
	if deps != 0 {
		t.Errorf("expected snapshot to leave derived signal cold, got %d dependencies", deps)
	}

	health, err := http.Get(f.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", health.StatusCode)
	}
}

func TestHubDuplicateBinding(t *testing.T) {
	f := newFixture(t, nil)
	err := f.hub.Bind("title", "again")
	if !errors.Is(err, ErrDuplicateBinding) {
		t.Errorf("expected ErrDuplicateBinding, got %v", err)
	}
}

func TestHubMetricsAndShutdown(t *testing.T) {
	reg := prometheus.NewRegistry()
	config := DefaultConfig()
	config.Registry = reg
	f := newFixture(t, config)

	ws := f.dial(t)
	readValues(t, ws, 3)

	if got := testutil.ToFloat64(f.hub.connected); got != 1 {
		t.Errorf("expected 1 connection, got %v", got)
	}
	// The counter moves after the write returns.
	waitFor(t, "outgoing frame count", func() bool {
		return testutil.ToFloat64(f.hub.frames.WithLabelValues("out")) == 3
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.hub.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if got := testutil.ToFloat64(f.hub.connected); got != 0 {
		t.Errorf("expected 0 connections after shutdown, got %v", got)
	}
}

func TestHubWriteFailureClosesConnection(t *testing.T) {
	config := DefaultConfig()
	config.ReadTimeout = time.Minute
	// Every write misses its deadline.
	config.WriteTimeout = time.Nanosecond
	f := newFixture(t, config)
	ws := f.dial(t)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := ws.ReadMessage()
	if err == nil {
		t.Fatal("expected the server to drop the connection")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		t.Fatalf("expected the server to close the socket, client read timed out: %v", err)
	}

	waitFor(t, "disconnect", func() bool { return f.hub.Connections() == 0 })
	var followers int
	f.onLoop(t, func() { followers = f.count.Followers() })
	if followers != 0 {
		t.Errorf("expected subscriptions released, got %d followers", followers)
	}
}

func TestConnClosesSlowConsumer(t *testing.T) {
	c := &conn{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		send:   make(chan []byte, 1),
		done:   make(chan struct{}),
	}

	c.enqueue("a", 1)
	select {
	case <-c.done:
		t.Fatal("expected connection to stay open while the queue has room")
	default:
	}

	c.enqueue("a", 2)
	select {
	case <-c.done:
	default:
		t.Fatal("expected full queue to close the connection")
	}

	// Further values are dropped without blocking.
	c.enqueue("a", 3)
	if len(c.send) != 1 {
		t.Errorf("expected 1 queued frame, got %d", len(c.send))
	}
}
