package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/signals/pkg/reactive"
)

var (
	// ErrDuplicateBinding is returned when a name is bound twice.
	ErrDuplicateBinding = errors.New("live: binding already exists")

	// ErrUnknownBinding is reported for frames naming no binding.
	ErrUnknownBinding = errors.New("live: unknown binding")

	// ErrReadOnly is reported for set frames on bindings that are not writable.
	ErrReadOnly = errors.New("live: binding is not writable")
)

type binding struct {
	name string

	// node is nil for static values.
	node   reactive.Node
	static any

	// set decodes and applies a client write. Nil when read-only.
	set func(raw json.RawMessage) error
}

// Hub streams named values of a signal graph to WebSocket clients.
//
// Every graph access happens on the hub's loop. A client follows every
// binding for as long as it stays connected, so derived bindings are hot
// while at least one client is watching and cold otherwise.
type Hub struct {
	loop     *reactive.Loop
	config   *Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	bindings map[string]*binding
	order    []string

	connsMu sync.Mutex
	conns   map[*conn]struct{}

	connected prometheus.Gauge
	frames    *prometheus.CounterVec
}

// NewHub creates a hub whose graph is owned by loop. A nil config uses
// DefaultConfig.
func NewHub(loop *reactive.Loop, config *Config) *Hub {
	config = config.withDefaults()
	h := &Hub{
		loop:   loop,
		config: config,
		logger: config.Logger.With("component", "live"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		bindings: make(map[string]*binding),
		conns:    make(map[*conn]struct{}),
	}
	if config.Registry != nil {
		factory := promauto.With(config.Registry)
		h.connected = factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "signals",
			Subsystem: "live",
			Name:      "connections",
			Help:      "Number of connected live clients",
		})
		h.frames = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signals",
			Subsystem: "live",
			Name:      "frames_total",
			Help:      "Total number of frames by direction",
		}, []string{"direction"})
	}
	return h
}

// Bind publishes v under name. Signals stream every change; any other value
// is sent once per connection. Bindings added while clients are connected
// reach new clients only.
func (h *Hub) Bind(name string, v any) error {
	b := &binding{name: name}
	if _, ok := reactive.KindOf(v); ok {
		b.node = v.(reactive.Node)
	} else {
		b.static = v
	}
	return h.add(b)
}

// Writable binds s under name and lets clients set it with FrameSet.
func Writable[T any](h *Hub, name string, s *reactive.Source[T]) error {
	return h.add(&binding{
		name: name,
		node: s,
		set: func(raw json.RawMessage) error {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("decode %s: %w", name, err)
			}
			return h.loop.Dispatch(func() { s.Set(v) })
		},
	})
}

func (h *Hub) add(b *binding) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bindings[b.name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBinding, b.name)
	}
	h.bindings[b.name] = b
	h.order = append(h.order, b.name)
	return nil
}

func (h *Hub) snapshotBindings() []*binding {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*binding, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.bindings[name])
	}
	return out
}

func (h *Hub) lookup(name string) (*binding, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.bindings[name]
	return b, ok
}

// Connections returns the number of connected clients.
func (h *Hub) Connections() int {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	return len(h.conns)
}

// Routes mounts the hub endpoints on r.
func (h *Hub) Routes(r chi.Router) {
	r.Get("/ws", h.ServeWS)
	r.Get("/snapshot", h.ServeSnapshot)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Handler returns a router serving the hub endpoints.
func (h *Hub) Handler() http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

// ServeSnapshot writes the current value of every binding as one JSON object.
func (h *Hub) ServeSnapshot(w http.ResponseWriter, r *http.Request) {
	bindings := h.snapshotBindings()
	values := make(map[string]any, len(bindings))
	err := h.loop.Call(r.Context(), func() {
		for _, b := range bindings {
			values[b.name] = b.current()
		}
	})
	if err != nil {
		h.logger.Warn("snapshot failed", "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(values); err != nil {
		h.logger.Error("snapshot encode error", "error", err)
	}
}

// current reads the binding's value. Must run on the loop.
func (b *binding) current() any {
	if b.node == nil {
		return b.static
	}
	var v any
	b.node.Follow(func(x any) { v = x }, true)()
	return v
}

// ServeWS upgrades the request and streams bindings until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "error", err)
		return
	}
	c := newConn(h, ws)
	h.track(c, true)
	go c.writeLoop()

	if err := h.loop.Call(r.Context(), func() { c.follow(h.snapshotBindings()) }); err != nil {
		h.logger.Warn("follow failed", "error", err)
		c.close()
	}

	c.readLoop()
	h.release(c)
}

// release unfollows everything c follows. The unsubscribe runs on the loop.
func (h *Hub) release(c *conn) {
	c.close()
	if err := h.loop.Dispatch(c.unfollow); err != nil && !errors.Is(err, reactive.ErrLoopClosed) {
		h.logger.Warn("release failed", "error", err)
	}
	h.track(c, false)
}

func (h *Hub) track(c *conn, add bool) {
	h.connsMu.Lock()
	if add {
		h.conns[c] = struct{}{}
	} else {
		delete(h.conns, c)
	}
	n := len(h.conns)
	h.connsMu.Unlock()
	if h.connected != nil {
		h.connected.Set(float64(n))
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.connsMu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.connsMu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

func (h *Hub) countFrame(direction string) {
	if h.frames != nil {
		h.frames.WithLabelValues(direction).Inc()
	}
}

// Shutdown closes every client and waits until all of them are gone or ctx
// is done.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.Close()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for h.Connections() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
