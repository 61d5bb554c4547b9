package live

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/signals/pkg/reactive"
)

// conn is one connected client.
type conn struct {
	hub    *Hub
	ws     *websocket.Conn
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// unsubs is only touched on the loop.
	unsubs []reactive.Unsubscribe
}

func newConn(h *Hub, ws *websocket.Conn) *conn {
	return &conn{
		hub:    h,
		ws:     ws,
		logger: h.logger.With("remote", ws.RemoteAddr().String()),
		send:   make(chan []byte, h.config.SendQueueSize),
		done:   make(chan struct{}),
	}
}

// follow subscribes to every dynamic binding and queues the initial value
// of each. Runs on the loop.
func (c *conn) follow(bindings []*binding) {
	for _, b := range bindings {
		name := b.name
		if b.node == nil {
			c.enqueue(name, b.static)
			continue
		}
		unsub := b.node.Follow(func(v any) { c.enqueue(name, v) }, true)
		c.unsubs = append(c.unsubs, unsub)
	}
}

// unfollow releases every subscription. Runs on the loop.
func (c *conn) unfollow() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}

// enqueue encodes a value frame and queues it without blocking the loop.
// A client that cannot keep up is disconnected.
func (c *conn) enqueue(name string, v any) {
	frame, err := valueFrame(name, v)
	if err != nil {
		c.logger.Warn("value encode error", "name", name, "error", err)
		return
	}
	c.push(frame)
}

func (c *conn) push(frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- frame:
	default:
		c.logger.Warn("slow consumer, closing", "queued", len(c.send))
		c.close()
	}
}

// readLoop handles client frames until the connection fails.
func (c *conn) readLoop() {
	defer c.close()

	c.ws.SetReadLimit(c.hub.config.MaxMessageSize)
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	})

	for {
		c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))

		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		c.hub.countFrame("in")

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.logger.Warn("frame decode error", "error", err)
			c.push(errorFrame("", "invalid frame"))
			continue
		}

		switch f.Type {
		case FrameSet:
			c.handleSet(f)
		default:
			c.logger.Warn("unknown frame type", "type", f.Type)
			c.push(errorFrame(f.Name, "unknown frame type"))
		}
	}
}

func (c *conn) handleSet(f Frame) {
	b, ok := c.hub.lookup(f.Name)
	if !ok {
		c.push(errorFrame(f.Name, ErrUnknownBinding.Error()))
		return
	}
	if b.set == nil {
		c.push(errorFrame(f.Name, ErrReadOnly.Error()))
		return
	}
	if err := b.set(f.Value); err != nil {
		c.logger.Warn("set rejected", "name", f.Name, "error", err)
		c.push(errorFrame(f.Name, err.Error()))
	}
}

// writeLoop drains the send queue and sends heartbeat pings. A failed write
// closes the socket so readLoop returns too.
func (c *conn) writeLoop() {
	ticker := time.NewTicker(c.hub.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("write error", "error", err)
				c.close()
				c.ws.Close()
				return
			}
			c.hub.countFrame("out")

		case <-ticker.C:
			deadline := time.Now().Add(c.hub.config.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("ping error", "error", err)
				c.close()
				c.ws.Close()
				return
			}

		case <-c.done:
			deadline := time.Now().Add(c.hub.config.WriteTimeout)
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			c.ws.Close()
			return
		}
	}
}

// close stops the connection. Safe to call from any goroutine.
func (c *conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
