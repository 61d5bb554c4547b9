package live

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for a Hub.
type Config struct {
	// ReadTimeout is the maximum time to wait for a message from the client.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// SendQueueSize is the number of outgoing frames buffered per client.
	// A client whose queue fills up is disconnected.
	// Default: 64.
	SendQueueSize int

	// ReadBufferSize and WriteBufferSize size the upgrader buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the Origin header of upgrade requests.
	// Nil uses the gorilla/websocket same-origin check.
	CheckOrigin func(r *http.Request) bool

	// Registry, when set, receives the hub's connection metrics.
	Registry prometheus.Registerer

	// Logger is the structured logger. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		SendQueueSize:     64,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		d.Logger = slog.Default()
		return d
	}
	out := *c
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.HeartbeatInterval <= 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.SendQueueSize <= 0 {
		out.SendQueueSize = d.SendQueueSize
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize <= 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}
