package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/vango-dev/signals/internal/errors"
)

const (
	// FileName is the name of the configuration file.
	FileName = "signals.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SIGNALS_"

	// DefaultAddr is the default live server address.
	DefaultAddr = "localhost:8080"

	// DefaultMaxDepth is the default re-entry limit before a cycle is reported.
	DefaultMaxDepth = 100
)

// Config represents the complete signals.json configuration.
type Config struct {
	// Runtime configures the signal graph.
	Runtime RuntimeConfig `json:"runtime" envPrefix:"RUNTIME_"`

	// Loop configures the event loop that owns the graph.
	Loop LoopConfig `json:"loop" envPrefix:"LOOP_"`

	// Live configures the WebSocket server.
	Live LiveConfig `json:"live" envPrefix:"LIVE_"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `json:"metrics" envPrefix:"METRICS_"`

	// Tracing configures OpenTelemetry spans.
	Tracing TracingConfig `json:"tracing" envPrefix:"TRACING_"`

	// configPath is the file the config was loaded from.
	configPath string
}

// RuntimeConfig configures the signal graph.
type RuntimeConfig struct {
	// MaxDepth is how deeply one signal may re-enter its own notification
	// or evaluation before a cycle is reported.
	MaxDepth int `json:"maxDepth,omitempty" env:"MAX_DEPTH"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" env:"LOG_LEVEL"`

	// LogFormat is text or json.
	LogFormat string `json:"logFormat,omitempty" env:"LOG_FORMAT"`
}

// LoopConfig configures the event loop.
type LoopConfig struct {
	// QueueSize is the number of dispatched functions that may wait.
	QueueSize int `json:"queueSize,omitempty" env:"QUEUE_SIZE"`
}

// LiveConfig configures the WebSocket server.
type LiveConfig struct {
	Addr              string   `json:"addr,omitempty" env:"ADDR"`
	ReadTimeout       Duration `json:"readTimeout,omitempty" env:"READ_TIMEOUT"`
	WriteTimeout      Duration `json:"writeTimeout,omitempty" env:"WRITE_TIMEOUT"`
	HeartbeatInterval Duration `json:"heartbeatInterval,omitempty" env:"HEARTBEAT_INTERVAL"`
	ShutdownTimeout   Duration `json:"shutdownTimeout,omitempty" env:"SHUTDOWN_TIMEOUT"`
	SendQueueSize     int      `json:"sendQueueSize,omitempty" env:"SEND_QUEUE_SIZE"`
	MaxMessageSize    int64    `json:"maxMessageSize,omitempty" env:"MAX_MESSAGE_SIZE"`

	// AllowedOrigins lists origins allowed to open a socket. Empty means
	// same-origin only; "*" allows any.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" env:"ENABLED"`
	Path      string `json:"path,omitempty" env:"PATH"`
	Namespace string `json:"namespace,omitempty" env:"NAMESPACE"`
}

// TracingConfig configures OpenTelemetry spans.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" env:"ENABLED"`
	TracerName  string `json:"tracerName,omitempty" env:"TRACER_NAME"`
	Transitions bool   `json:"transitions,omitempty" env:"TRANSITIONS"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// New returns a configuration with every default applied.
func New() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			MaxDepth:  DefaultMaxDepth,
			LogLevel:  "info",
			LogFormat: "text",
		},
		Loop: LoopConfig{
			QueueSize: 256,
		},
		Live: LiveConfig{
			Addr:              DefaultAddr,
			ReadTimeout:       Duration(60 * time.Second),
			WriteTimeout:      Duration(10 * time.Second),
			HeartbeatInterval: Duration(30 * time.Second),
			ShutdownTimeout:   Duration(5 * time.Second),
			SendQueueSize:     64,
			MaxMessageSize:    64 * 1024,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "signals",
		},
		Tracing: TracingConfig{
			TracerName: "signals",
		},
	}
}

// Load reads signals.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads configuration from the specified file path. Fields the
// file leaves out keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigMissing).
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path))
		}
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigParse).
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}

	cfg.configPath = path
	return cfg, nil
}

// Resolve builds the effective configuration: the file at path (or
// signals.json in the working directory when path is empty and the file
// exists), then environment overrides, then validation.
func Resolve(path string) (*Config, error) {
	var cfg *Config
	switch {
	case path != "":
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case Exists("."):
		loaded, err := Load(".")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		cfg = New()
	}

	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SIGNALS_* variables in environ, or from the
// process environment when environ is nil.
func (c *Config) ApplyEnv(environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return errors.New(errors.CodeConfigEnv).Wrap(err)
	}
	return nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfigWrite).Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigWrite).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Runtime.MaxDepth <= 0 {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("runtime.maxDepth must be positive")
	}
	if _, ok := parseLevel(c.Runtime.LogLevel); !ok {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("runtime.logLevel must be one of debug, info, warn, error").
			WithSuggestion("Got " + c.Runtime.LogLevel)
	}
	if f := c.Runtime.LogFormat; f != "text" && f != "json" {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("runtime.logFormat must be text or json")
	}
	if c.Loop.QueueSize <= 0 {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("loop.queueSize must be positive")
	}
	if c.Live.SendQueueSize <= 0 {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("live.sendQueueSize must be positive")
	}
	if c.Live.Addr == "" {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("live.addr must not be empty")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("metrics.path must start with /")
	}
	return nil
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Runtime.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}
