package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vango-dev/signals/internal/config"
	"github.com/vango-dev/signals/internal/errors"
	"github.com/vango-dev/signals/pkg/instrument"
	"github.com/vango-dev/signals/pkg/live"
	"github.com/vango-dev/signals/pkg/reactive"
)

func serveCmd(load func() (*config.Config, error)) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo graph over WebSocket",
		Long: `Serve a demo signal graph.

Clients connected to /ws receive every binding and can write the
count, step and todos sources. /snapshot returns the current values
and /metrics exposes Prometheus metrics when enabled.

Examples:
  signals serve
  signals serve --addr=:9000
  SIGNALS_RUNTIME_LOG_LEVEL=debug signals serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Live.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from signals.json)")

	return cmd
}

// app is everything serve runs, wired but not started.
type app struct {
	logger   *slog.Logger
	loop     *reactive.Loop
	hub      *live.Hub
	demo     *demo
	registry *prometheus.Registry
	handler  http.Handler
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	registry := prometheus.NewRegistry()

	var observers []reactive.Observer
	if cfg.Metrics.Enabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observers = append(observers, instrument.NewMetrics(
			instrument.WithRegistry(registry),
			instrument.WithNamespace(cfg.Metrics.Namespace),
		))
	}
	if cfg.Tracing.Enabled {
		observers = append(observers, instrument.NewTracer(
			instrument.WithTracerName(cfg.Tracing.TracerName),
			instrument.WithTransitions(cfg.Tracing.Transitions),
		))
	}

	rt := reactive.NewRuntime(
		reactive.WithLogger(logger),
		reactive.WithObserver(instrument.Multi(observers...)),
		reactive.WithMaxDepth(cfg.Runtime.MaxDepth),
	)
	loop := reactive.NewLoop(
		reactive.WithLoopLogger(logger),
		reactive.WithQueueSize(cfg.Loop.QueueSize),
	)

	hubConfig := &live.Config{
		ReadTimeout:       cfg.Live.ReadTimeout.Std(),
		WriteTimeout:      cfg.Live.WriteTimeout.Std(),
		HeartbeatInterval: cfg.Live.HeartbeatInterval.Std(),
		MaxMessageSize:    cfg.Live.MaxMessageSize,
		SendQueueSize:     cfg.Live.SendQueueSize,
		CheckOrigin:       originChecker(cfg.Live.AllowedOrigins),
		Logger:            logger,
	}
	if cfg.Metrics.Enabled {
		hubConfig.Registry = registry
	}
	hub := live.NewHub(loop, hubConfig)

	d := newDemo(rt, loop, logger)
	if err := d.bind(hub); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	hub.Routes(r)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return &app{
		logger:   logger,
		loop:     loop,
		hub:      hub,
		demo:     d,
		registry: registry,
		handler:  r,
	}, nil
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	logger := newLogger(cfg, cmd.ErrOrStderr())

	a, err := newApp(cfg, logger)
	if err != nil {
		return errors.FromError(err, errors.CodeBadArgument)
	}

	ln, err := net.Listen("tcp", cfg.Live.Addr)
	if err != nil {
		return errors.New(errors.CodeListenFailed).WithDetail(cfg.Live.Addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The loop outlives ctx so disconnecting clients can still release
	// their subscriptions; Close stops it.
	go a.loop.Run(context.Background())
	go a.demo.run(ctx, a.loop, time.Second)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	out := cmd.OutOrStdout()
	success(out, "Serving on http://%s", ln.Addr())
	info(out, "WebSocket: ws://%s/ws", ln.Addr())
	if cfg.Metrics.Enabled {
		info(out, "Metrics:   http://%s%s", ln.Addr(), cfg.Metrics.Path)
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			a.loop.Close()
			return errors.New(errors.CodeListenFailed).Wrap(err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Live.ShutdownTimeout.Std())
	defer cancel()

	if err := a.hub.Shutdown(shutdownCtx); err != nil {
		logger.Warn("clients did not disconnect", "error", err)
	}
	err = srv.Shutdown(shutdownCtx)
	if stopErr := a.loop.Call(shutdownCtx, a.demo.stop); stopErr != nil {
		logger.Warn("demo teardown failed", "error", stopErr)
	}
	a.loop.Close()
	if err != nil {
		return errors.New(errors.CodeShutdownFailed).Wrap(err)
	}
	return nil
}

// originChecker returns the websocket origin policy for allowed. Empty keeps
// the same-origin default.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}

