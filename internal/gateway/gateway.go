// Package gateway provides the HTTP surface: job management, execution
// history, health, status, Prometheus metrics, and a WebSocket event feed.
// It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"chime/internal/engine"
	"chime/internal/eventbus"
	"chime/internal/scheduler"
)

const defaultShutdownTimeout = 10 * time.Second

// Config holds the gateway's settings and dependencies.
type Config struct {
	Bind         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Engine   *engine.Engine // required
	Loop     *scheduler.Loop
	Bus      *eventbus.Bus
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Gateway is the HTTP server for the scheduler daemon.
type Gateway struct {
	config    Config
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a gateway. Start must be called before it serves anything.
func New(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{config: cfg, logger: logger}
}

// Start binds the listen address and serves in a background goroutine.
func (g *Gateway) Start(ctx context.Context) error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
