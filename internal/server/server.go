// Package server assembles the HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cwhitfield/tickwatch/internal/config"
	"github.com/cwhitfield/tickwatch/internal/server/handler"
	"github.com/cwhitfield/tickwatch/internal/server/middleware"
	"github.com/cwhitfield/tickwatch/internal/server/ws"
)

// Server wraps the http.Server with route setup and graceful shutdown.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	log        *slog.Logger
}

// Handlers groups everything the router needs.
type Handlers struct {
	Position *handler.PositionHandler
	Signal   *handler.SignalHandler
	Monitor  *handler.MonitorHandler
	Price    *handler.PriceHandler
	Hub      *ws.Hub
}

func New(cfg config.ServerConfig, h Handlers, log *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handler.Health)

	mux.HandleFunc("GET /api/positions", h.Position.ListOpen)
	mux.HandleFunc("GET /api/positions/history", h.Position.History)
	mux.HandleFunc("GET /api/positions/{id}", h.Position.Get)
	mux.HandleFunc("POST /api/positions/{id}/close", h.Position.Close)

	webhook := middleware.WebhookToken(cfg.WebhookToken)(http.HandlerFunc(h.Signal.Webhook))
	mux.Handle("POST /api/webhook/signal", webhook)
	mux.HandleFunc("GET /api/signals", h.Signal.List)

	mux.HandleFunc("GET /api/prices", h.Price.List)

	mux.HandleFunc("POST /api/monitor/start", h.Monitor.Start)
	mux.HandleFunc("POST /api/monitor/stop", h.Monitor.Stop)
	mux.HandleFunc("GET /api/monitor/status", h.Monitor.Status)

	mux.HandleFunc("GET /ws", h.Hub.ServeWS)

	root := middleware.Logging(log.With("component", "http"))(middleware.CORS(mux))

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      root,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		cfg: cfg,
		log: log.With("component", "server"),
	}
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(sctx)
}
