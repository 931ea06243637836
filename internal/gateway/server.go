package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server is the public API listener.
type Server struct {
	hub *Hub
	srv *http.Server
}

// NewServer wires the routes onto a fresh mux.
func NewServer(addr string, svc *Service, hub *Hub, health http.Handler) *Server {
	mux := http.NewServeMux()
	RegisterRoutes(mux, svc, hub, svc.metrics, health)

	return &Server{
		hub: hub,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks until the server stops. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	slog.Info("api server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains in-flight ones and closes the
// hijacked WebSocket connections, which http.Server does not track.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.hub.CloseAll()
	return err
}
