// SPDX-License-Identifier: GPL-3.0-or-later

// Package httpapi serves the scrape and dashboard endpoints.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/mezorian/mail-health-exporter/log"
	"github.com/mezorian/mail-health-exporter/metrics"
	"github.com/mezorian/mail-health-exporter/status"
)

// Server exposes the registry over HTTP. /metrics is the Prometheus scrape
// surface, /status the dashboard page. Handlers read the registry on
// demand, they never block on a running check.
type Server struct {
	httpServer *http.Server
	registry   *metrics.Registry
	renderer   *status.Renderer

	l *logrus.Logger
}

func NewServer(port int, registry *metrics.Registry, renderer *status.Renderer) *Server {
	s := &Server{
		registry: registry,
		renderer: renderer,
		l:        log.Logger(log.LOG_HTTP),
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Router builds the handler tree. Exposed separately so tests can drive it
// without a listening socket.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", s.handleMetrics)
	r.Get("/status", s.handleStatus)

	return r
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(s.registry.Exposition()))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(s.renderer.Render(s.registry.Status())))
}

// Run blocks serving HTTP traffic until Shutdown is called.
func (s *Server) Run() error {
	s.l.WithField("addr", s.httpServer.Addr).Info("Serving metrics and status")

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not serve http: %w", err)
	}

	return nil
}

// Shutdown stops the server, waiting for in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
