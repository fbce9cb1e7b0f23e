package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftwatch/driftwatch/internal/models"
)

// AlertLister supplies the active alerts served by the status API.
// Satisfied by *engine.Engine.
type AlertLister interface {
	Active() []models.AlertEvent
}

// Server serves Prometheus metrics and engine status on a dedicated port.
type Server struct {
	server *http.Server
	addr   string
}

// NewServer creates a new status server.
func NewServer(addr string, alerts AlertLister) *Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/api/alerts", func(w http.ResponseWriter, _ *http.Request) {
		active := []models.AlertEvent{}
		if alerts != nil {
			active = alerts.Active()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"alerts": active}); err != nil {
			log.Printf("encode alerts response: %v", err)
		}
	})

	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start starts the status server.
func (s *Server) Start() error {
	log.Printf("status server listening on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the status server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("shutting down status server")
	return s.server.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.addr
}
