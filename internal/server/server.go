// Package server hosts the local studio: a REST control surface and a
// websocket preview feed over one capture controller.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/capscribe/capscribe/internal/capture"
	"github.com/capscribe/capscribe/internal/util"
)

// StudioServer is the local HTTP server backing the studio UI.
type StudioServer struct {
	port       int
	ctrl       *capture.Controller
	mux        *http.ServeMux
	httpServer *http.Server
	logger     *slog.Logger

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewStudioServer creates a studio server over the given controller.
// The server takes ownership of the controller: shutting down closes
// it, recording or not.
func NewStudioServer(port int, ctrl *capture.Controller) *StudioServer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &StudioServer{
		port:   port,
		ctrl:   ctrl,
		mux:    http.NewServeMux(),
		logger: slog.With("component", "studio_server"),
		ctx:    ctx,
		cancel: cancel,
	}
	s.setupRoutes()
	return s
}

func (s *StudioServer) setupRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/source", s.handleSetSource)
	s.mux.HandleFunc("POST /api/record/start", s.handleRecordStart)
	s.mux.HandleFunc("POST /api/record/stop", s.handleRecordStop)
	s.mux.HandleFunc("GET /api/artifact", s.handleArtifact)
	s.mux.HandleFunc("GET /ws/preview", s.handlePreview)
}

// Handler returns the server's HTTP handler, for tests.
func (s *StudioServer) Handler() http.Handler {
	return s.mux
}

// Addr returns the listen address.
func (s *StudioServer) Addr() string {
	return fmt.Sprintf(":%d", s.port)
}

// Start runs the server until Stop is called. Blocking.
func (s *StudioServer) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:     s.Addr(),
		Handler:  s.mux,
		ErrorLog: util.StdLogger(),
		// Streaming connections: no read/write timeouts.
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  0,
	}
	s.mu.Unlock()

	s.logger.Info("Studio server listening", "addr", s.Addr())
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down and closes the controller. The recording
// teardown must not depend on the user having pressed stop first.
func (s *StudioServer) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	s.cancel()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("HTTP server shutdown error, forcing close", "error", err)
			srv.Close()
		}
	}

	err := s.ctrl.Close()
	s.logger.Info("Studio server stopped")
	return err
}
