// Package web exposes the identification pipeline as a small REST API for
// the desktop frontend: submit a job document, poll for the result.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ML-4-SocialGood/ReWildID/internal/reid"
)

// Server wraps the HTTP server and the async job bookkeeping.
type Server struct {
	pipeline   *reid.Pipeline
	jobs       *JobManager
	router     *chi.Mux
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer creates the web server listening on addr.
func NewServer(pipeline *reid.Pipeline, addr string, log *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		pipeline: pipeline,
		jobs:     NewJobManager(),
		router:   r,
		log:      log,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reid", s.handleSubmit)
		r.Get("/reid/{id}", s.handleStatus)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info("starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmit accepts a job document and starts the pipeline in the
// background. The response carries the job id for polling.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	job, err := reid.ParseJob(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	snapshot := s.jobs.Create()
	go s.runJob(snapshot.ID, job)

	writeJSON(w, http.StatusAccepted, snapshot)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.jobs.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// runJob executes the pipeline detached from the request context: the
// submitting request returns immediately and must not cancel the work.
func (s *Server) runJob(id string, job *reid.Job) {
	s.jobs.SetRunning(id)

	out, err := s.pipeline.Run(context.Background(), job)
	if err != nil {
		s.log.Error("reid job failed", "job", id, "error", err)
		s.jobs.Fail(id, err)
		return
	}
	s.jobs.Complete(id, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
