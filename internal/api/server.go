// Package api exposes the bundler batch over HTTP, for schedulers that
// trigger runs with a request instead of a process invocation.
//
//	GET  /health  liveness probe
//	GET  /run     run one batch with default options
//	POST /run     run one batch; the optional JSON body sets dry_run and file
//
// A run answers 200 with {"status":"success","processed_files":N}, 500 with
// {"status":"error","message":...} when the batch fails, and 409 when
// another batch holds the run lock.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/bundler"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/logger"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/runlock"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// Runner runs one batch.
type Runner interface {
	Run(ctx context.Context, opts bundler.Options) (types.BatchResult, error)
}

// RunRequest is the optional body of POST /run.
type RunRequest struct {
	DryRun bool   `json:"dry_run"`
	File   string `json:"file"`
}

// Handlers serves the trigger endpoints.
type Handlers struct {
	runner Runner
	log    *logger.Logger
}

// NewHandlers creates handlers running batches with runner.
func NewHandlers(runner Runner, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.Default()
	}
	return &Handlers{runner: runner, log: log}
}

// Routes builds the router.
func (h *Handlers) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/run", h.Run)
	r.Post("/run", h.Run)

	return r
}

// Health answers liveness probes.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run executes one batch and reports its outcome.
func (h *Handlers) Run(w http.ResponseWriter, r *http.Request) {
	var opts bundler.Options

	if r.Method == http.MethodPost {
		var req RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		opts.DryRun = req.DryRun
		opts.File = req.File
	}

	// Batches run to completion even if the client disconnects.
	ctx := context.WithoutCancel(r.Context())

	result, err := h.runner.Run(ctx, opts)
	switch {
	case errors.Is(err, runlock.ErrLocked):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		h.log.Error("triggered batch failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, result.Payload())
	default:
		writeJSON(w, http.StatusOK, result.Payload())
	}
}

// =============================================================================
// SERVER
// =============================================================================

// Server is the HTTP trigger server.
type Server struct {
	srv *http.Server
	log *logger.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, h *Handlers) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: h.log,
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// and waits up to grace for in-flight batches.
func (s *Server) ListenAndServe(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http trigger listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("http trigger shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
