// Package server exposes the planner over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /circle.{format}                 svg, png, pdf or json
//	GET    /geometry                        sector outlines as JSON
//	GET    /classify?x=&y=[&screen_w=&screen_h=]
//	POST   /drop                            {"x", "y", "note"}
//	GET    /sectors/{ring}/{index}/tasks
//	POST   /sectors/{ring}/{index}/tasks
//	DELETE /sectors/{ring}/{index}/tasks
//	GET    /tasks[?cycle=&status=&archived=true]
//	GET    /tasks/{id}
//	PATCH  /tasks/{id}
//	DELETE /tasks/{id}
//
// Errors are JSON objects {"code", "message"} with an HTTP status derived
// from the error code.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/fractal/pkg/pipeline"
	"github.com/matzehuels/fractal/pkg/planner"
	"github.com/matzehuels/fractal/pkg/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	maxBodyBytes      = 1 << 20
)

// Server serves one planner circle.
type Server struct {
	planner *planner.Planner
	tasks   store.Tasks
	runner  *pipeline.Runner
	render  pipeline.Options
	logger  *log.Logger
}

// New creates a server. render holds the circle options every image
// request starts from; its size and variant must match the planner's
// geometry.
func New(p *planner.Planner, tasks store.Tasks, runner *pipeline.Runner, render pipeline.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	render.Variant = string(p.Variant())
	return &Server{planner: p, tasks: tasks, runner: runner, render: render, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/circle.{format}", s.handleCircle)
	r.Get("/geometry", s.handleGeometry)
	r.Get("/classify", s.handleClassify)
	r.Post("/drop", s.handleDrop)

	r.Route("/sectors/{ring}/{index}/tasks", func(r chi.Router) {
		r.Get("/", s.handleSectorTasks)
		r.Post("/", s.handleSectorCreate)
		r.Delete("/", s.handleSectorClear)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Get("/{id}", s.handleGetTask)
		r.Patch("/{id}", s.handlePatchTask)
		r.Delete("/{id}", s.handleDeleteTask)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, notFound(r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_, body := statusFor(methodNotAllowed(r.Method, r.URL.Path))
		writeJSON(w, http.StatusMethodNotAllowed, body)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
