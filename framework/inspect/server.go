// Package inspect serves the outcome of the last build over HTTP as JSON.
//
//	GET /healthz
//	GET /report
//	GET /contexts
//	GET /messages?severity=ERROR
//	GET /components
//	GET /components/{name}
//
// Every payload is wrapped in {"data": ...}; errors are {"message": ...}.
package inspect

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/km-arc/go-extend/framework/logging"
	"github.com/km-arc/go-extend/framework/report"
)

const noBuild = "No build has been published yet."

// Server holds the last published artifact and answers read-only queries
// about it.
type Server struct {
	mu       sync.RWMutex
	artifact *report.Artifact

	logger logging.Logger
	router *Router
}

// NewServer returns a Server with no artifact published.
func NewServer(logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{logger: logger, router: NewRouter(logger)}
	s.routes()
	return s
}

// Publish replaces the artifact served.
func (s *Server) Publish(a *report.Artifact) {
	s.mu.Lock()
	s.artifact = a
	s.mu.Unlock()
	s.logger.Info("artifact published", "build", a.ID, "status", a.Status)
}

func (s *Server) current() *report.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact
}

// Handler returns the HTTP handler of the inspector.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	r := s.router
	r.Get("/healthz", s.healthz)
	r.Get("/report", s.withArtifact(func(res *Response, _ *http.Request, a *report.Artifact) {
		res.Success(a)
	}))
	r.Get("/contexts", s.withArtifact(func(res *Response, _ *http.Request, a *report.Artifact) {
		res.Success(a.Contexts)
	}))
	r.Get("/messages", s.withArtifact(s.messages))
	r.Prefix("/components", func(r *Router) {
		r.Get("/", s.withArtifact(func(res *Response, _ *http.Request, a *report.Artifact) {
			res.Success(a.Components)
		}))
		r.Get("/{name}", s.withArtifact(s.component))
	})
}

// withArtifact answers 503 until an artifact has been published.
func (s *Server) withArtifact(h func(*Response, *http.Request, *report.Artifact)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := NewResponse(w)
		a := s.current()
		if a == nil {
			res.ServiceUnavailable(noBuild)
			return
		}
		h(res, r, a)
	}
}

// ── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	status := "waiting"
	if a := s.current(); a != nil {
		status = string(a.Status)
	}
	NewResponse(w).Success(map[string]string{"status": status})
}

func (s *Server) messages(res *Response, r *http.Request, a *report.Artifact) {
	sev := strings.ToUpper(r.URL.Query().Get("severity"))
	switch sev {
	case "":
		res.Success(a.Messages)
		return
	case "INFO", "WARNING", "ERROR":
	default:
		res.BadRequest("severity must be one of INFO, WARNING, ERROR.")
		return
	}
	out := make([]report.MessageEntry, 0, len(a.Messages))
	for _, m := range a.Messages {
		if m.Severity == sev {
			out = append(out, m)
		}
	}
	res.Success(out)
}

func (s *Server) component(res *Response, r *http.Request, a *report.Artifact) {
	name := Param(r, "name")
	c, ok := a.Component(name)
	if !ok {
		res.NotFound("Component [" + name + "] not found.")
		return
	}
	res.Success(c)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ListenAndServe serves the inspector on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("inspector stopped")
	return nil
}
