// Package server provides the HTTP transport for serving mocked responses.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Semior001/mockpath/pkg/discovery"
	"github.com/Semior001/mockpath/pkg/server/middleware"
	"github.com/cappuccinotm/slogx"
)

//go:generate moq -out mock_matcher.go -fmt goimports . Matcher

// Matcher matches the request to a mocked reply.
type Matcher interface {
	Resolve(method, path string, query url.Values, body []byte) (discovery.Resolution, error)
}

// Server is an HTTP server serving mocked responses.
type Server struct {
	version string
	debug   bool
	health  bool
	matcher Matcher

	http *http.Server
}

// NewServer creates a new server.
func NewServer(m Matcher, opts ...Option) *Server {
	s := &Server{matcher: m}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Listen starts the server on the given address.
// Blocking call.
func (s *Server) Listen(addr string) (err error) {
	slog.Info("starting http server", slog.String("addr", addr))
	defer slog.Warn("http server stopped", slogx.Error(err))

	handler := middleware.Wrap(http.HandlerFunc(s.handle),
		middleware.Recoverer("unexpected failure"),
		middleware.AppInfo("mockpath", "Semior001", s.version),
		middleware.Maybe(s.health, middleware.Health("/health")),
		middleware.Log(s.debug),
	)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err = s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

// Close stops the server.
func (s *Server) Close() {
	if s.http == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.Warn("failed to shut down http server", slogx.Error(err))
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.WarnContext(ctx, "failed to read request body", slogx.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody("Internal Server Error"))
		return
	}

	res, err := s.matcher.Resolve(r.Method, normalizePath(r.URL.Path), r.URL.Query(), body)
	switch {
	case errors.Is(err, discovery.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errBody("Not Found"))
	case errors.Is(err, discovery.ErrMethodNotAllowed):
		writeJSON(w, http.StatusMethodNotAllowed, errBody("Method Not Allowed"))
	case err != nil:
		slog.ErrorContext(ctx, "failed to resolve request", slogx.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody("Internal Server Error"))
	default:
		writeJSON(w, res.Status, res.Body)
	}
}

// normalizePath strips the trailing slash, so that "/users/" and "/users"
// address the same endpoint.
func normalizePath(p string) string {
	if p = strings.TrimRight(p, "/"); p == "" {
		p = "/"
	}
	return p
}

func errBody(msg string) any { return map[string]string{"error": msg} }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")

	if body == nil {
		w.WriteHeader(status)
		return
	}

	bts, err := json.Marshal(body)
	if err != nil {
		slog.Warn("failed to marshal response body", slogx.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(bts)
}
