/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package server exposes rubric management and document evaluation over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"chainguard.dev/rubriceval/agents/orchestrator"
	"chainguard.dev/rubriceval/rubric/store"
	"github.com/chainguard-dev/clog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server handles the HTTP API.
type Server struct {
	store store.Interface
	orch  *orchestrator.Orchestrator
	token string
}

// Option configures a Server.
type Option func(*Server)

// WithAuthToken requires "Authorization: Bearer <token>" on every /v1 route.
func WithAuthToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// New creates a Server.
func New(st store.Interface, orch *orchestrator.Orchestrator, opts ...Option) *Server {
	s := &Server{store: st, orch: orch}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router for the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)

	r.Get("/healthz", s.healthz)

	r.Route("/v1", func(r chi.Router) {
		if s.token != "" {
			r.Use(s.requireToken)
		}
		r.Get("/schema/rubric", s.rubricSchema)
		r.Get("/rubrics", s.listRubrics)
		r.Route("/rubrics/{name}", func(r chi.Router) {
			r.Get("/", s.getRubric)
			r.Put("/", s.putRubric)
			r.Delete("/", s.deleteRubric)
			r.Post("/duplicate", s.duplicateRubric)
			r.Post("/evaluate", s.evaluate)
		})
	})
	return r
}

// MetricsHandler serves Prometheus metrics.
func MetricsHandler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		clog.FromContext(ctx).With("addr", addr).Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := clog.FromContext(ctx).
			With("request_id", middleware.GetReqID(ctx)).
			With("method", r.Method).
			With("path", r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(clog.WithLogger(ctx, log)))
		log.With("status", ww.Status()).With("elapsed", time.Since(start)).Debug("Handled request")
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	want := []byte("Bearer " + s.token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeJSON(w, http.StatusUnauthorized, errResp{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type pinger interface {
	Ping(context.Context) error
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store error"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrExists):
		code = http.StatusConflict
	case errors.Is(err, errUnsupportedMedia):
		code = http.StatusUnsupportedMediaType
	case errors.Is(err, errBadRequest),
		errors.Is(err, store.ErrInvalidName),
		errors.Is(err, orchestrator.ErrInvalidInput):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		clog.FromContext(r.Context()).With("error", err.Error()).Error("Request failed")
	}
	writeJSON(w, code, errResp{Error: err.Error()})
}

var (
	errBadRequest       = errors.New("bad request")
	errUnsupportedMedia = errors.New("unsupported media type")
)

func acceptsNDJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), ndjson)
}

const ndjson = "application/x-ndjson"
