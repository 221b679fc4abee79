package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves in-memory REST resources.
type Server struct {
	port         int
	delay        time.Duration
	verbose      bool
	deleteStatus int
	logger       *slog.Logger
	resources    []Resource
	collections  map[string]*collection
	registry     *prometheus.Registry
	metrics      *serverMetrics
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithVerbose logs every request at info level.
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// WithResource adds a resource. Without any, the server serves Categories.
func WithResource(r Resource) Option {
	return func(s *Server) {
		s.resources = append(s.resources, r)
	}
}

// WithDeleteStatus changes the status of a successful delete, 204 by default.
// A 200 answers {"success": true}.
func WithDeleteStatus(code int) Option {
	return func(s *Server) {
		s.deleteStatus = code
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new mock server
func NewServer(opts ...Option) *Server {
	s := &Server{
		port:         3000,
		deleteStatus: http.StatusNoContent,
		logger:       slog.Default(),
		collections:  make(map[string]*collection),
		registry:     prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.resources) == 0 {
		s.resources = []Resource{Categories()}
	}
	for _, r := range s.resources {
		s.collections[r.Name] = newCollection(r)
	}
	s.metrics = newServerMetrics(s.registry)
	return s
}

// Resources returns the served resources in registration order.
func (s *Server) Resources() []Resource {
	return s.resources
}

// Reset empties every collection and restarts id numbering.
func (s *Server) Reset() {
	for _, c := range s.collections {
		c.reset()
	}
}

// Handler builds the router. It is safe to mount in httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router()
}

// Route is one method and path pattern served for a resource.
type Route struct {
	Method  string
	Pattern string
}

// Routes lists the resource routes sorted by pattern then method. The
// /metrics endpoint is not included.
func (s *Server) Routes() []Route {
	var routes []Route
	_ = chi.Walk(s.router(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.ReplaceAll(route, "/*", "")
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		if route == "/metrics" {
			return nil
		}
		routes = append(routes, Route{Method: method, Pattern: route})
		return nil
	})
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(s.logRequests)
	if s.delay > 0 {
		r.Use(s.delayResponses)
	}

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	for _, res := range s.resources {
		c := s.collections[res.Name]
		r.Route("/"+res.Name, func(r chi.Router) {
			r.Get("/", s.list(c))
			r.Post("/", s.create(c))
			r.Get("/search", s.search(c))
			if res.ParentField != "" {
				r.Get("/tree", s.tree(c))
				r.Get("/tree/{id}", s.treeOf(c))
			}
			r.Get("/{id}", s.get(c))
			r.Put("/{id}", s.update(c, false))
			r.Patch("/{id}", s.update(c, true))
			r.Delete("/{id}", s.remove(c))
		})
	}

	return r
}

// Start starts the server and blocks.
func (s *Server) Start() error {
	return s.StartWithContext(context.Background())
}

// StartWithContext starts the server and shuts it down gracefully when ctx
// is done.
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("mock server shutdown", "error", err)
		}
	}()

	s.logger.Info("mock server starting", "url", fmt.Sprintf("http://localhost:%d", s.port))
	for _, r := range s.resources {
		s.logger.Info("serving resource", "path", "/"+r.Name, "unique", r.Unique, "tree", r.ParentField != "")
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) list(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.list())
	}
}

func (s *Server) create(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, ok := decodeItem(w, r)
		if !ok {
			return
		}
		item, err := c.create(fields)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

func (s *Server) get(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			notFound(w)
			return
		}
		item, ok := c.get(id)
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (s *Server) update(c *collection, merge bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			notFound(w)
			return
		}
		fields, ok := decodeItem(w, r)
		if !ok {
			return
		}
		item, found, err := c.update(id, fields, merge)
		switch {
		case !found:
			notFound(w)
		case err != nil:
			writeError(w, err)
		default:
			writeJSON(w, http.StatusOK, item)
		}
	}
}

func (s *Server) remove(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok || !c.delete(id) {
			notFound(w)
			return
		}
		if s.deleteStatus == http.StatusNoContent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, s.deleteStatus, map[string]any{"success": true})
	}
}

func (s *Server) search(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.search(r.URL.Query().Get("query")))
	}
}

func (s *Server) tree(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.tree(nil))
	}
}

func (s *Server) treeOf(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			notFound(w)
			return
		}
		node, ok := c.treeOf(id)
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, node)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if s.verbose {
			level = slog.LevelInfo
		}
		s.logger.Log(r.Context(), level, "mock request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) delayResponses(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeItem(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "request body must be a JSON object"})
		return nil, false
	}
	delete(fields, "id")
	return fields, true
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Requested item not found"})
}

func writeError(w http.ResponseWriter, err error) {
	var (
		conflict   *ConflictError
		validation *ValidationError
	)
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": conflict.Error()})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": validation.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
