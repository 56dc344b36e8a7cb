// Package debug serves a local HTTP surface for inspecting a running store.
package debug

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/introspection"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/keel/pkg/boot"
	"github.com/aretw0/keel/pkg/core"
)

// Lifecycle is the part of the controller the server reads.
type Lifecycle interface {
	Phase() boot.Phase
	Store() *core.Store
	Dispatch(action core.Action) error
}

// Component is anything exposing its internal state.
type Component interface {
	introspection.Introspectable
	introspection.Component
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer sets where /metrics reads from. Default prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithDevtools mounts the websocket stream on /devtools.
func WithDevtools(d *Devtools) Option {
	return func(s *Server) {
		s.devtools = d
	}
}

// WithComponents adds components to /introspect.
func WithComponents(components ...Component) Option {
	return func(s *Server) {
		s.components = append(s.components, components...)
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server is the debug HTTP handler.
type Server struct {
	lifecycle  Lifecycle
	gatherer   prometheus.Gatherer
	devtools   *Devtools
	components []Component
	logger     *slog.Logger
	router     chi.Router
}

// NewServer builds the router.
func NewServer(lc Lifecycle, opts ...Option) *Server {
	s := &Server{
		lifecycle: lc,
		gatherer:  prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleState)
	r.Get("/state/{key}", s.handleState)
	r.Post("/actions", s.handleDispatch)
	r.Get("/introspect", s.handleIntrospect)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	if s.devtools != nil {
		r.Get("/devtools", s.devtools.ServeHTTP)
	}
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"phase": s.lifecycle.Phase().String()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	store := s.lifecycle.Store()
	if store == nil {
		s.writeError(w, http.StatusServiceUnavailable, core.ErrNotMounted)
		return
	}
	state := store.GetState()

	key := chi.URLParam(r, "key")
	if key == "" {
		s.writeJSON(w, http.StatusOK, state)
		return
	}
	value, ok := state[key]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown key", "key": key})
		return
	}
	s.writeJSON(w, http.StatusOK, value)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var body FrameAction
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.Type == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing action type"})
		return
	}

	err := s.lifecycle.Dispatch(core.Action{Type: body.Type, Payload: body.Payload, Meta: body.Meta})
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, core.ErrNotMounted):
		s.writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.writeError(w, http.StatusUnprocessableEntity, err)
	}
}

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]any, len(s.components))
	for _, c := range s.components {
		out[c.ComponentType()] = c.State()
	}
	s.writeJSON(w, http.StatusOK, out)
}
