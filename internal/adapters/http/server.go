// Package http exposes a running console over HTTP: state snapshots, action
// dispatch, a server-sent event stream of applied actions and metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/transferdesk"
	"github.com/aretw0/transferdesk/internal/logging"
	"github.com/aretw0/transferdesk/pkg/bus"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Console is the part of transferdesk.Console the server drives.
type Console interface {
	State() store.State
	Dispatch(ctx context.Context, a domain.Action) (domain.Action, error)
	Subscribe(buffer int) (<-chan store.Change, func())
}

// Server serves one console.
type Server struct {
	console Console
	metrics http.Handler
	version string
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the console.
func NewHandler(console Console, opts ...Option) http.Handler {
	s := &Server{console: console, version: "dev", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/state", s.GetState)
	r.Get("/state/{entity}", s.GetEntities)
	r.Post("/dispatch", s.Dispatch)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "transferdesk-http",
		"version": s.version,
	})
}

// redact drops session secrets from a snapshot before it leaves the process.
func redact(st store.State) store.State {
	st.Session.AuthToken = ""
	st.Session.TFAToken = ""
	return st
}

// GetState handles GET /state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, redact(s.console.State()))
}

// GetEntities handles GET /state/{entity}: the table's records in id order.
func (s *Server) GetEntities(w http.ResponseWriter, r *http.Request) {
	entity := domain.EntityType(chi.URLParam(r, "entity"))
	table := s.console.State().Table(entity)
	if table == nil {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown entity %q", entity)})
		return
	}
	records := make([]domain.Record, 0, len(table))
	for _, id := range store.SortedIDs(table) {
		records = append(records, table[id])
	}
	s.writeJSON(w, http.StatusOK, records)
}

type dispatchRequest struct {
	Type    domain.ActionType `json:"type"`
	Payload any               `json:"payload,omitempty"`
}

type dispatchResponse struct {
	ID   string            `json:"id"`
	Seq  uint64            `json:"seq"`
	Type domain.ActionType `json:"type"`
}

// Dispatch handles POST /dispatch. The flow runs in the background; follow it
// on /events or poll /state.
func (s *Server) Dispatch(w http.ResponseWriter, r *http.Request) {
	var body dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		s.logger.Warn("dispatch: invalid request body", "error", err)
		return
	}
	if store.Known(body.Type) && !body.Type.HostDispatchable() {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("%v: %s", domain.ErrNotTrigger, body.Type)})
		return
	}

	a, err := s.console.Dispatch(r.Context(), domain.NewAction(body.Type, body.Payload))
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			s.writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ve.Message, Field: ve.Field})
		case errors.Is(err, domain.ErrUnknownAction), errors.Is(err, domain.ErrNotTrigger):
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		case errors.Is(err, transferdesk.ErrNotStarted), errors.Is(err, bus.ErrClosed):
			s.writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		default:
			s.logger.Error("dispatch failed", "type", body.Type, "error", err)
			s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		}
		return
	}

	s.writeJSON(w, http.StatusAccepted, dispatchResponse{ID: a.ID, Seq: a.Seq, Type: a.Type})
}

// SubscribeEvents handles GET /events (SSE). Payloads are not streamed since
// they may carry credentials.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	changes, cancel := s.console.Subscribe(64)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			data, err := json.Marshal(dispatchResponse{ID: c.Action.ID, Seq: c.Seq, Type: c.Action.Type})
			if err != nil {
				s.logger.Error("event encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: action\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
