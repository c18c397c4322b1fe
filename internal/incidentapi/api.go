// Package incidentapi exposes the HTTP surface of the incident system:
// alert ingest, the dashboard list, per-incident history, chat, and the
// remediate signal.
package incidentapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/warden/internal/authmw"
	"github.com/linnemanlabs/warden/internal/incident"
	"github.com/linnemanlabs/warden/internal/registry"
	"github.com/linnemanlabs/warden/internal/workflow"
)

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	actors *incident.Manager
	engine *workflow.Engine
	reg    *registry.Registry
	apiKey string
}

// New creates a new API handler.
func New(logger log.Logger, actors *incident.Manager, engine *workflow.Engine, reg *registry.Registry, apiKey string) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if actors == nil || engine == nil || reg == nil {
		panic(xerrors.New("actors, engine, and registry are required"))
	}
	return &API{
		logger: logger,
		actors: actors,
		engine: engine,
		reg:    reg,
		apiKey: apiKey,
	}
}

// RegisterRoutes attaches API endpoints to the router. CORS headers are
// served on every response; OPTIONS preflights are answered without auth,
// everything else requires the shared API key.
func (a *API) RegisterRoutes(r chi.Router) {
	// group middleware does not cover unmatched paths, so the 404 carries
	// CORS headers explicitly
	r.NotFound(corsHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	})).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(corsHeaders)
		r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.APIKey(a.apiKey))
			r.Post("/webhook/ingest", a.handleIngest)
			r.Get("/api/incidents", a.handleListIncidents)
			r.Get("/api/history/{id}", a.handleHistory)
			r.Post("/api/chat/{id}", a.handleChat)
			r.Post("/api/remediate/{id}", a.handleRemediate)
		})
	})
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, x-api-key")
		next.ServeHTTP(w, r)
	})
}

func (a *API) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	entries, err := a.reg.List(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list incidents")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("warden.incident.id", id))

	summary, err := a.actors.Actor(id).Summary(r.Context())
	if err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		a.logger.Error(r.Context(), err, "failed to get summary", "incident_id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}

	span.SetAttributes(attribute.String("warden.incident.status", string(summary.Status)))
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
