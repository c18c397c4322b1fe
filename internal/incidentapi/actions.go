package incidentapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/warden/internal/incident"
	"github.com/linnemanlabs/warden/internal/workflow"
)

const remediateAcceptedNotice = "⏳ Signal received. Finalizing incident..."

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("warden.incident.id", id))

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "message is required"})
		return
	}

	reply, err := a.actors.Actor(id).Chat(r.Context(), req.Message)
	switch {
	case errors.Is(err, incident.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	case errors.Is(err, incident.ErrUpstreamUnavailable):
		a.logger.Error(r.Context(), err, "chat upstream failed", "incident_id", id)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "assistant unavailable, retry shortly"})
		return
	case err != nil:
		a.logger.Error(r.Context(), err, "chat failed", "incident_id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"response": reply})
}

func (a *API) handleRemediate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("warden.incident.id", id))

	// the signal must be accepted before any actor mutation so a rejected
	// signal leaves the incident untouched
	err := a.engine.SendEvent(r.Context(), id, workflow.EventRemediate)
	switch {
	case errors.Is(err, workflow.ErrUnknownInstance), errors.Is(err, workflow.ErrNotAwaiting):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"error":   "The LLM is still performing triage. Please wait a few seconds.",
		})
		return
	case err != nil:
		a.logger.Error(r.Context(), err, "signal delivery failed", "incident_id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "signal delivery failed, retry",
		})
		return
	}

	actor := a.actors.Actor(id)

	// the finalize step may already have resolved the incident; losing
	// that race is fine, the signal was accepted
	if err := actor.SetStatus(r.Context(), incident.StatusRemediating); err != nil && !errors.Is(err, incident.ErrInvalidTransition) {
		a.logger.Error(r.Context(), err, "failed to mark remediating", "incident_id", id)
	}
	if err := actor.AddMessage(r.Context(), incident.RoleAssistant, remediateAcceptedNotice); err != nil {
		a.logger.Error(r.Context(), err, "failed to append remediate notice", "incident_id", id)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
