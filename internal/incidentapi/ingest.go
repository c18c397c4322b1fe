package incidentapi

import (
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/warden/internal/incident"
)

func (a *API) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}

	alert, err := incident.ParseAlert(body)
	if err != nil {
		a.logger.Info(r.Context(), "rejected alert payload", "error", err.Error())
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}

	id := ulid.Make().String()

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("warden.incident.id", id),
		attribute.String("warden.alert.type", alert.Type),
	)

	// registry first: the dashboard list may briefly lead actor state,
	// which the eventual-consistency contract allows
	if err := a.reg.Register(r.Context(), id, alert.Type, alert.Severity, time.Now()); err != nil {
		a.logger.Error(r.Context(), err, "failed to register incident", "incident_id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}

	if err := a.actors.Actor(id).Create(r.Context(), alert); err != nil {
		a.logger.Error(r.Context(), err, "failed to create incident", "incident_id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}

	if err := a.engine.Start(r.Context(), id); err != nil {
		a.logger.Error(r.Context(), err, "failed to start workflow", "incident_id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}

	a.logger.Info(r.Context(), "incident ingested",
		"incident_id", id,
		"alert_type", alert.Type,
		"severity", alert.Severity,
	)

	writeJSON(w, http.StatusOK, map[string]any{"incidentId": id})
}
