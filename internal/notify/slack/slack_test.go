package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIncidentOpened_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.IncidentOpened(context.Background(), "01JN123", "Multiple Authentication Failures", "critical")
	if err != nil {
		t.Fatalf("IncidentOpened: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}
	// header, fields, context
	if len(blocks) != 3 {
		t.Fatalf("blocks count = %d, want 3", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "Multiple Authentication Failures") {
		t.Errorf("header text = %q, want alert type", headerText)
	}
	if !strings.Contains(headerText, "\U0001f534") {
		t.Error("header should contain red circle for critical severity")
	}

	footer := blocks[2].(map[string]any)
	elements := footer["elements"].([]any)
	footerText := elements[0].(map[string]any)["text"].(string)
	if !strings.Contains(footerText, "01JN123") {
		t.Errorf("footer = %q, want incident ID", footerText)
	}
}

func TestIncidentResolved_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.IncidentResolved(context.Background(), "01JN123"); err != nil {
		t.Fatalf("IncidentResolved: %v", err)
	}

	blocks := got["blocks"].([]any)
	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "Incident resolved") {
		t.Errorf("header text = %q", headerText)
	}
}

func TestNotifier_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.IncidentOpened(context.Background(), "id", "Alert", "low"); err != nil {
		t.Fatalf("IncidentOpened with empty URL should be no-op, got: %v", err)
	}
	if err := n.IncidentResolved(context.Background(), "id"); err != nil {
		t.Fatalf("IncidentResolved with empty URL should be no-op, got: %v", err)
	}
}

func TestNotifier_WebhookError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.IncidentResolved(context.Background(), "id")
	if err == nil {
		t.Fatal("expected error for non-2xx webhook response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("err = %v, want status code mentioned", err)
	}
}

func TestSeverityEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity string
		want     string
	}{
		{"critical", "\U0001f534"},
		{"CRITICAL", "\U0001f534"},
		{"warning", "\U0001f7e1"},
		{"low", "\U0001f7e2"},
		{"", "\U0001f7e2"},
	}

	for _, tt := range tests {
		if got := severityEmoji(tt.severity); got != tt.want {
			t.Errorf("severityEmoji(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}
