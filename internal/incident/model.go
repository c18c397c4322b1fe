package incident

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Status tracks where an incident is in its lifecycle.
type Status string

const (
	// StatusInvestigating means the incident was ingested and triage is running or done.
	StatusInvestigating Status = "investigating"

	// StatusRemediating means the remediate signal was accepted and finalization is underway.
	StatusRemediating Status = "remediating"

	// StatusResolved means the incident is closed. Terminal.
	StatusResolved Status = "resolved"
)

// next returns the only status allowed to follow s.
func (s Status) next() (Status, bool) {
	switch s {
	case StatusInvestigating:
		return StatusRemediating, true
	case StatusRemediating:
		return StatusResolved, true
	default:
		return "", false
	}
}

// Message roles. History entries only ever carry one of these.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single entry in an incident's conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Alert is the payload that opened an incident. Type and Severity are the
// only fields this system interprets; Raw preserves the payload exactly as
// received for prompts and the registry projection.
type Alert struct {
	Type     string
	Severity string
	Raw      json.RawMessage
}

// ParseAlert validates and wraps an inbound alert payload.
func ParseAlert(raw []byte) (*Alert, error) {
	var fields struct {
		Type     string `json:"type"`
		Severity string `json:"severity"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	if fields.Type == "" {
		return nil, errors.New("alert type is required")
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return &Alert{
		Type:     fields.Type,
		Severity: fields.Severity,
		Raw:      cp,
	}, nil
}

// Summary is a read-only snapshot of an incident's history and status.
type Summary struct {
	History []Message `json:"history"`
	Status  Status    `json:"status"`
}
