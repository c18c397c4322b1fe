package incident

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/warden/internal/store"
)

// store keys within an incident's partition.
const (
	keyAlert   = "alert"
	keyStatus  = "status"
	keyHistory = "history"
)

// Actor is the exclusive owner of one incident's state. All mutating
// operations are serialized by opMu; stateMu guards the durable reads and
// writes so Summary can snapshot without waiting behind a slow LLM call.
type Actor struct {
	id       string
	store    store.Store
	provider Provider
	logger   log.Logger
	metrics  *Metrics

	opMu    sync.Mutex // whole-operation order, held across LLM calls
	stateMu sync.Mutex // store access, never held across network calls
}

func (a *Actor) partition() string {
	return "incident:" + a.id
}

// ID returns the incident ID this actor owns.
func (a *Actor) ID() string {
	return a.id
}

// Create initializes the incident with the given alert, status
// investigating, and a seed history message. Fails with ErrAlreadyExists
// if the ID already has state.
func (a *Actor) Create(ctx context.Context, alert *Alert) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	if alert == nil || alert.Type == "" {
		return errors.New("alert type is required")
	}

	_, exists, err := a.store.Get(ctx, a.partition(), keyAlert)
	if err != nil {
		return fmt.Errorf("check existing: %w", err)
	}
	if exists {
		return fmt.Errorf("%s: %w", a.id, ErrAlreadyExists)
	}

	if err := a.store.Put(ctx, a.partition(), keyAlert, alert.Raw); err != nil {
		return fmt.Errorf("put alert: %w", err)
	}
	if err := a.putStatus(ctx, StatusInvestigating); err != nil {
		return err
	}
	seed := []Message{{
		Role:    RoleAssistant,
		Content: fmt.Sprintf("🚨 SIEM alert received: %s. I am ready to investigate.", alert.Type),
	}}
	if err := a.putHistory(ctx, seed); err != nil {
		return err
	}

	a.metrics.incCreated()
	a.logger.Info(ctx, "incident created", "incident_id", a.id, "alert_type", alert.Type, "severity", alert.Severity)
	return nil
}

// Triage builds the triage prompt from the stored alert and asks the
// collaborator for an analysis. It appends nothing to history; the caller
// records the returned text. Fails with ErrUpstreamUnavailable on
// collaborator error.
func (a *Actor) Triage(ctx context.Context) (string, error) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	raw, err := a.loadAlert(ctx)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, err := a.provider.Infer(ctx, "", []Message{{
		Role:    RoleUser,
		Content: buildTriagePrompt(raw),
	}})
	a.metrics.observeLLMCall(time.Since(start).Seconds(), err)
	if err != nil {
		return "", fmt.Errorf("triage %s: %w: %v", a.id, ErrUpstreamUnavailable, err)
	}
	return text, nil
}

// Chat appends the user message, asks the collaborator with the incident
// preamble plus full history, appends the reply, and returns it. The user
// message is appended durably before the collaborator call and is NOT
// rolled back on failure; a retried call may duplicate the user turn.
func (a *Actor) Chat(ctx context.Context, userMessage string) (string, error) {
	if userMessage == "" {
		return "", errors.New("message is required")
	}

	a.opMu.Lock()
	defer a.opMu.Unlock()

	raw, err := a.loadAlert(ctx)
	if err != nil {
		return "", err
	}

	a.stateMu.Lock()
	history, err := a.loadHistory(ctx)
	if err != nil {
		a.stateMu.Unlock()
		return "", err
	}
	history = append(history, Message{Role: RoleUser, Content: userMessage})
	if err := a.putHistory(ctx, history); err != nil {
		a.stateMu.Unlock()
		return "", err
	}
	a.stateMu.Unlock()

	start := time.Now()
	reply, err := a.provider.Infer(ctx, buildChatSystemPrompt(raw), history)
	a.metrics.observeLLMCall(time.Since(start).Seconds(), err)
	if err != nil {
		return "", fmt.Errorf("chat %s: %w: %v", a.id, ErrUpstreamUnavailable, err)
	}

	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	history, err = a.loadHistory(ctx)
	if err != nil {
		return "", err
	}
	history = append(history, Message{Role: RoleAssistant, Content: reply})
	if err := a.putHistory(ctx, history); err != nil {
		return "", err
	}
	return reply, nil
}

// AddMessage appends a system-authored notice to history. Content must be
// non-empty; no other validation.
func (a *Actor) AddMessage(ctx context.Context, role, content string) error {
	if content == "" {
		return errors.New("content is required")
	}

	a.opMu.Lock()
	defer a.opMu.Unlock()
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	history, err := a.loadHistory(ctx)
	if err != nil {
		return err
	}
	history = append(history, Message{Role: role, Content: content})
	return a.putHistory(ctx, history)
}

// AppendUnlessLast appends the message only if it is not already the last
// history entry. Used by the workflow finalize step so a crash-replay does
// not duplicate the completion notice.
func (a *Actor) AppendUnlessLast(ctx context.Context, role, content string) error {
	if content == "" {
		return errors.New("content is required")
	}

	a.opMu.Lock()
	defer a.opMu.Unlock()
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	history, err := a.loadHistory(ctx)
	if err != nil {
		return err
	}
	if n := len(history); n > 0 && history[n-1].Role == role && history[n-1].Content == content {
		return nil
	}
	history = append(history, Message{Role: role, Content: content})
	return a.putHistory(ctx, history)
}

// SetStatus advances the incident status. Setting the current status again
// is a no-op; any edge other than the forward progression fails with
// ErrInvalidTransition.
func (a *Actor) SetStatus(ctx context.Context, to Status) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	current, err := a.loadStatus(ctx)
	if err != nil {
		return err
	}
	if current == to {
		return nil
	}
	if next, ok := current.next(); !ok || next != to {
		return fmt.Errorf("%s -> %s: %w", current, to, ErrInvalidTransition)
	}
	if err := a.putStatus(ctx, to); err != nil {
		return err
	}
	a.metrics.incTransition(to)
	a.logger.Info(ctx, "incident status changed", "incident_id", a.id, "from", current, "to", to)
	return nil
}

// Summary returns a snapshot of history and status. Fails with ErrNotFound
// if the incident was never created.
func (a *Actor) Summary(ctx context.Context) (*Summary, error) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	_, exists, err := a.store.Get(ctx, a.partition(), keyAlert)
	if err != nil {
		return nil, fmt.Errorf("check existing: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", a.id, ErrNotFound)
	}

	history, err := a.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	status, err := a.loadStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &Summary{History: history, Status: status}, nil
}

// Alert returns the alert the incident was created with.
func (a *Actor) Alert(ctx context.Context) (*Alert, error) {
	raw, err := a.loadAlert(ctx)
	if err != nil {
		return nil, err
	}
	return ParseAlert(raw)
}

// Exists reports whether the incident has state.
func (a *Actor) Exists(ctx context.Context) (bool, error) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	_, exists, err := a.store.Get(ctx, a.partition(), keyAlert)
	return exists, err
}

func (a *Actor) loadAlert(ctx context.Context) (json.RawMessage, error) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	raw, ok, err := a.store.Get(ctx, a.partition(), keyAlert)
	if err != nil {
		return nil, fmt.Errorf("load alert: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", a.id, ErrNotFound)
	}
	return raw, nil
}

func (a *Actor) loadHistory(ctx context.Context) ([]Message, error) {
	raw, ok, err := a.store.Get(ctx, a.partition(), keyHistory)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var history []Message
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return history, nil
}

func (a *Actor) putHistory(ctx context.Context, history []Message) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := a.store.Put(ctx, a.partition(), keyHistory, raw); err != nil {
		return fmt.Errorf("put history: %w", err)
	}
	return nil
}

func (a *Actor) loadStatus(ctx context.Context) (Status, error) {
	raw, ok, err := a.store.Get(ctx, a.partition(), keyStatus)
	if err != nil {
		return "", fmt.Errorf("load status: %w", err)
	}
	if !ok {
		return StatusInvestigating, nil
	}
	var s Status
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	return s, nil
}

func (a *Actor) putStatus(ctx context.Context, s Status) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := a.store.Put(ctx, a.partition(), keyStatus, raw); err != nil {
		return fmt.Errorf("put status: %w", err)
	}
	return nil
}

// buildTriagePrompt constructs the one-shot triage request embedding the
// stored alert payload.
func buildTriagePrompt(alert json.RawMessage) string {
	return fmt.Sprintf(`You are a senior SOC analyst. Your job is to analyze the following JSON security alert and provide a summary of what is happening and the likely root cause and affected resources. In the end, provide a step-by-step remediation guide to solve the problem. Follow these rules:

Rules:
- If data is missing, say what additional information is needed instead of guessing.
- Be concise and actionable.

Alert: %s`, string(alert))
}

// buildChatSystemPrompt constructs the system preamble for conversational
// investigation of the incident.
func buildChatSystemPrompt(alert json.RawMessage) string {
	return fmt.Sprintf(`You are a SOC analyst, acting as a senior security analyst investigating the current incident: %s
Help the user investigate, contain, and resolve this specific alert.`, string(alert))
}
