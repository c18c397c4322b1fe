// Package claude implements the incident.Provider interface on the
// Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/warden/internal/incident"
)

// ResponseTokens caps the length of a single completion.
const ResponseTokens = 4096

// Client calls Claude for triage and chat completions.
type Client struct {
	client anthropic.Client
	model  string
}

// New creates a new Claude client with the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Infer sends the conversation to Claude and returns the assistant text.
// History entries with the system role are folded into the system prompt,
// since the Messages API only accepts user and assistant turns.
func (c *Client) Infer(ctx context.Context, system string, messages []incident.Message) (string, error) {
	params, folded := toSDKMessages(messages)
	if len(params) == 0 {
		return "", errors.New("no user or assistant messages to send")
	}

	sys := system
	if folded != "" {
		if sys != "" {
			sys += "\n\n"
		}
		sys += folded
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: ResponseTokens,
		Messages:  params,
	}
	if sys != "" {
		req.System = []anthropic.TextBlockParam{{Text: sys}}
	}

	msg, err := c.client.Messages.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("claude: %w", err)
	}

	text := fromSDKResponse(msg)
	if text == "" {
		return "", errors.New("claude: response contained no text")
	}
	return text, nil
}

// toSDKMessages converts history to SDK message params, returning the
// concatenated content of any system-role entries separately.
func toSDKMessages(messages []incident.Message) ([]anthropic.MessageParam, string) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	var system []string

	for _, m := range messages {
		switch m.Role {
		case incident.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case incident.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case incident.RoleSystem:
			system = append(system, m.Content)
		}
	}

	return out, strings.Join(system, "\n")
}

// fromSDKResponse extracts the concatenated text blocks of a response.
func fromSDKResponse(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}
