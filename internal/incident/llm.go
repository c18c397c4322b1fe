package incident

import "context"

// Provider is the interface for any LLM backend. The conversation is
// supplied in full on every call; the provider is a black box that may be
// slow or fail.
type Provider interface {
	Infer(ctx context.Context, system string, messages []Message) (string, error)
}
