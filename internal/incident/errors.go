package incident

import "errors"

var (
	// ErrAlreadyExists is returned by Create when the incident ID already has state.
	ErrAlreadyExists = errors.New("incident already exists")

	// ErrNotFound is returned for operations on an incident that was never created.
	ErrNotFound = errors.New("incident not found")

	// ErrInvalidTransition is returned by SetStatus for any edge other than
	// investigating -> remediating -> resolved.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUpstreamUnavailable wraps collaborator (LLM) failures. Retryable:
	// the caller's step must not be recorded as complete.
	ErrUpstreamUnavailable = errors.New("llm upstream unavailable")
)
