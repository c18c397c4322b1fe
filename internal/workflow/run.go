// Package workflow drives each incident through the fixed triage ->
// await-approval -> finalize program. Run state is durable: every step
// completion is recorded in the store before the run advances, so an
// engine restarted at any point resumes from the last recorded step
// without repeating completed side effects.
package workflow

import (
	"errors"
	"time"
)

// Step names the position of a run in the fixed program.
type Step string

const (
	// StepTriage invokes the actor's triage and records the analysis.
	StepTriage Step = "triage"

	// StepAwaitApproval suspends the run until the remediate signal or the
	// deadline, whichever comes first.
	StepAwaitApproval Step = "await_approval"

	// StepFinalize resolves the incident and appends the completion notice.
	StepFinalize Step = "finalize"

	// StepDone is terminal.
	StepDone Step = "done"
)

// EventRemediate is the only signal a run ever waits for.
const EventRemediate = "remediate"

// Await-approval outcomes recorded in StepResults.
const (
	ResultSignal  = "signal"
	ResultTimeout = "timeout"
)

var (
	// ErrUnknownInstance is returned when a signal targets an incident with no run.
	ErrUnknownInstance = errors.New("no workflow run for incident")

	// ErrNotAwaiting is returned when a signal arrives while the run is not
	// suspended in await-approval. Signals are never buffered.
	ErrNotAwaiting = errors.New("workflow run is not awaiting a signal")

	// ErrRunExists is returned by Start when the incident already has a run.
	ErrRunExists = errors.New("workflow run already exists")
)

// Run is the durable state of one incident's workflow.
type Run struct {
	IncidentID  string          `json:"incident_id"`
	CurrentStep Step            `json:"current_step"`
	StepResults map[Step]string `json:"step_results"`

	// AwaitEvent and Deadline are set only while CurrentStep is
	// StepAwaitApproval. The deadline is persisted so a restart re-arms
	// the identical wait instead of starting a fresh window.
	AwaitEvent string    `json:"await_event,omitempty"`
	Deadline   time.Time `json:"deadline,omitzero"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Run) completed(step Step) bool {
	_, ok := r.StepResults[step]
	return ok
}
