package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/warden/internal/incident"
	"github.com/linnemanlabs/warden/internal/store"
)

// runPartition is the store partition holding all run state, one key per
// incident ID.
const runPartition = "workflow"

const (
	// DefaultApprovalTimeout bounds the await-approval suspension.
	DefaultApprovalTimeout = 15 * time.Minute

	// DefaultRetryDelay spaces retries of a failed triage step.
	DefaultRetryDelay = 30 * time.Second
)

// Notice texts appended to incident history by workflow steps.
const (
	finalizeNotice = "🛡️ Remediation verified. Incident has been moved to RESOLVED status."
	timeoutNotice  = "⏱️ Approval window elapsed without a remediate signal. Incident requires manual review."
)

// Options tune engine timing. Zero values fall back to defaults.
type Options struct {
	ApprovalTimeout time.Duration
	RetryDelay      time.Duration
}

// Notifier receives best-effort incident lifecycle notifications.
type Notifier interface {
	IncidentOpened(ctx context.Context, incidentID, alertType, severity string) error
	IncidentResolved(ctx context.Context, incidentID string) error
}

// Engine executes workflow runs against durable state. One engine serves
// all incidents; runs on distinct incidents proceed independently while
// operations on the same run are serialized by a per-run lock.
type Engine struct {
	store    store.Store
	actors   *incident.Manager
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier
	timers   *timerService

	approvalTimeout time.Duration
	retryDelay      time.Duration

	mu       sync.Mutex
	runLocks map[string]*sync.Mutex
}

// NewEngine creates a workflow engine over the given store and actors.
// notifier may be nil.
func NewEngine(st store.Store, actors *incident.Manager, logger log.Logger, metrics *Metrics, notifier Notifier, opts Options) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	if opts.ApprovalTimeout <= 0 {
		opts.ApprovalTimeout = DefaultApprovalTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Engine{
		store:           st,
		actors:          actors,
		logger:          logger,
		metrics:         metrics,
		notifier:        notifier,
		timers:          newTimerService(),
		approvalTimeout: opts.ApprovalTimeout,
		retryDelay:      opts.RetryDelay,
		runLocks:        make(map[string]*sync.Mutex),
	}
}

// Start creates the durable run for an incident and begins executing it
// asynchronously. Fails with ErrRunExists if the incident already has a run.
func (e *Engine) Start(ctx context.Context, incidentID string) error {
	lock := e.runLock(incidentID)
	lock.Lock()
	defer lock.Unlock()

	_, ok, err := e.loadRun(ctx, incidentID)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%s: %w", incidentID, ErrRunExists)
	}

	now := time.Now().UTC()
	run := &Run{
		IncidentID:  incidentID,
		CurrentStep: StepTriage,
		StepResults: make(map[Step]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.saveRun(ctx, run); err != nil {
		return err
	}

	e.metrics.incStarted()
	e.logger.Info(ctx, "workflow started", "incident_id", incidentID)

	if e.notifier != nil {
		nctx := context.WithoutCancel(ctx)
		go func() {
			al, err := e.actors.Actor(incidentID).Alert(nctx)
			if err != nil {
				e.logger.Error(nctx, err, "load alert for notification", "incident_id", incidentID)
				return
			}
			if err := e.notifier.IncidentOpened(nctx, incidentID, al.Type, al.Severity); err != nil {
				e.logger.Error(nctx, err, "opened notification failed", "incident_id", incidentID)
			}
		}()
	}

	go e.advance(context.WithoutCancel(ctx), incidentID)
	return nil
}

// SendEvent delivers a named signal to a running workflow. The transition
// to finalize is recorded durably before this returns; the finalize step
// itself runs asynchronously. Fails with ErrUnknownInstance when no run
// exists and ErrNotAwaiting when the run is not suspended on that event.
func (e *Engine) SendEvent(ctx context.Context, incidentID, event string) error {
	// lock-free precheck: advance holds the run lock across the triage
	// LLM call, and a signal arriving during that call must reject
	// immediately rather than queue behind the step
	if err := e.checkAwaiting(ctx, incidentID, event); err != nil {
		return err
	}

	lock := e.runLock(incidentID)
	lock.Lock()
	defer lock.Unlock()

	run, ok, err := e.loadRun(ctx, incidentID)
	if err != nil {
		return err
	}
	if !ok {
		e.metrics.incSignal("unknown_instance")
		return fmt.Errorf("%s: %w", incidentID, ErrUnknownInstance)
	}
	if run.CurrentStep != StepAwaitApproval || run.AwaitEvent != event {
		e.metrics.incSignal("not_awaiting")
		return fmt.Errorf("%s (step %s, event %q): %w", incidentID, run.CurrentStep, event, ErrNotAwaiting)
	}

	run.StepResults[StepAwaitApproval] = ResultSignal
	run.CurrentStep = StepFinalize
	run.AwaitEvent = ""
	run.Deadline = time.Time{}
	if err := e.saveRun(ctx, run); err != nil {
		return err
	}

	e.timers.cancel(incidentID)
	e.metrics.incSignal("accepted")
	e.metrics.incStep(StepAwaitApproval, "signal")
	e.logger.Info(ctx, "workflow signal accepted", "incident_id", incidentID, "event", event)

	go e.advance(context.WithoutCancel(ctx), incidentID)
	return nil
}

// checkAwaiting reads run state without the run lock and reports whether
// a signal for event would currently be rejected.
func (e *Engine) checkAwaiting(ctx context.Context, incidentID, event string) error {
	run, ok, err := e.loadRun(ctx, incidentID)
	if err != nil {
		return err
	}
	if !ok {
		e.metrics.incSignal("unknown_instance")
		return fmt.Errorf("%s: %w", incidentID, ErrUnknownInstance)
	}
	if run.CurrentStep != StepAwaitApproval || run.AwaitEvent != event {
		e.metrics.incSignal("not_awaiting")
		return fmt.Errorf("%s (step %s, event %q): %w", incidentID, run.CurrentStep, event, ErrNotAwaiting)
	}
	return nil
}

// Run returns the durable state of the incident's run.
func (e *Engine) Run(ctx context.Context, incidentID string) (*Run, bool, error) {
	return e.loadRun(ctx, incidentID)
}

// Resume reloads every non-terminal run after a restart. Triage and
// finalize steps are re-driven (their completion records prevent duplicate
// effects); await-approval waits are re-armed from the persisted deadline,
// never a fresh window.
func (e *Engine) Resume(ctx context.Context) error {
	values, err := e.store.List(ctx, runPartition)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	var resumed int
	for _, raw := range values {
		var run Run
		if err := json.Unmarshal(raw, &run); err != nil {
			e.logger.Error(ctx, err, "skipping undecodable run")
			continue
		}
		if run.CurrentStep == StepDone {
			continue
		}
		resumed++

		switch run.CurrentStep {
		case StepAwaitApproval:
			e.armDeadline(ctx, run.IncidentID, run.Deadline)
			e.logger.Info(ctx, "re-armed await", "incident_id", run.IncidentID, "deadline", run.Deadline)
		default:
			go e.advance(context.WithoutCancel(ctx), run.IncidentID)
			e.logger.Info(ctx, "resumed run", "incident_id", run.IncidentID, "step", run.CurrentStep)
		}
	}

	e.logger.Info(ctx, "workflow resume complete", "resumed", resumed, "total", len(values))
	return nil
}

// Close stops all pending timers. Durable state is untouched; a later
// Resume picks up where the runs left off.
func (e *Engine) Close() {
	e.timers.stopAll()
}

// advance drives a run forward until it suspends or reaches done.
func (e *Engine) advance(ctx context.Context, incidentID string) {
	lock := e.runLock(incidentID)
	lock.Lock()
	defer lock.Unlock()

	L := e.logger.With("incident_id", incidentID)

	for {
		run, ok, err := e.loadRun(ctx, incidentID)
		if err != nil {
			L.Error(ctx, err, "load run")
			return
		}
		if !ok {
			L.Warn(ctx, "advance called with no run")
			return
		}

		switch run.CurrentStep {
		case StepTriage:
			if !e.stepTriage(ctx, L, run) {
				return
			}
		case StepAwaitApproval, StepDone:
			// suspended or terminal, nothing to drive
			return
		case StepFinalize:
			if !e.stepFinalize(ctx, L, run) {
				return
			}
			return
		default:
			L.Warn(ctx, "run in unknown step", "step", run.CurrentStep)
			return
		}
	}
}

// stepTriage executes the triage step if its completion is not already
// recorded, then arms the approval wait. Returns false when the run cannot
// advance (a retry timer has been set).
func (e *Engine) stepTriage(ctx context.Context, L log.Logger, run *Run) bool {
	if !run.completed(StepTriage) {
		analysis, err := e.actors.Actor(run.IncidentID).Triage(ctx)
		if err != nil {
			// step stays incomplete so a later attempt re-invokes triage
			L.Error(ctx, err, "triage step failed, will retry", "retry_in", e.retryDelay)
			e.metrics.incStep(StepTriage, "error")
			e.timers.arm(run.IncidentID, e.retryDelay, func() {
				e.advance(context.WithoutCancel(ctx), run.IncidentID)
			})
			return false
		}

		// record completion durably before any further effect so a crash
		// here cannot re-invoke the collaborator
		run.StepResults[StepTriage] = analysis
		if err := e.saveRun(ctx, run); err != nil {
			L.Error(ctx, err, "persist triage result")
			return false
		}
		e.metrics.incStep(StepTriage, "ok")
		L.Info(ctx, "triage step complete")
	}

	// surface the recorded analysis in the conversation; replays append
	// the identical durable text, which AppendUnlessLast dedupes
	if analysis := run.StepResults[StepTriage]; analysis != "" {
		if err := e.actors.Actor(run.IncidentID).AppendUnlessLast(ctx, incident.RoleAssistant, analysis); err != nil {
			L.Error(ctx, err, "append triage analysis")
		}
	}

	run.CurrentStep = StepAwaitApproval
	run.AwaitEvent = EventRemediate
	run.Deadline = time.Now().UTC().Add(e.approvalTimeout)
	if err := e.saveRun(ctx, run); err != nil {
		L.Error(ctx, err, "persist await state")
		return false
	}

	e.armDeadline(ctx, run.IncidentID, run.Deadline)
	L.Info(ctx, "awaiting approval", "event", EventRemediate, "deadline", run.Deadline)
	return true
}

// stepFinalize applies the terminal effects idempotently and records done.
func (e *Engine) stepFinalize(ctx context.Context, L log.Logger, run *Run) bool {
	if !run.completed(StepFinalize) {
		actor := e.actors.Actor(run.IncidentID)

		// ensure forward progression even if the gateway crashed between
		// accepting the signal and marking the incident remediating
		if err := actor.SetStatus(ctx, incident.StatusRemediating); err != nil {
			L.Info(ctx, "status already past remediating", "error", err.Error())
		}
		if err := actor.SetStatus(ctx, incident.StatusResolved); err != nil {
			L.Error(ctx, err, "set resolved")
			e.metrics.incStep(StepFinalize, "error")
			return false
		}
		if err := actor.AppendUnlessLast(ctx, incident.RoleAssistant, finalizeNotice); err != nil {
			L.Error(ctx, err, "append finalize notice")
			e.metrics.incStep(StepFinalize, "error")
			return false
		}
		run.StepResults[StepFinalize] = "complete"
		e.metrics.incStep(StepFinalize, "ok")
	}

	run.CurrentStep = StepDone
	if err := e.saveRun(ctx, run); err != nil {
		L.Error(ctx, err, "persist done state")
		return false
	}

	e.metrics.observeRunDone(time.Since(run.CreatedAt).Seconds())
	L.Info(ctx, "workflow done", "duration_s", time.Since(run.CreatedAt).Seconds())

	if e.notifier != nil {
		nctx := context.WithoutCancel(ctx)
		go func() {
			if err := e.notifier.IncidentResolved(nctx, run.IncidentID); err != nil {
				e.logger.Error(nctx, err, "resolved notification failed", "incident_id", run.IncidentID)
			}
		}()
	}
	return true
}

// armDeadline schedules the timeout for a persisted deadline. A deadline
// already in the past fires immediately.
func (e *Engine) armDeadline(ctx context.Context, incidentID string, deadline time.Time) {
	e.timers.arm(incidentID, time.Until(deadline), func() {
		e.onDeadline(context.WithoutCancel(ctx), incidentID)
	})
}

// onDeadline applies the timeout policy: the await step records "timeout",
// a notice is appended to the incident, and the run terminates without
// resolving the incident.
func (e *Engine) onDeadline(ctx context.Context, incidentID string) {
	lock := e.runLock(incidentID)
	lock.Lock()
	defer lock.Unlock()

	L := e.logger.With("incident_id", incidentID)

	run, ok, err := e.loadRun(ctx, incidentID)
	if err != nil {
		L.Error(ctx, err, "load run at deadline")
		return
	}
	if !ok || run.CurrentStep != StepAwaitApproval {
		// signal won the race, nothing to do
		return
	}

	if err := e.actors.Actor(incidentID).AppendUnlessLast(ctx, incident.RoleSystem, timeoutNotice); err != nil {
		L.Error(ctx, err, "append timeout notice")
	}

	run.StepResults[StepAwaitApproval] = ResultTimeout
	run.CurrentStep = StepDone
	run.AwaitEvent = ""
	run.Deadline = time.Time{}
	if err := e.saveRun(ctx, run); err != nil {
		L.Error(ctx, err, "persist timeout state")
		return
	}

	e.metrics.incStep(StepAwaitApproval, "timeout")
	e.metrics.incTimeout()
	e.metrics.observeRunDone(time.Since(run.CreatedAt).Seconds())
	L.Warn(ctx, "approval window elapsed, run terminated")
}

func (e *Engine) runLock(incidentID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.runLocks[incidentID]
	if !ok {
		lock = &sync.Mutex{}
		e.runLocks[incidentID] = lock
	}
	return lock
}

func (e *Engine) loadRun(ctx context.Context, incidentID string) (*Run, bool, error) {
	raw, ok, err := e.store.Get(ctx, runPartition, incidentID)
	if err != nil {
		return nil, false, fmt.Errorf("load run %s: %w", incidentID, err)
	}
	if !ok {
		return nil, false, nil
	}
	var run Run
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, false, fmt.Errorf("decode run %s: %w", incidentID, err)
	}
	if run.StepResults == nil {
		run.StepResults = make(map[Step]string)
	}
	return &run, true, nil
}

func (e *Engine) saveRun(ctx context.Context, run *Run) error {
	run.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.IncidentID, err)
	}
	if err := e.store.Put(ctx, runPartition, run.IncidentID, raw); err != nil {
		return fmt.Errorf("save run %s: %w", run.IncidentID, err)
	}
	return nil
}
