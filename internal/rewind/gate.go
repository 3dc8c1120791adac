package rewind

import "math"

// GatePhase is the recall gate's position in its request lifecycle.
type GatePhase int

const (
	GateIdle GatePhase = iota
	GateValidating
	GateAuthorized
	GateExecuting
)

// String returns a human-readable phase name.
func (p GatePhase) String() string {
	switch p {
	case GateIdle:
		return "idle"
	case GateValidating:
		return "validating"
	case GateAuthorized:
		return "authorized"
	case GateExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// RecallOutcome classifies how a recall request ended. Rejections are
// expected conditions, not errors; callers use them to tell "wait" from
// "move first".
type RecallOutcome int

const (
	RecallExecuted        RecallOutcome = iota // position and vitality both applied
	RecallPartial                              // state mutated but post-condition check failed
	RecallRejectedCooldown
	RecallRejectedNoHistory
	RecallRejectedAuthority
	RecallAbortedInvalid // candidate failed re-validation, nothing mutated
)

// String returns a bounded label suitable for metrics.
func (o RecallOutcome) String() string {
	switch o {
	case RecallExecuted:
		return "executed"
	case RecallPartial:
		return "partial"
	case RecallRejectedCooldown:
		return "rejected_cooldown"
	case RecallRejectedNoHistory:
		return "rejected_no_history"
	case RecallRejectedAuthority:
		return "rejected_authority"
	case RecallAbortedInvalid:
		return "aborted_invalid"
	default:
		return "unknown"
	}
}

// Rejected reports whether the outcome left entity state untouched.
func (o RecallOutcome) Rejected() bool {
	return o != RecallExecuted && o != RecallPartial
}

// RecallGate is the per-entity state machine enforcing cooldown between
// recall requests and exposing the post-recall attribution window.
//
// Cooldown is consumed optimistically: the request timestamp is committed on
// entering Executing, before the outcome is known, so a burst of requests
// cannot slip through while one is in flight.
type RecallGate struct {
	phase             GatePhase
	lastRequestTime   float64
	lastExecutionTime float64
}

// NewRecallGate returns a gate with no request or execution on record, so
// the first request always passes the cooldown guard.
func NewRecallGate() *RecallGate {
	return &RecallGate{
		phase:             GateIdle,
		lastRequestTime:   math.Inf(-1),
		lastExecutionTime: math.Inf(-1),
	}
}

// Phase returns the current lifecycle phase.
func (g *RecallGate) Phase() GatePhase {
	return g.phase
}

// BeginRequest moves Idle to Validating. Returns false while another request
// is still in flight; that request is dropped, not queued.
func (g *RecallGate) BeginRequest() bool {
	if g.phase != GateIdle {
		return false
	}
	g.phase = GateValidating
	return true
}

// Authorize applies the Validating guards in order: requester authority,
// cooldown, candidate availability. On the first failing guard the gate
// falls back to Idle with no side effects and reports the rejection cause.
func (g *RecallGate) Authorize(now, cooldown float64, isOwner, hasCandidate bool) (bool, RecallOutcome) {
	if g.phase != GateValidating {
		return false, RecallRejectedCooldown
	}
	if !isOwner {
		g.phase = GateIdle
		return false, RecallRejectedAuthority
	}
	if now-g.lastRequestTime < cooldown {
		g.phase = GateIdle
		return false, RecallRejectedCooldown
	}
	if !hasCandidate {
		g.phase = GateIdle
		return false, RecallRejectedNoHistory
	}
	g.phase = GateAuthorized
	return true, RecallExecuted
}

// BeginExecution moves Authorized to Executing unconditionally and commits
// the cooldown timestamp.
func (g *RecallGate) BeginExecution(now float64) {
	if g.phase != GateAuthorized {
		return
	}
	g.lastRequestTime = now
	g.phase = GateExecuting
}

// FinishExecution returns the gate to Idle. When the execution mutated
// entity state the attribution window opens from now.
func (g *RecallGate) FinishExecution(now float64, stateMutated bool) {
	if g.phase == GateExecuting && stateMutated {
		g.lastExecutionTime = now
	}
	g.phase = GateIdle
}

// Abort returns to Idle from any phase with no side effects.
func (g *RecallGate) Abort() {
	g.phase = GateIdle
}

// IsInAttributionWindow reports whether a recent recall execution should
// still classify this entity's death as recall-related.
func (g *RecallGate) IsInAttributionWindow(now, killWindow float64) bool {
	return now-g.lastExecutionTime <= killWindow
}

// LastExecutionTime returns when the last successful execution committed,
// -Inf if none has.
func (g *RecallGate) LastExecutionTime() float64 {
	return g.lastExecutionTime
}
