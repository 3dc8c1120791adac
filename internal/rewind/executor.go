package rewind

import "math"

const (
	// SettleDuration is how long a restored position is reasserted after a
	// recall. Host movement reconciliation may fight an instantaneous
	// teleport, so the executor holds the position for a fixed span of ticks
	// instead of setting it once.
	SettleDuration = 0.4

	// applyTolerance is the float slack allowed by the post-condition check.
	applyTolerance = 1e-3
)

// EntityAccessor is the injected view of live entity state the executor
// reads and writes. The host owns the concrete entity; the core never touches
// engine fields directly.
type EntityAccessor interface {
	Position() Vec3
	SetPosition(Vec3)
	Vitality() float64
	SetVitality(float64)
}

// EffectSink receives best-effort playback requests. Implementations must be
// non-blocking; absence of an effect never affects recall correctness.
type EffectSink interface {
	PlayRecallEffect(position Vec3)
}

// Executor applies a resolved snapshot to a live entity and holds the
// restored position for the settle duration. One executor per tracker,
// driven from the tracker's tick.
type Executor struct {
	settleTarget    Vec3
	settleRemaining float64
}

// Execute applies the snapshot's position and vitality to the entity.
//
// Vitality is deliberately applied without clamping to the entity's current
// maximum, so a recall can restore a value above present buffs. Partial
// failure (one of the two writes not observed back) is reported, not rolled
// back: a half-restored entity beats an undefined one.
func (ex *Executor) Execute(entity EntityAccessor, snap Snapshot) RecallOutcome {
	// Defense in depth against a stale or corrupted buffer entry.
	if !snap.IsValid() {
		return RecallAbortedInvalid
	}

	entity.SetPosition(snap.Position)
	entity.SetVitality(snap.Vitality)

	ex.settleTarget = snap.Position
	ex.settleRemaining = SettleDuration

	posOK := entity.Position().DistanceTo(snap.Position) <= applyTolerance
	vitOK := math.Abs(entity.Vitality()-snap.Vitality) <= applyTolerance
	if posOK && vitOK {
		return RecallExecuted
	}
	return RecallPartial
}

// TickSettle reasserts the restored position once per tick for the remaining
// settle duration. Must not block; it is a repeating task, not a wait.
func (ex *Executor) TickSettle(entity EntityAccessor, dt float64) {
	if ex.settleRemaining <= 0 {
		return
	}
	entity.SetPosition(ex.settleTarget)
	ex.settleRemaining -= dt
	if ex.settleRemaining < 1e-9 { // absorb float drift at the boundary
		ex.settleRemaining = 0
	}
}

// Settling reports whether a position hold is still in progress.
func (ex *Executor) Settling() bool {
	return ex.settleRemaining > 0
}
