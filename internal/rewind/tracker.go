package rewind

import "time"

// ConfigProvider supplies the four live-tunable durations. Implementations
// may cache reads for a few seconds but must not cache indefinitely.
type ConfigProvider interface {
	CooldownDuration() float64
	RewindDuration() float64
	KillWindowDuration() float64
	SamplingInterval() float64
}

// AuthorityProvider answers whether this process is the authoritative owner
// of an entity. The core never captures history or executes recalls for an
// entity it does not own; non-owners get read access only.
type AuthorityProvider interface {
	IsAuthoritativeOwner(entityID string) bool
}

// RecallResult reports how a recall request ended and, when a snapshot was
// resolved, which one.
type RecallResult struct {
	Outcome     RecallOutcome
	Snapshot    Snapshot
	HasSnapshot bool
}

// TrackerOptions wires a tracker to its collaborators. Entity, Config and
// Authority are required; Effects and Warn may be nil.
type TrackerOptions struct {
	EntityID  string
	Entity    EntityAccessor
	Config    ConfigProvider
	Authority AuthorityProvider
	Effects   EffectSink
	Warn      WarnFunc
}

// Tracker is the authoritative-side rewind controller for one entity: one
// history buffer, one recall gate, one sampling controller, one executor.
//
// Not safe for concurrent use. All calls must come from the owning entity's
// update loop; the session serializes across entities.
type Tracker struct {
	entityID  string
	entity    EntityAccessor
	config    ConfigProvider
	authority AuthorityProvider
	effects   EffectSink
	warn      WarnFunc

	buffer   *HistoryBuffer
	gate     *RecallGate
	sampler  *SamplingController
	executor *Executor

	lastCompaction float64

	// Counters read by the session's state snapshot.
	captures       uint64
	sanitizedCount uint64
	compacted      uint64
}

// NewTracker builds a tracker sized for the configured rewind window.
func NewTracker(opts TrackerOptions) *Tracker {
	return &Tracker{
		entityID:  opts.EntityID,
		entity:    opts.Entity,
		config:    opts.Config,
		authority: opts.Authority,
		effects:   opts.Effects,
		warn:      opts.Warn,
		buffer:    NewHistoryBuffer(opts.Config.RewindDuration(), opts.Config.SamplingInterval(), opts.Warn),
		gate:      NewRecallGate(),
		sampler:   NewSamplingController(),
		executor:  &Executor{},
	}
}

// EntityID returns the tracked entity's identity.
func (t *Tracker) EntityID() string {
	return t.entityID
}

// Tick runs one authoritative update: settle reassertion, then capture and
// eviction, then periodic compaction. The order is strict so a recall
// resolution always observes the buffer as of the latest completed capture.
func (t *Tracker) Tick(now, dt float64) {
	if !t.authority.IsAuthoritativeOwner(t.entityID) {
		return
	}

	t.executor.TickSettle(t.entity, dt)

	if t.sampler.ShouldCapture(now) {
		start := time.Now()

		snap, sanitized := NewSnapshot(t.entity.Position(), t.entity.Vitality(), now, now)
		if sanitized {
			t.sanitizedCount++
			t.warnf("entity %s: capture input sanitized", t.entityID)
		}
		t.buffer.Append(snap, t.config.RewindDuration(), now)
		t.captures++

		t.sampler.RecordCaptureCost(time.Since(start))
	}

	if now-t.lastCompaction >= CompactionPeriod {
		t.lastCompaction = now

		if report := t.buffer.ValidateIntegrity(t.config.RewindDuration(), now); !report.Clean() {
			repaired := t.buffer.Repair()
			t.warnf("entity %s: history repaired (%d invalid, %d out of order, %d dropped)",
				t.entityID, report.Invalid, report.OutOfOrder, repaired)
		}

		removed := t.buffer.Compact(DefaultCompactPositionTolerance, DefaultCompactVitalityTolerance)
		t.compacted += uint64(removed)
	}
}

// RequestRecall handles one delivered recall command. Rejections are
// expected conditions: they are reported in the result and logged, never
// escalated, and the request is not queued or retried.
func (t *Tracker) RequestRecall(now float64) RecallResult {
	if !t.gate.BeginRequest() {
		// A request is already in flight; drop this one.
		return RecallResult{Outcome: RecallRejectedCooldown}
	}

	isOwner := t.authority.IsAuthoritativeOwner(t.entityID)
	candidate, hasCandidate := t.buffer.RecallCandidate(t.config.RewindDuration(), now)

	ok, reason := t.gate.Authorize(now, t.config.CooldownDuration(), isOwner, hasCandidate)
	if !ok {
		t.warnf("entity %s: recall rejected (%s)", t.entityID, reason)
		return RecallResult{Outcome: reason}
	}

	t.gate.BeginExecution(now)
	outcome := t.executor.Execute(t.entity, candidate)
	t.gate.FinishExecution(now, !outcome.Rejected())

	if !outcome.Rejected() && t.effects != nil {
		// Fire and forget; effect playback must never block or fail a recall.
		go t.effects.PlayRecallEffect(candidate.Position)
	}

	return RecallResult{Outcome: outcome, Snapshot: candidate, HasSnapshot: true}
}

// IsInAttributionWindow reports whether a death right now should be
// classified as recall-related by the external death tracker.
func (t *Tracker) IsInAttributionWindow(now float64) bool {
	return t.gate.IsInAttributionWindow(now, t.config.KillWindowDuration())
}

// History returns a read-only copy of the tracked snapshots, oldest first.
func (t *Tracker) History() []Snapshot {
	return t.buffer.Snapshots()
}

// HistoryLen returns the number of retained snapshots without copying.
func (t *Tracker) HistoryLen() int {
	return t.buffer.Len()
}

// Sampler exposes the sampling controller for stats reporting.
func (t *Tracker) Sampler() *SamplingController {
	return t.sampler
}

// Stats returns per-tracker counters for the observer surface.
func (t *Tracker) Stats() TrackerStats {
	return TrackerStats{
		EntityID:       t.entityID,
		HistoryLen:     t.buffer.Len(),
		Captures:       t.captures,
		Sanitized:      t.sanitizedCount,
		Compacted:      t.compacted,
		SkipMultiplier: t.sampler.Multiplier(),
		Settling:       t.executor.Settling(),
	}
}

// TrackerStats is a read-only counter snapshot for observers.
type TrackerStats struct {
	EntityID       string `json:"entityId"`
	HistoryLen     int    `json:"historyLen"`
	Captures       uint64 `json:"captures"`
	Sanitized      uint64 `json:"sanitized"`
	Compacted      uint64 `json:"compacted"`
	SkipMultiplier int    `json:"skipMultiplier"`
	Settling       bool   `json:"settling"`
}

func (t *Tracker) warnf(format string, args ...interface{}) {
	if t.warn != nil {
		t.warn(format, args...)
	}
}
