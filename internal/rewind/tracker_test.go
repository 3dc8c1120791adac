package rewind

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// stubConfig returns fixed durations for tracker tests.
type stubConfig struct {
	cooldown float64
	rewind   float64
	kill     float64
	sampling float64
}

func (c *stubConfig) CooldownDuration() float64   { return c.cooldown }
func (c *stubConfig) RewindDuration() float64     { return c.rewind }
func (c *stubConfig) KillWindowDuration() float64 { return c.kill }
func (c *stubConfig) SamplingInterval() float64   { return c.sampling }

type stubAuthority struct {
	owner bool
}

func (a *stubAuthority) IsAuthoritativeOwner(string) bool { return a.owner }

// stubEffects records effect playback calls.
type stubEffects struct {
	mu    sync.Mutex
	calls []Vec3
}

func (s *stubEffects) PlayRecallEffect(pos Vec3) {
	s.mu.Lock()
	s.calls = append(s.calls, pos)
	s.mu.Unlock()
}

func newTestTracker(t *testing.T, entity *stubEntity, authority *stubAuthority) *Tracker {
	t.Helper()
	tr := NewTracker(TrackerOptions{
		EntityID:  "entity-1",
		Entity:    entity,
		Config:    &stubConfig{cooldown: 45, rewind: 3, kill: 3, sampling: 0.1},
		Authority: authority,
	})
	// Pin the sampler to a deterministic heap reading.
	tr.sampler.readHeapBytes = func() uint64 { return 0 }
	return tr
}

// runCaptures advances the tracker through enough ticks to fill the buffer
// with a moving entity up to the given time.
func runCaptures(tr *Tracker, entity *stubEntity, until float64) float64 {
	now := 0.0
	for now <= until {
		entity.pos = Vec3{X: now * 10}
		tr.Tick(now, 0.05)
		now += 0.05
	}
	return now
}

// TestTrackerCapturesAtSamplingCadence tests that ticks faster than the
// sampling interval do not over-capture
func TestTrackerCapturesAtSamplingCadence(t *testing.T) {
	entity := &stubEntity{vit: 100}
	tr := newTestTracker(t, entity, &stubAuthority{owner: true})

	// 1s of 20Hz ticks at a 0.1s sampling interval
	for i := 0; i < 20; i++ {
		tr.Tick(float64(i)*0.05, 0.05)
	}

	if tr.HistoryLen() < 9 || tr.HistoryLen() > 11 {
		t.Errorf("Expected roughly 10 captures over 1s, got %d", tr.HistoryLen())
	}
}

// TestTrackerNonOwnerNeverCaptures tests that a non-authoritative tracker is
// a no-op
func TestTrackerNonOwnerNeverCaptures(t *testing.T) {
	entity := &stubEntity{vit: 100}
	tr := newTestTracker(t, entity, &stubAuthority{owner: false})

	for i := 0; i < 20; i++ {
		tr.Tick(float64(i)*0.1, 0.1)
	}

	if tr.HistoryLen() != 0 {
		t.Errorf("Non-owner must not capture, got %d snapshots", tr.HistoryLen())
	}
}

// TestTrackerRecallExecutes tests the full request path against a populated
// buffer
func TestTrackerRecallExecutes(t *testing.T) {
	entity := &stubEntity{vit: 100}
	tr := newTestTracker(t, entity, &stubAuthority{owner: true})
	now := runCaptures(tr, entity, 5)

	entity.vit = 10 // took damage since the history was recorded

	result := tr.RequestRecall(now)

	if result.Outcome != RecallExecuted {
		t.Fatalf("Expected executed, got %s", result.Outcome)
	}
	if !result.HasSnapshot {
		t.Fatal("Executed recall should carry the resolved snapshot")
	}
	age := now - result.Snapshot.Timestamp
	if age < 2.5 || age > 3.5 {
		t.Errorf("Resolved snapshot should be near the 3s target, got age %f", age)
	}
	if entity.pos != result.Snapshot.Position {
		t.Errorf("Entity not moved to the resolved position: %+v", entity.pos)
	}
	if entity.vit != result.Snapshot.Vitality {
		t.Errorf("Entity vitality not restored: %f", entity.vit)
	}
}

// TestTrackerRecallCooldown tests that a second request inside the cooldown
// is rejected and does not move the entity
func TestTrackerRecallCooldown(t *testing.T) {
	entity := &stubEntity{vit: 100}
	tr := newTestTracker(t, entity, &stubAuthority{owner: true})
	now := runCaptures(tr, entity, 5)

	if result := tr.RequestRecall(now); result.Outcome != RecallExecuted {
		t.Fatalf("First recall should execute, got %s", result.Outcome)
	}
	posAfterFirst := entity.pos

	result := tr.RequestRecall(now + 10)
	if result.Outcome != RecallRejectedCooldown {
		t.Errorf("Expected cooldown rejection, got %s", result.Outcome)
	}
	if entity.pos != posAfterFirst {
		t.Error("Rejected recall must not mutate the entity")
	}
}

// TestTrackerRecallNoHistory tests the empty-buffer rejection
func TestTrackerRecallNoHistory(t *testing.T) {
	entity := &stubEntity{vit: 100}
	tr := newTestTracker(t, entity, &stubAuthority{owner: true})

	result := tr.RequestRecall(1)
	if result.Outcome != RecallRejectedNoHistory {
		t.Errorf("Expected no-history rejection, got %s", result.Outcome)
	}
	if result.HasSnapshot {
		t.Error("No-history rejection should not carry a snapshot")
	}
}

// TestTrackerRecallNonOwner tests the authority rejection
func TestTrackerRecallNonOwner(t *testing.T) {
	entity := &stubEntity{vit: 100}
	authority := &stubAuthority{owner: true}
	tr := newTestTracker(t, entity, authority)
	now := runCaptures(tr, entity, 5)

	authority.owner = false
	result := tr.RequestRecall(now)
	if result.Outcome != RecallRejectedAuthority {
		t.Errorf("Expected authority rejection, got %s", result.Outcome)
	}
}

// TestTrackerAttributionWindow tests the post-recall death attribution signal
func TestTrackerAttributionWindow(t *testing.T) {
	entity := &stubEntity{vit: 100}
	tr := newTestTracker(t, entity, &stubAuthority{owner: true})
	now := runCaptures(tr, entity, 5)

	if tr.IsInAttributionWindow(now) {
		t.Error("Window must be closed before any recall")
	}

	if result := tr.RequestRecall(now); result.Outcome != RecallExecuted {
		t.Fatalf("Recall should execute, got %s", result.Outcome)
	}

	if !tr.IsInAttributionWindow(now + 2.9) {
		t.Error("Window should be open 2.9s after execution")
	}
	if tr.IsInAttributionWindow(now + 3.1) {
		t.Error("Window should be closed 3.1s after execution")
	}
}

// TestTrackerSanitizedCapture tests that garbage host state is counted, not
// propagated
func TestTrackerSanitizedCapture(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, format)
	}

	entity := &stubEntity{pos: Vec3{X: 1e9}, vit: 100} // far outside the world
	tr := NewTracker(TrackerOptions{
		EntityID:  "entity-1",
		Entity:    entity,
		Config:    &stubConfig{cooldown: 45, rewind: 3, kill: 3, sampling: 0.1},
		Authority: &stubAuthority{owner: true},
		Warn:      warn,
	})
	tr.sampler.readHeapBytes = func() uint64 { return 0 }

	tr.Tick(0, 0.1)

	stats := tr.Stats()
	if stats.Sanitized != 1 {
		t.Errorf("Expected 1 sanitized capture, got %d", stats.Sanitized)
	}
	if stats.HistoryLen != 1 {
		t.Errorf("Sanitized snapshot is still stored, got %d", stats.HistoryLen)
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "sanitized") {
			found = true
		}
	}
	if !found {
		t.Error("Sanitized capture should emit a warning")
	}
}

// TestTrackerCompaction tests that long-lived stationary history is pruned on
// the compaction period
func TestTrackerCompaction(t *testing.T) {
	entity := &stubEntity{pos: Vec3{X: 5}, vit: 100}
	tr := NewTracker(TrackerOptions{
		EntityID:  "entity-1",
		Entity:    entity,
		Config:    &stubConfig{cooldown: 45, rewind: 120, kill: 3, sampling: 0.1},
		Authority: &stubAuthority{owner: true},
	})
	tr.sampler.readHeapBytes = func() uint64 { return 0 }

	// 35s of ticks with a stationary entity crosses one compaction boundary.
	for now := 0.0; now <= 35; now += 0.1 {
		tr.Tick(now, 0.1)
	}

	stats := tr.Stats()
	if stats.Compacted == 0 {
		t.Error("Stationary history should have been compacted")
	}
	// ~300 snapshots pruned at t=30, plus ~50 captured since.
	if tr.HistoryLen() > 100 {
		t.Errorf("Stationary history should mostly compact away, got %d snapshots", tr.HistoryLen())
	}
}

// TestTrackerRecallFiresEffect tests that a successful recall plays the
// effect at the restored position
func TestTrackerRecallFiresEffect(t *testing.T) {
	entity := &stubEntity{vit: 100}
	effects := &stubEffects{}
	tr := NewTracker(TrackerOptions{
		EntityID:  "entity-1",
		Entity:    entity,
		Config:    &stubConfig{cooldown: 45, rewind: 3, kill: 3, sampling: 0.1},
		Authority: &stubAuthority{owner: true},
		Effects:   effects,
	})
	tr.sampler.readHeapBytes = func() uint64 { return 0 }
	now := runCaptures(tr, entity, 5)

	result := tr.RequestRecall(now)
	if result.Outcome != RecallExecuted {
		t.Fatalf("Recall should execute, got %s", result.Outcome)
	}

	// Playback is fire-and-forget on its own goroutine.
	deadline := time.Now().Add(time.Second)
	for {
		effects.mu.Lock()
		n := len(effects.calls)
		effects.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Effect playback never observed")
		}
		time.Sleep(time.Millisecond)
	}

	effects.mu.Lock()
	defer effects.mu.Unlock()
	if effects.calls[0] != result.Snapshot.Position {
		t.Errorf("Effect played at %+v, want %+v", effects.calls[0], result.Snapshot.Position)
	}
}
