package session

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/CheekyEntity/Chrono-Rewind/internal/rewind"
)

const (
	// MaxTrackedEntities caps registrations so a misbehaving host cannot
	// grow memory without bound.
	MaxTrackedEntities = 256

	// Recall commands are throttled per entity before the gate sees them,
	// so command floods never reach the cooldown logic or the journal.
	RecallCommandsPerSec = 2
	RecallCommandBurst   = 3
)

// SessionOptions wires a session to its collaborators. Config is required;
// Authority, Effects and Journal may be nil.
type SessionOptions struct {
	TickRate  int
	Config    rewind.ConfigProvider
	Authority rewind.AuthorityProvider
	Effects   rewind.EffectSink
	Journal   *Journal
}

// Session owns the tick loop and the per-entity recall trackers. All tracker
// access is serialized through the session mutex; trackers themselves are
// not concurrency-safe.
type Session struct {
	mu             sync.RWMutex
	trackers       map[string]*rewind.Tracker
	recallLimiters map[string]*rate.Limiter

	config    rewind.ConfigProvider
	authority rewind.AuthorityProvider
	effects   rewind.EffectSink
	journal   *Journal

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	start     time.Time
	tickCount int64

	// Event callbacks
	OnRecall   func(entityID string, result rewind.RecallResult)
	OnTickCost func(d time.Duration)
}

// allowAllAuthority is the single-process default: everything is owned.
type allowAllAuthority struct{}

func (allowAllAuthority) IsAuthoritativeOwner(string) bool { return true }

// NewSession creates a session clocked from its own start time
func NewSession(opts SessionOptions) *Session {
	if opts.TickRate <= 0 {
		opts.TickRate = 30
	}
	authority := opts.Authority
	if authority == nil {
		authority = allowAllAuthority{}
	}
	return &Session{
		trackers:       make(map[string]*rewind.Tracker),
		recallLimiters: make(map[string]*rate.Limiter),
		config:         opts.Config,
		authority:      authority,
		effects:        opts.Effects,
		journal:        opts.Journal,
		tickRate:       opts.TickRate,
		stopChan:       make(chan struct{}),
		start:          time.Now(),
	}
}

// Start begins the tick loop
func (s *Session) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.ticker = time.NewTicker(time.Second / time.Duration(s.tickRate))

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.tick()
			case <-s.stopChan:
				return
			}
		}
	}()

	log.Printf("⏪ Recall session started at %d TPS", s.tickRate)
}

// Stop stops the tick loop
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopChan)
	log.Println("🛑 Recall session stopped")
}

// Now returns the session clock in seconds since start. Snapshot timestamps
// and all gate bookkeeping use this clock, never wall time directly.
func (s *Session) Now() float64 {
	return time.Since(s.start).Seconds()
}

// tick is called tickRate times per second
func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickCount++
	now := s.Now()
	deltaTime := 1.0 / float64(s.tickRate)

	start := time.Now()
	for _, tr := range s.trackers {
		tr.Tick(now, deltaTime)
	}
	if s.OnTickCost != nil {
		s.OnTickCost(time.Since(start))
	}
}

// Track registers an entity for history capture. The returned tracker is
// owned by the session; callers interact with it through session methods.
func (s *Session) Track(entityID string, entity rewind.EntityAccessor) (*rewind.Tracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.trackers[entityID]; ok {
		return existing, nil
	}

	// HARD CAP: prevent unbounded tracker growth
	if len(s.trackers) >= MaxTrackedEntities {
		log.Printf("⚠️ Tracked entity limit reached (%d), rejecting: %s", MaxTrackedEntities, entityID)
		return nil, fmt.Errorf("tracked entity limit reached (%d)", MaxTrackedEntities)
	}

	tr := rewind.NewTracker(rewind.TrackerOptions{
		EntityID:  entityID,
		Entity:    entity,
		Config:    s.config,
		Authority: s.authority,
		Effects:   s.effects,
		Warn:      s.entityWarnFunc(entityID),
	})
	s.trackers[entityID] = tr
	s.recallLimiters[entityID] = rate.NewLimiter(RecallCommandsPerSec, RecallCommandBurst)

	s.emit(EventTypeEntityTracked, entityID, TrackPayload{EntityID: entityID})
	log.Printf("🕰️ Tracking entity: %s", entityID)
	return tr, nil
}

// Untrack drops an entity's tracker and history
func (s *Session) Untrack(entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.trackers[entityID]
	if !ok {
		return
	}
	delete(s.trackers, entityID)
	delete(s.recallLimiters, entityID)

	s.emit(EventTypeEntityUntracked, entityID, TrackPayload{
		EntityID:   entityID,
		HistoryLen: tr.HistoryLen(),
	})
	log.Printf("🗑️ Untracked entity: %s", entityID)
}

// RequestRecall delivers one recall command for an entity. Unknown entities
// and command floods are rejected before the gate is consulted.
func (s *Session) RequestRecall(entityID string) (rewind.RecallResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.trackers[entityID]
	if !ok {
		return rewind.RecallResult{}, fmt.Errorf("unknown entity: %s", entityID)
	}

	if limiter := s.recallLimiters[entityID]; limiter != nil && !limiter.Allow() {
		result := rewind.RecallResult{Outcome: rewind.RecallRejectedCooldown}
		s.emit(EventTypeRecallRejected, entityID, RecallPayload{
			EntityID: entityID,
			Outcome:  "rate_limited",
		})
		return result, nil
	}

	now := s.Now()
	s.emit(EventTypeRecallRequested, entityID, RecallPayload{EntityID: entityID})

	result := tr.RequestRecall(now)

	if result.Outcome.Rejected() {
		s.emit(EventTypeRecallRejected, entityID, RecallPayload{
			EntityID: entityID,
			Outcome:  result.Outcome.String(),
		})
	} else {
		s.emit(EventTypeRecallExecuted, entityID, RecallPayload{
			EntityID:         entityID,
			Outcome:          result.Outcome.String(),
			SnapshotAge:      now - result.Snapshot.Timestamp,
			RestoredVitality: result.Snapshot.Vitality,
		})
	}

	if s.OnRecall != nil {
		go s.OnRecall(entityID, result)
	}

	return result, nil
}

// IsWithinAttributionWindow reports whether a death of the given entity right
// now should be classified as recall-related.
func (s *Session) IsWithinAttributionWindow(entityID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.trackers[entityID]
	if !ok {
		return false
	}
	return tr.IsInAttributionWindow(s.Now())
}

// EntityHistory returns a copy of an entity's retained snapshots, oldest
// first, for observers.
func (s *Session) EntityHistory(entityID string) ([]rewind.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.trackers[entityID]
	if !ok {
		return nil, false
	}
	return tr.History(), true
}

// EntityStats returns one tracker's counters
func (s *Session) EntityStats(entityID string) (rewind.TrackerStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.trackers[entityID]
	if !ok {
		return rewind.TrackerStats{}, false
	}
	return tr.Stats(), true
}

// TrackedCount returns the number of registered entities
func (s *Session) TrackedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trackers)
}

// State is the observer-facing snapshot of the whole session
type State struct {
	SessionTime float64               `json:"sessionTime"`
	TickCount   int64                 `json:"tickCount"`
	TickRate    int                   `json:"tickRate"`
	Entities    []rewind.TrackerStats `json:"entities"`
}

// State assembles a read-only view for the HTTP and WebSocket observers
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entities := make([]rewind.TrackerStats, 0, len(s.trackers))
	for _, tr := range s.trackers {
		entities = append(entities, tr.Stats())
	}
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].EntityID < entities[j].EntityID
	})

	return State{
		SessionTime: s.Now(),
		TickCount:   s.tickCount,
		TickRate:    s.tickRate,
		Entities:    entities,
	}
}

// JournalStats exposes journal counters for the stats endpoint
func (s *Session) JournalStats() map[string]interface{} {
	if s.journal == nil {
		return nil
	}
	return s.journal.GetStats()
}

// entityWarnFunc routes tracker warnings into the log and the journal
func (s *Session) entityWarnFunc(entityID string) rewind.WarnFunc {
	return func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		log.Printf("⚠️ %s", msg)
		if s.journal != nil {
			s.journal.EmitSimple(EventTypeWarning, s.Now(), entityID, WarningPayload{
				EntityID: entityID,
				Message:  msg,
			})
		}
	}
}

func (s *Session) emit(eventType EventType, entityID string, payload interface{}) {
	if s.journal == nil {
		return
	}
	s.journal.EmitSimple(eventType, s.Now(), entityID, payload)
}
