// Package rewind implements a bounded per-entity history of (position,
// vitality, timestamp) snapshots and the machinery to recall an entity to the
// state it held a configured number of seconds earlier: capture sampling with
// adaptive throttling, time-window eviction, periodic compaction, a
// cooldown-gated recall state machine, and an executor that applies the
// resolved snapshot back to the live entity.
//
// All timestamps are monotonic seconds since session start. The package is
// single-threaded per entity: one Tracker must only ever be touched from its
// owner's update loop.
package rewind

// World-model bounds. Out-of-range capture input is replaced with safe
// defaults rather than rejected so the capture pipeline never stalls.
const (
	// MaxWorldExtent bounds each position component (± world units).
	MaxWorldExtent = 10000.0

	// MaxVitality is the upper bound for any stored vitality value.
	MaxVitality = 10000.0

	// DefaultVitality replaces non-finite vitality input.
	DefaultVitality = 100.0

	// TimestampAheadTolerance is how far ahead of "now" a capture timestamp
	// may be before it is replaced with now (clock skew guard).
	TimestampAheadTolerance = 1.0
)

// Snapshot is an immutable recorded (position, vitality, timestamp) triple.
// Buffers hold Snapshot values, not pointers, so there is no aliasing.
type Snapshot struct {
	Position  Vec3    `json:"position"`
	Vitality  float64 `json:"vitality"`
	Timestamp float64 `json:"timestamp"` // seconds since session start
}

// NewSnapshot builds a sanitized snapshot from live entity state. It always
// succeeds: non-finite or out-of-range inputs are replaced with safe defaults
// (origin position, 100 vitality, current time). The second return value
// reports whether any input was replaced, for the caller's warning channel.
//
// Sanitization is idempotent: NewSnapshot over an already-sanitized triple
// changes nothing.
func NewSnapshot(position Vec3, vitality, timestamp, now float64) (Snapshot, bool) {
	sanitized := false

	if !position.IsFinite() || position.MaxComponent() > MaxWorldExtent {
		position = Vec3{}
		sanitized = true
	}

	if !isFinite(vitality) {
		vitality = DefaultVitality
		sanitized = true
	} else if vitality < 0 {
		vitality = 0
		sanitized = true
	} else if vitality > MaxVitality {
		vitality = MaxVitality
		sanitized = true
	}

	if !isFinite(timestamp) || timestamp < 0 || timestamp > now+TimestampAheadTolerance {
		timestamp = now
		sanitized = true
	}

	return Snapshot{Position: position, Vitality: vitality, Timestamp: timestamp}, sanitized
}

// IsValid re-checks the construction invariants. Used defensively after
// buffer traversal so a stale or foreign value is never applied to an entity.
func (s Snapshot) IsValid() bool {
	if !s.Position.IsFinite() || s.Position.MaxComponent() > MaxWorldExtent {
		return false
	}
	if !isFinite(s.Vitality) || s.Vitality < 0 || s.Vitality > MaxVitality {
		return false
	}
	if !isFinite(s.Timestamp) || s.Timestamp < 0 {
		return false
	}
	return true
}

// Age returns how long ago the snapshot was captured.
func (s Snapshot) Age(now float64) float64 {
	return now - s.Timestamp
}

// IsExpired reports whether the snapshot is older than maxAge.
func (s Snapshot) IsExpired(maxAge, now float64) bool {
	return s.Age(now) > maxAge
}
