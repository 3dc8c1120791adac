package rewind

import "math"

const (
	// EvictionTolerance is the slack added to the retention window before a
	// head entry is considered expired. Keeps a snapshot captured right at the
	// window edge recallable despite tick jitter.
	EvictionTolerance = 0.1

	// AbsoluteBufferCeiling caps any buffer regardless of configuration.
	AbsoluteBufferCeiling = 2000

	// minEvictionLoopBound is the floor for the eviction iteration guard.
	minEvictionLoopBound = 1000
)

// IntegrityReport summarizes a diagnostic pass over a buffer. Normal
// operation never needs it; it exists for tests and the optional runtime
// self-check.
type IntegrityReport struct {
	Invalid    int `json:"invalid"`
	Expired    int `json:"expired"`
	OutOfOrder int `json:"outOfOrder"`
}

// Clean reports whether the pass found nothing wrong.
func (r IntegrityReport) Clean() bool {
	return r.Invalid == 0 && r.Expired == 0 && r.OutOfOrder == 0
}

// HistoryBuffer is an ordered sequence of snapshots for one entity, oldest at
// the head, timestamps non-decreasing. It is bounded both by the retention
// window (time) and by a hard safety cap (count), so a lag spike or a stalled
// clock can never grow it without limit.
//
// Not safe for concurrent use; the owning tracker serializes all access.
type HistoryBuffer struct {
	snaps           []Snapshot
	logicalCapacity int
	defaultWindow   float64
	warn            WarnFunc
}

// WarnFunc receives non-fatal anomaly reports (forced truncation, corruption
// recovery). May be nil.
type WarnFunc func(format string, args ...interface{})

// NewHistoryBuffer sizes a buffer for the given retention window and sampling
// interval. warn may be nil.
func NewHistoryBuffer(retentionWindow, samplingInterval float64, warn WarnFunc) *HistoryBuffer {
	if !isFinite(retentionWindow) || retentionWindow <= 0 {
		retentionWindow = 3.0
	}
	if !isFinite(samplingInterval) || samplingInterval <= 0 {
		samplingInterval = 0.1
	}

	capacity := int(math.Ceil(retentionWindow/samplingInterval)) + 1
	if capacity < 1 {
		capacity = 1
	}

	return &HistoryBuffer{
		snaps:           make([]Snapshot, 0, capacity),
		logicalCapacity: capacity,
		defaultWindow:   retentionWindow,
		warn:            warn,
	}
}

// SafetyCap returns the hard entry limit: twice the logical capacity, never
// above the absolute ceiling.
func (b *HistoryBuffer) SafetyCap() int {
	limit := 2 * b.logicalCapacity
	if limit > AbsoluteBufferCeiling {
		limit = AbsoluteBufferCeiling
	}
	if limit < 2 {
		limit = 2
	}
	return limit
}

// Append adds a snapshot and evicts expired head entries. Returns false only
// when the eviction loop overran its bound and the buffer was cleared as a
// recovery measure; in that case the appended snapshot is gone too.
//
// A NaN or non-positive retention window falls back to the buffer's
// configured default so the hot path never errors on bad input.
func (b *HistoryBuffer) Append(snap Snapshot, retentionWindow, now float64) bool {
	if !isFinite(retentionWindow) || retentionWindow <= 0 {
		retentionWindow = b.defaultWindow
	}

	b.snaps = append(b.snaps, snap)

	// Evict expired entries from the head. The iteration guard only trips if
	// the buffer is corrupted; losing history beats spinning forever.
	maxAge := retentionWindow + EvictionTolerance
	bound := 2 * len(b.snaps)
	if bound < minEvictionLoopBound {
		bound = minEvictionLoopBound
	}

	drop := 0
	for drop < len(b.snaps) && b.snaps[drop].IsExpired(maxAge, now) {
		drop++
		if drop > bound {
			b.warnf("history eviction overran bound (%d), clearing buffer", bound)
			b.Clear()
			return false
		}
	}
	if drop > 0 {
		n := copy(b.snaps, b.snaps[drop:])
		b.snaps = b.snaps[:n]
	}

	// Safety cap: force-evict down to half the cap so a stalled eviction
	// (e.g. a frozen clock) cannot grow the buffer without limit.
	if limit := b.SafetyCap(); len(b.snaps) > limit {
		keep := limit / 2
		b.warnf("history exceeded safety cap (%d entries), truncating to %d", len(b.snaps), keep)
		n := copy(b.snaps, b.snaps[len(b.snaps)-keep:])
		b.snaps = b.snaps[:n]
	}

	return true
}

// Len returns the number of retained snapshots.
func (b *HistoryBuffer) Len() int {
	return len(b.snaps)
}

// Oldest returns the head snapshot, false when empty.
func (b *HistoryBuffer) Oldest() (Snapshot, bool) {
	if len(b.snaps) == 0 {
		return Snapshot{}, false
	}
	return b.snaps[0], true
}

// Newest returns the tail snapshot, false when empty.
func (b *HistoryBuffer) Newest() (Snapshot, bool) {
	if len(b.snaps) == 0 {
		return Snapshot{}, false
	}
	return b.snaps[len(b.snaps)-1], true
}

// Snapshots returns a copy of the retained sequence, oldest first. Observers
// get the copy so they can never mutate tracked history.
func (b *HistoryBuffer) Snapshots() []Snapshot {
	out := make([]Snapshot, len(b.snaps))
	copy(out, b.snaps)
	return out
}

// Clear drops all history.
func (b *HistoryBuffer) Clear() {
	b.snaps = b.snaps[:0]
}

// ValidateIntegrity counts invariant violations without mutating the buffer.
func (b *HistoryBuffer) ValidateIntegrity(expectedWindow, now float64) IntegrityReport {
	if !isFinite(expectedWindow) || expectedWindow <= 0 {
		expectedWindow = b.defaultWindow
	}

	var report IntegrityReport
	maxAge := expectedWindow + EvictionTolerance

	prev := math.Inf(-1)
	for _, s := range b.snaps {
		if !s.IsValid() {
			report.Invalid++
		}
		if s.IsExpired(maxAge, now) {
			report.Expired++
		}
		if s.Timestamp < prev {
			report.OutOfOrder++
		}
		prev = s.Timestamp
	}
	return report
}

// Repair drops entries failing IsValid, preserving order, and returns how
// many were removed. Recovery path only.
func (b *HistoryBuffer) Repair() int {
	n := 0
	for _, s := range b.snaps {
		if s.IsValid() {
			b.snaps[n] = s
			n++
		}
	}
	removed := len(b.snaps) - n
	b.snaps = b.snaps[:n]
	if removed > 0 {
		b.warnf("history repair removed %d invalid snapshots", removed)
	}
	return removed
}

func (b *HistoryBuffer) warnf(format string, args ...interface{}) {
	if b.warn != nil {
		b.warn(format, args...)
	}
}
