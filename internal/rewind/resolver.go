package rewind

import "math"

// ResolveRecallTarget selects the snapshot whose age is closest to targetAge
// from a time-ordered sequence (oldest first).
//
// An exact-age snapshot rarely exists at a 0.1s sampling cadence, so closest
// match bounds the restore error to half the sampling interval. When the
// target age exceeds the whole tracked span (entity joined recently), the
// oldest valid snapshot wins. Invalid entries are skipped, never selected.
// Returns false when the sequence is empty or holds no valid snapshot.
func ResolveRecallTarget(snaps []Snapshot, targetAge, now float64) (Snapshot, bool) {
	best := -1
	bestDiff := math.Inf(1)

	for i, s := range snaps {
		if !s.IsValid() {
			continue
		}
		age := s.Age(now)
		diff := math.Abs(age - targetAge)
		if diff < bestDiff {
			best = i
			bestDiff = diff
		}
		// Ordered oldest to newest, so once an entry is at or below the
		// target age every later entry only moves further away.
		if age <= targetAge {
			break
		}
	}

	if best < 0 {
		return Snapshot{}, false
	}
	return snaps[best], true
}

// RecallCandidate resolves the recall target against this buffer's sequence.
func (b *HistoryBuffer) RecallCandidate(targetAge, now float64) (Snapshot, bool) {
	return ResolveRecallTarget(b.snaps, targetAge, now)
}
