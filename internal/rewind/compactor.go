package rewind

import "math"

const (
	// CompactionPeriod is how often a buffer is compacted, deliberately long
	// so compaction never competes with the capture cadence.
	CompactionPeriod = 30.0

	// DefaultCompactPositionTolerance is the movement below which an interior
	// snapshot is considered redundant (world units).
	DefaultCompactPositionTolerance = 0.05

	// DefaultCompactVitalityTolerance is the vitality change below which an
	// interior snapshot is considered redundant.
	DefaultCompactVitalityTolerance = 1.0

	// inflectionCosThreshold keeps any snapshot where the angle between
	// successive movement vectors exceeds 30 degrees (cos 30° ≈ 0.866).
	inflectionCosThreshold = 0.8660254037844387
)

// Compact removes interior snapshots that represent negligible movement and
// negligible vitality change relative to the last retained snapshot. The
// oldest and newest entries are always kept (oldest is the usual recall
// target, newest is the most recent state), as is any direction-change
// inflection, so recall fidelity survives the pruning.
//
// Returns the number of snapshots removed.
func (b *HistoryBuffer) Compact(positionTolerance, vitalityTolerance float64) int {
	if len(b.snaps) <= 2 {
		return 0
	}
	if !isFinite(positionTolerance) || positionTolerance <= 0 {
		positionTolerance = DefaultCompactPositionTolerance
	}
	if !isFinite(vitalityTolerance) || vitalityTolerance <= 0 {
		vitalityTolerance = DefaultCompactVitalityTolerance
	}

	before := len(b.snaps)

	// Inflection flags come from the untouched sequence; the in-place filter
	// below overwrites entries the angle test would otherwise read.
	inflection := make([]bool, len(b.snaps))
	for i := 1; i < len(b.snaps)-1; i++ {
		inflection[i] = isInflection(b.snaps, i)
	}

	n := 1 // head always kept
	for i := 1; i < len(b.snaps)-1; i++ {
		s := b.snaps[i]
		last := b.snaps[n-1]

		moved := s.Position.DistanceTo(last.Position) >= positionTolerance
		changed := math.Abs(s.Vitality-last.Vitality) >= vitalityTolerance

		if moved || changed || inflection[i] {
			b.snaps[n] = s
			n++
		}
	}

	b.snaps[n] = b.snaps[len(b.snaps)-1] // tail always kept
	b.snaps = b.snaps[:n+1]
	return before - len(b.snaps)
}

// isInflection reports whether the motion direction turns by more than 30
// degrees at index i. Near-stationary segments carry no usable direction and
// never count as inflections.
func isInflection(snaps []Snapshot, i int) bool {
	if i <= 0 || i >= len(snaps)-1 {
		return false
	}

	in := snaps[i].Position.Sub(snaps[i-1].Position)
	out := snaps[i+1].Position.Sub(snaps[i].Position)

	inLen := in.Length()
	outLen := out.Length()
	if inLen < 1e-9 || outLen < 1e-9 {
		return false
	}

	cos := in.Dot(out) / (inLen * outLen)
	return cos < inflectionCosThreshold
}
