package rewind

import (
	"math"
	"testing"
)

// TestNewSnapshotCleanInput tests that valid input passes through untouched
func TestNewSnapshotCleanInput(t *testing.T) {
	snap, sanitized := NewSnapshot(Vec3{1, 2, 3}, 75, 10.0, 10.0)

	if sanitized {
		t.Error("Clean input should not be flagged as sanitized")
	}
	if snap.Position != (Vec3{1, 2, 3}) {
		t.Errorf("Expected position (1,2,3), got %+v", snap.Position)
	}
	if snap.Vitality != 75 {
		t.Errorf("Expected vitality 75, got %f", snap.Vitality)
	}
	if snap.Timestamp != 10.0 {
		t.Errorf("Expected timestamp 10.0, got %f", snap.Timestamp)
	}
}

// TestNewSnapshotSanitizesPosition tests NaN/Inf/out-of-extent position handling
func TestNewSnapshotSanitizesPosition(t *testing.T) {
	cases := []Vec3{
		{math.NaN(), 0, 0},
		{0, math.Inf(1), 0},
		{0, 0, math.Inf(-1)},
		{MaxWorldExtent + 1, 0, 0},
		{0, -MaxWorldExtent - 1, 0},
	}

	for _, pos := range cases {
		snap, sanitized := NewSnapshot(pos, 100, 5.0, 5.0)
		if !sanitized {
			t.Errorf("Position %+v should be sanitized", pos)
		}
		if snap.Position != (Vec3{}) {
			t.Errorf("Invalid position %+v should reset to origin, got %+v", pos, snap.Position)
		}
	}
}

// TestNewSnapshotSanitizesVitality tests vitality fallback and clamping
func TestNewSnapshotSanitizesVitality(t *testing.T) {
	snap, sanitized := NewSnapshot(Vec3{}, math.NaN(), 5.0, 5.0)
	if !sanitized || snap.Vitality != DefaultVitality {
		t.Errorf("NaN vitality should fall back to %f, got %f", DefaultVitality, snap.Vitality)
	}

	snap, _ = NewSnapshot(Vec3{}, -50, 5.0, 5.0)
	if snap.Vitality != 0 {
		t.Errorf("Negative vitality should clamp to 0, got %f", snap.Vitality)
	}

	snap, _ = NewSnapshot(Vec3{}, MaxVitality+500, 5.0, 5.0)
	if snap.Vitality != MaxVitality {
		t.Errorf("Oversized vitality should clamp to %f, got %f", MaxVitality, snap.Vitality)
	}
}

// TestNewSnapshotSanitizesTimestamp tests timestamp fallback to now
func TestNewSnapshotSanitizesTimestamp(t *testing.T) {
	now := 20.0

	for _, ts := range []float64{math.NaN(), -1, now + TimestampAheadTolerance + 0.5} {
		snap, sanitized := NewSnapshot(Vec3{}, 100, ts, now)
		if !sanitized {
			t.Errorf("Timestamp %f should be sanitized", ts)
		}
		if snap.Timestamp != now {
			t.Errorf("Bad timestamp %f should reset to now, got %f", ts, snap.Timestamp)
		}
	}

	// Slightly ahead but within tolerance is fine
	snap, sanitized := NewSnapshot(Vec3{}, 100, now+0.5, now)
	if sanitized || snap.Timestamp != now+0.5 {
		t.Error("Timestamp within ahead-tolerance should pass through")
	}
}

// TestSanitizationIdempotent tests sanitize(sanitize(x)) == sanitize(x)
func TestSanitizationIdempotent(t *testing.T) {
	now := 12.0
	inputs := []struct {
		pos Vec3
		vit float64
		ts  float64
	}{
		{Vec3{math.NaN(), math.Inf(1), 5}, math.NaN(), math.NaN()},
		{Vec3{MaxWorldExtent * 2, 0, 0}, -1, now + 99},
		{Vec3{1, 2, 3}, MaxVitality + 1, -5},
		{Vec3{4, 5, 6}, 80, 3},
	}

	for _, in := range inputs {
		first, _ := NewSnapshot(in.pos, in.vit, in.ts, now)
		second, resanitized := NewSnapshot(first.Position, first.Vitality, first.Timestamp, now)
		if resanitized {
			t.Errorf("Sanitized output %+v should not need re-sanitizing", first)
		}
		if second != first {
			t.Errorf("Sanitization not idempotent: %+v vs %+v", first, second)
		}
	}
}

// TestSnapshotAge tests age and expiry calculations
func TestSnapshotAge(t *testing.T) {
	snap, _ := NewSnapshot(Vec3{}, 100, 10.0, 10.0)

	if got := snap.Age(13.5); got != 3.5 {
		t.Errorf("Expected age 3.5, got %f", got)
	}
	if snap.IsExpired(5.0, 13.5) {
		t.Error("Snapshot at age 3.5 should not be expired for maxAge 5")
	}
	if !snap.IsExpired(3.0, 13.5) {
		t.Error("Snapshot at age 3.5 should be expired for maxAge 3")
	}
}

// TestSnapshotIsValid tests the defensive invariant re-check
func TestSnapshotIsValid(t *testing.T) {
	good, _ := NewSnapshot(Vec3{1, 2, 3}, 100, 5, 5)
	if !good.IsValid() {
		t.Error("Sanitized snapshot should be valid")
	}

	bad := []Snapshot{
		{Position: Vec3{math.NaN(), 0, 0}, Vitality: 100, Timestamp: 1},
		{Position: Vec3{MaxWorldExtent + 1, 0, 0}, Vitality: 100, Timestamp: 1},
		{Position: Vec3{}, Vitality: -1, Timestamp: 1},
		{Position: Vec3{}, Vitality: MaxVitality + 1, Timestamp: 1},
		{Position: Vec3{}, Vitality: 100, Timestamp: -1},
		{Position: Vec3{}, Vitality: 100, Timestamp: math.NaN()},
	}
	for i, s := range bad {
		if s.IsValid() {
			t.Errorf("Case %d: snapshot %+v should be invalid", i, s)
		}
	}
}
