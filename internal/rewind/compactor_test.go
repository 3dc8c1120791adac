package rewind

import "testing"

func fillBuffer(t *testing.T, b *HistoryBuffer, snaps []Snapshot) {
	t.Helper()
	for _, s := range snaps {
		if !b.Append(s, 0, s.Timestamp) {
			t.Fatalf("Test fixture append failed at ts=%f", s.Timestamp)
		}
	}
}

// TestCompactPrunesStationaryRun tests that a stationary entity keeps only
// its endpoints
func TestCompactPrunesStationaryRun(t *testing.T) {
	b := NewHistoryBuffer(100, 0.1, nil)
	var snaps []Snapshot
	for i := 0; i < 20; i++ {
		snaps = append(snaps, snapAt(t, Vec3{X: 5, Y: 0, Z: 5}, 100, float64(i)*0.1))
	}
	fillBuffer(t, b, snaps)

	removed := b.Compact(0, 0)

	if b.Len() != 2 {
		t.Errorf("Stationary run should compact to endpoints, got %d snapshots", b.Len())
	}
	if removed != 18 {
		t.Errorf("Expected 18 removed, got %d", removed)
	}
	oldest, _ := b.Oldest()
	newest, _ := b.Newest()
	if oldest.Timestamp != 0 || newest.Timestamp != float64(19)*0.1 {
		t.Errorf("Endpoints must survive compaction, got oldest=%f newest=%f",
			oldest.Timestamp, newest.Timestamp)
	}
}

// TestCompactKeepsMovement tests that real displacement is never pruned
func TestCompactKeepsMovement(t *testing.T) {
	b := NewHistoryBuffer(100, 0.1, nil)
	var snaps []Snapshot
	for i := 0; i < 10; i++ {
		snaps = append(snaps, snapAt(t, Vec3{X: float64(i)}, 100, float64(i)*0.1))
	}
	fillBuffer(t, b, snaps)

	if removed := b.Compact(0.05, 1.0); removed != 0 {
		t.Errorf("A moving entity loses no snapshots, removed %d", removed)
	}
}

// TestCompactKeepsVitalityChange tests that a damage spike survives even with
// no movement
func TestCompactKeepsVitalityChange(t *testing.T) {
	b := NewHistoryBuffer(100, 0.1, nil)
	pos := Vec3{X: 1, Y: 2, Z: 3}
	fillBuffer(t, b, []Snapshot{
		snapAt(t, pos, 100, 0.0),
		snapAt(t, pos, 100, 0.1),
		snapAt(t, pos, 40, 0.2), // hit taken here
		snapAt(t, pos, 40, 0.3),
		snapAt(t, pos, 40, 0.4),
	})

	b.Compact(0.05, 1.0)

	found := false
	for _, s := range b.Snapshots() {
		if s.Timestamp == 0.2 {
			found = true
		}
	}
	if !found {
		t.Error("Snapshot at the vitality drop must survive compaction")
	}
	if b.Len() != 3 {
		t.Errorf("Expected endpoints plus the drop, got %d snapshots", b.Len())
	}
}

// TestCompactKeepsInflection tests that a sharp turn is preserved even when
// each step is under the movement tolerance
func TestCompactKeepsInflection(t *testing.T) {
	b := NewHistoryBuffer(100, 0.1, nil)
	// Small steps along +X, then a 90 degree turn onto +Z at index 3.
	fillBuffer(t, b, []Snapshot{
		snapAt(t, Vec3{X: 0.00}, 100, 0.0),
		snapAt(t, Vec3{X: 0.01}, 100, 0.1),
		snapAt(t, Vec3{X: 0.02}, 100, 0.2),
		snapAt(t, Vec3{X: 0.03}, 100, 0.3),
		snapAt(t, Vec3{X: 0.03, Z: 0.01}, 100, 0.4),
		snapAt(t, Vec3{X: 0.03, Z: 0.02}, 100, 0.5),
	})

	b.Compact(0.05, 1.0)

	found := false
	for _, s := range b.Snapshots() {
		if s.Timestamp == 0.3 {
			found = true
		}
	}
	if !found {
		t.Error("Turn point must survive compaction even under the movement tolerance")
	}
}

// TestCompactTinyBuffer tests that one- and two-entry buffers are untouched
func TestCompactTinyBuffer(t *testing.T) {
	b := NewHistoryBuffer(100, 0.1, nil)
	fillBuffer(t, b, []Snapshot{
		snapAt(t, Vec3{}, 100, 0.0),
		snapAt(t, Vec3{X: 50}, 100, 0.1),
	})

	if removed := b.Compact(0.05, 1.0); removed != 0 {
		t.Errorf("Buffers of two or fewer entries never compact, removed %d", removed)
	}
	if b.Len() != 2 {
		t.Errorf("Expected both entries kept, got %d", b.Len())
	}
}

// TestCompactBadToleranceFallsBack tests that invalid tolerances use defaults
func TestCompactBadToleranceFallsBack(t *testing.T) {
	b := NewHistoryBuffer(100, 0.1, nil)
	pos := Vec3{X: 7}
	var snaps []Snapshot
	for i := 0; i < 5; i++ {
		snaps = append(snaps, snapAt(t, pos, 100, float64(i)*0.1))
	}
	fillBuffer(t, b, snaps)

	b.Compact(-1, -1)

	if b.Len() != 2 {
		t.Errorf("Negative tolerances should fall back to defaults, got %d snapshots", b.Len())
	}
}
