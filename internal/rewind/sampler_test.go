package rewind

import (
	"testing"
	"time"
)

// TestSamplerBaseCadence tests capture slots at the fixed base interval
func TestSamplerBaseCadence(t *testing.T) {
	sc := NewSamplingController()
	sc.readHeapBytes = func() uint64 { return 0 }

	if !sc.ShouldCapture(0) {
		t.Fatal("First tick should capture")
	}
	if sc.ShouldCapture(0.05) {
		t.Error("Half an interval later should not capture")
	}
	if !sc.ShouldCapture(0.1) {
		t.Error("One full interval later should capture")
	}
}

// TestSamplerRaisesOnCost tests throttling under expensive captures
func TestSamplerRaisesOnCost(t *testing.T) {
	sc := NewSamplingController()
	sc.readHeapBytes = func() uint64 { return 0 }

	for i := 0; i < costSampleWindowSize; i++ {
		sc.RecordCaptureCost(5 * time.Millisecond)
	}

	if sc.Multiplier() != maxCostMultiplier {
		t.Errorf("Sustained 5ms captures should reach the cost cap %d, got %d",
			maxCostMultiplier, sc.Multiplier())
	}

	// Capture cadence stretches accordingly
	sc.lastCapture = 0
	if sc.ShouldCapture(0.2) {
		t.Error("Throttled sampler should skip at the base cadence")
	}
	if !sc.ShouldCapture(BaseSampleInterval * float64(maxCostMultiplier)) {
		t.Error("Throttled sampler should capture at the stretched cadence")
	}
}

// TestSamplerLowersOnCheapCaptures tests recovery when cost drops
func TestSamplerLowersOnCheapCaptures(t *testing.T) {
	sc := NewSamplingController()
	sc.readHeapBytes = func() uint64 { return 0 }
	sc.multiplier = 3

	for i := 0; i < costSampleWindowSize*3; i++ {
		sc.RecordCaptureCost(100 * time.Microsecond)
	}

	if sc.Multiplier() != 1 {
		t.Errorf("Cheap captures should recover to multiplier 1, got %d", sc.Multiplier())
	}
}

// TestSamplerMemoryPressure tests the coarse global backpressure signal
func TestSamplerMemoryPressure(t *testing.T) {
	sc := NewSamplingController()
	sc.readHeapBytes = func() uint64 { return memoryPressureBytes + 1 }

	// Memory checks are spaced memoryCheckPeriod apart; each one raises once
	now := 0.0
	for i := 0; i < 10; i++ {
		sc.ShouldCapture(now)
		now += memoryCheckPeriod
	}

	if sc.Multiplier() != maxMemoryMultiplier {
		t.Errorf("Sustained memory pressure should reach cap %d, got %d",
			maxMemoryMultiplier, sc.Multiplier())
	}
}

// TestSamplerMemoryCheckIsCoarse tests that ReadMemStats is not hit every tick
func TestSamplerMemoryCheckIsCoarse(t *testing.T) {
	reads := 0
	sc := NewSamplingController()
	sc.readHeapBytes = func() uint64 { reads++; return 0 }

	for i := 0; i < 100; i++ {
		sc.ShouldCapture(float64(i) * 0.1) // 10s of ticks
	}

	// 10s of ticks at a 5s check period: three reads at most (t=0, 5, 9.9)
	if reads > 3 {
		t.Errorf("Expected at most 3 memory checks over 10s, got %d", reads)
	}
}

// TestSamplerEffectiveInterval tests the reported capture period
func TestSamplerEffectiveInterval(t *testing.T) {
	sc := NewSamplingController()
	if sc.EffectiveInterval() != BaseSampleInterval {
		t.Errorf("Expected base interval, got %f", sc.EffectiveInterval())
	}
	sc.multiplier = 4
	if sc.EffectiveInterval() != BaseSampleInterval*4 {
		t.Errorf("Expected 4x interval, got %f", sc.EffectiveInterval())
	}
}
