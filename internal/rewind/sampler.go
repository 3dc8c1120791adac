package rewind

import (
	"math"
	"runtime"
	"time"
)

const (
	// BaseSampleInterval is the fixed capture cadence, independent of frame
	// rate. The adaptive multiplier stretches it, never shrinks it.
	BaseSampleInterval = 0.1

	// Cost thresholds for the adaptive skip multiplier.
	raiseCostThreshold = 2 * time.Millisecond
	lowerCostThreshold = 500 * time.Microsecond
	maxCostMultiplier  = 4

	// Memory pressure is a coarse global backpressure signal: above the
	// threshold the multiplier is raised regardless of per-call cost.
	memoryPressureBytes  = 100 << 20
	maxMemoryMultiplier  = 6
	memoryCheckPeriod    = 5.0 // seconds between ReadMemStats calls
	costSampleWindowSize = 32
)

// SamplingController decides each tick whether a new snapshot should be
// captured. A rolling average of measured capture cost drives a skip
// multiplier so that many concurrent tracked entities degrade capture
// resolution instead of tick budget.
type SamplingController struct {
	interval   float64
	multiplier int

	costs     [costSampleWindowSize]time.Duration
	costIdx   int
	costCount int
	costSum   time.Duration

	lastCapture  float64
	lastMemCheck float64

	// readHeapBytes is swappable in tests; defaults to runtime heap usage.
	readHeapBytes func() uint64
}

// NewSamplingController returns a controller at the base cadence with no
// throttling applied.
func NewSamplingController() *SamplingController {
	return &SamplingController{
		interval:      BaseSampleInterval,
		multiplier:    1,
		lastCapture:   math.Inf(-1),
		lastMemCheck:  math.Inf(-1),
		readHeapBytes: heapBytes,
	}
}

// ShouldCapture reports whether enough time has passed for the next capture,
// consuming the slot when it has.
func (sc *SamplingController) ShouldCapture(now float64) bool {
	sc.checkMemoryPressure(now)

	if now-sc.lastCapture < sc.interval*float64(sc.multiplier) {
		return false
	}
	sc.lastCapture = now
	return true
}

// RecordCaptureCost feeds one measured capture duration into the rolling
// average and adjusts the skip multiplier.
func (sc *SamplingController) RecordCaptureCost(d time.Duration) {
	if sc.costCount == costSampleWindowSize {
		sc.costSum -= sc.costs[sc.costIdx]
	} else {
		sc.costCount++
	}
	sc.costs[sc.costIdx] = d
	sc.costSum += d
	sc.costIdx = (sc.costIdx + 1) % costSampleWindowSize

	avg := sc.costSum / time.Duration(sc.costCount)
	if avg > raiseCostThreshold && sc.multiplier < maxCostMultiplier {
		sc.multiplier++
	} else if avg < lowerCostThreshold && sc.multiplier > 1 {
		sc.multiplier--
	}
}

// checkMemoryPressure raises the multiplier when the process heap is over
// the pressure threshold. ReadMemStats is not cheap, so the check runs at a
// coarse period.
func (sc *SamplingController) checkMemoryPressure(now float64) {
	if now-sc.lastMemCheck < memoryCheckPeriod {
		return
	}
	sc.lastMemCheck = now

	if sc.readHeapBytes() > memoryPressureBytes && sc.multiplier < maxMemoryMultiplier {
		sc.multiplier++
	}
}

// Multiplier returns the current skip multiplier (1 = base cadence).
func (sc *SamplingController) Multiplier() int {
	return sc.multiplier
}

// EffectiveInterval returns the current capture period in seconds.
func (sc *SamplingController) EffectiveInterval() float64 {
	return sc.interval * float64(sc.multiplier)
}

func heapBytes() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}
