// Package meter implements the engine's per-block RMS + peak-hold metering
// (§4.5 steps 6/12, §2 "Metering"), including the exponential peak-hold
// decay of §3 invariant 4 and the mic-calibration ratio of §4.12.
package meter

import "math"

// PeakDecay is the per-block peak-hold decay factor yielding roughly a
// 300 ms release at the engine's 480-sample/48 kHz (10 ms) block rate:
// 0.97^n falls by a factor of e in about 33 blocks (~330 ms) and to about
// 0.40 (-8 dB) after 30 blocks (§8 scenario 1).
const PeakDecay = 0.97

// Meter tracks one channel's RMS and peak-hold state across blocks.
type Meter struct {
	rms  float64
	peak float64
}

// Update computes this block's RMS and peak from samples, decays the held
// peak, and keeps whichever is larger (§3 invariant 4: "max(current,
// previous * decay)").
func (m *Meter) Update(samples []float64) {
	var sumSq, blockPeak float64
	for _, x := range samples {
		sumSq += x * x
		if a := math.Abs(x); a > blockPeak {
			blockPeak = a
		}
	}
	n := len(samples)
	if n > 0 {
		m.rms = math.Sqrt(sumSq / float64(n))
	} else {
		m.rms = 0
	}

	decayed := m.peak * PeakDecay
	if blockPeak > decayed {
		m.peak = blockPeak
	} else {
		m.peak = decayed
	}
}

// RMS returns the last block's RMS level.
func (m *Meter) RMS() float64 {
	return m.rms
}

// Peak returns the current peak-hold level.
func (m *Meter) Peak() float64 {
	return m.peak
}

// Reset zeros both readings (used at worker start).
func (m *Meter) Reset() {
	m.rms, m.peak = 0, 0
}

// ratioFloor guards Ratio against a near-zero denominator.
const ratioFloor = 1e-6

// Ratio computes a calibration ratio between two RMS levels (§4.12:
// "rmsLeft / rmsRight ... guarded against division by a near-zero
// denominator, returning 1.0 when the denominator is below a small
// floor").
func Ratio(numerator, denominator float64) float64 {
	if denominator < ratioFloor {
		return 1.0
	}
	return numerator / denominator
}
