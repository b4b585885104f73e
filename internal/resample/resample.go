// Package resample implements the engine's 48 kHz <-> 16 kHz bridge: a
// 21-tap windowed-sinc polyphase filter run as a decimator (Downsampler3,
// ×1/3) or interpolator (Upsampler3, ×3). Each carries its own persisted
// history so consecutive blocks stitch together with no audible edge.
//
// Per §4.3, each distinct 48<->16 kHz audio path (NS, AGC, VE-NLMS, VE-AEC)
// must own an independent pair of these - resampler state is never shared
// across paths.
package resample

// Downsampler3 decimates by 3 (e.g. 48 kHz -> 16 kHz). It is a plain causal
// FIR filter applied at the input rate, with every third filtered sample
// kept; the filter's own group delay is what makes the filter-then-decimate
// order equivalent to decimate-then-filter for an anti-aliasing lowpass.
type Downsampler3 struct {
	hist [tapCount - 1]float64 // last tapCount-1 raw input samples, oldest first
}

// NewDownsampler3 returns a decimator with zeroed history.
func NewDownsampler3() *Downsampler3 {
	return &Downsampler3{}
}

// Reset zeros the filter's carried-over history.
func (d *Downsampler3) Reset() {
	d.hist = [tapCount - 1]float64{}
}

// Process decimates in (length must be a multiple of 3) and returns
// len(in)/3 samples. The returned slice is freshly allocated.
func (d *Downsampler3) Process(in []float64) []float64 {
	n := len(in)
	out := make([]float64, n/3)

	// buf holds the carried history followed by this block's input, so tap
	// lookups never need to reach outside it.
	buf := make([]float64, len(d.hist)+n)
	copy(buf, d.hist[:])
	copy(buf[len(d.hist):], in)

	for i := 0; i < n; i += 3 {
		p := len(d.hist) + i
		var acc float64
		for t := 0; t < tapCount; t++ {
			idx := p - t
			if idx >= 0 {
				acc += kernel[t] * buf[idx]
			}
		}
		out[i/3] = acc
	}

	tail := buf[len(buf)-len(d.hist):]
	copy(d.hist[:], tail)
	return out
}

// Upsampler3 interpolates by 3 (e.g. 16 kHz -> 48 kHz): zero-stuff two
// samples after every input sample, run the same lowpass at the 3x rate,
// and scale by 3 to restore passband unity gain (the zero-stuffing itself
// attenuates amplitude by a factor of 3).
type Upsampler3 struct {
	hist [tapCount - 1]float64 // last tapCount-1 zero-stuffed samples, oldest first
}

// NewUpsampler3 returns an interpolator with zeroed history.
func NewUpsampler3() *Upsampler3 {
	return &Upsampler3{}
}

// Reset zeros the filter's carried-over history.
func (u *Upsampler3) Reset() {
	u.hist = [tapCount - 1]float64{}
}

// Process interpolates in and returns 3*len(in) samples.
func (u *Upsampler3) Process(in []float64) []float64 {
	n := len(in)
	stuffedLen := 3 * n
	out := make([]float64, stuffedLen)

	buf := make([]float64, len(u.hist)+stuffedLen)
	copy(buf, u.hist[:])
	for i, x := range in {
		buf[len(u.hist)+3*i] = x
		// +1, +2 are the inserted zeros and stay zero.
	}

	for i := 0; i < stuffedLen; i++ {
		p := len(u.hist) + i
		var acc float64
		for t := 0; t < tapCount; t++ {
			idx := p - t
			if idx >= 0 {
				acc += kernel[t] * buf[idx]
			}
		}
		out[i] = 3 * acc
	}

	tail := buf[len(buf)-len(u.hist):]
	copy(u.hist[:], tail)
	return out
}
