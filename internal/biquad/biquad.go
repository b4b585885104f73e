// Package biquad implements a second-order IIR filter section in
// Direct-Form-II-transposed form, the workhorse of the DSP pipeline's HPF,
// LPF, peaking-EQ, notch, and high-shelf stages.
package biquad

// Coefficients are the five values produced by the coefficient calculator.
// They are assigned wholesale by SetCoefficients and never mutated by
// Process.
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64

	// Bypass is set by the calculator when the filter is known to be an
	// identity transform (e.g. a peaking EQ commanded at exactly 0 dB).
	// Process still produces bit-exact output in this case, but callers
	// may check Bypass to skip the per-sample work entirely.
	Bypass bool
}

// Biquad holds the coefficients for one filter section plus the two delay
// elements of its Direct-Form-II-transposed state.
type Biquad struct {
	c      Coefficients
	z1, z2 float64
}

// SetCoefficients installs a new coefficient set. It does not touch the
// filter's delay state, so a coefficient change mid-stream does not zero
// out in-flight history.
func (b *Biquad) SetCoefficients(c Coefficients) {
	b.c = c
}

// Reset zeros the filter's internal state.
func (b *Biquad) Reset() {
	b.z1, b.z2 = 0, 0
}

// IsBypass reports whether the current coefficients are the identity
// transform.
func (b *Biquad) IsBypass() bool {
	return b.c.Bypass
}

// Process filters one sample and returns the output sample, updating z1/z2.
//
// Direct-Form-II-transposed:
//
//	y  = b0*x + z1
//	z1 = b1*x - a1*y + z2
//	z2 = b2*x - a2*y
//
// Flushing a near-zero z1/z2 explicitly on bypass avoids the tiny denormal
// residues a long-running filter with a 0 dB peaking gain can otherwise
// accumulate.
func (b *Biquad) Process(x float64) float64 {
	if b.c.Bypass {
		b.z1, b.z2 = 0, 0
		return x
	}
	y := b.c.B0*x + b.z1
	b.z1 = b.c.B1*x - b.c.A1*y + b.z2
	b.z2 = b.c.B2*x - b.c.A2*y
	return y
}
