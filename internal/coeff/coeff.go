// Package coeff derives biquad.Coefficients from a frequency/Q/gain spec
// using the Audio-EQ-Cookbook (RBJ) formulations: high-pass, low-pass,
// peaking EQ, notch, and high-shelf.
package coeff

import (
	"math"

	"github.com/doismellburning/aurafilter/internal/biquad"
)

// ButterworthQ is the Q that yields a maximally flat (Butterworth) magnitude
// response, used for the engine's plain HPF/LPF stages.
const ButterworthQ = 1 / math.Sqrt2

// peakingBypassDb is the threshold below which a peaking-EQ gain is
// considered inaudible and replaced by the identity biquad (§4.2: "no
// audible glitch").
const peakingBypassDb = 0.1

// HighPass returns coefficients for a second-order Butterworth-Q high-pass
// at freq Hz, sampleRate Hz, with the given Q (pass ButterworthQ for
// a plain HPF stage; a caller may supply a different Q for other uses).
func HighPass(freq, sampleRate, q float64) biquad.Coefficients {
	w0, alpha := omega(freq, sampleRate, q)
	cosW0 := math.Cos(w0)

	b0 := (1 + cosW0) / 2
	b1 := -(1 + cosW0)
	b2 := (1 + cosW0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosW0
	a2 := 1 - alpha

	return normalize(b0, b1, b2, a0, a1, a2)
}

// LowPass returns coefficients for a second-order Butterworth-Q low-pass.
func LowPass(freq, sampleRate, q float64) biquad.Coefficients {
	w0, alpha := omega(freq, sampleRate, q)
	cosW0 := math.Cos(w0)

	b0 := (1 - cosW0) / 2
	b1 := 1 - cosW0
	b2 := (1 - cosW0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosW0
	a2 := 1 - alpha

	return normalize(b0, b1, b2, a0, a1, a2)
}

// Peaking returns coefficients for a peaking EQ at freq Hz with the given Q
// and gain in dB. A gain within peakingBypassDb of 0 dB yields the identity
// biquad rather than a near-unity filter, per §4.2.
func Peaking(freq, sampleRate, q, gainDb float64) biquad.Coefficients {
	if math.Abs(gainDb) < peakingBypassDb {
		return biquad.Coefficients{B0: 1, Bypass: true}
	}

	w0, alpha := omegaQ(freq, sampleRate, q)
	cosW0 := math.Cos(w0)
	a := math.Pow(10, gainDb/40)

	b0 := 1 + alpha*a
	b1 := -2 * cosW0
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosW0
	a2 := 1 - alpha/a

	return normalize(b0, b1, b2, a0, a1, a2)
}

// Notch returns coefficients for an RBJ notch filter at freq Hz with the
// given Q. Unlike Peaking, a notch's depth is governed entirely by Q, not a
// gain parameter - it always targets maximum (zero-gain) suppression at
// freq.
func Notch(freq, sampleRate, q float64) biquad.Coefficients {
	w0, alpha := omegaQ(freq, sampleRate, q)
	cosW0 := math.Cos(w0)

	b0 := 1.0
	b1 := -2 * cosW0
	b2 := 1.0
	a0 := 1 + alpha
	a1 := -2 * cosW0
	a2 := 1 - alpha

	return normalize(b0, b1, b2, a0, a1, a2)
}

// HighShelf returns coefficients for an RBJ high-shelf boosting (or cutting)
// by gainDb above freq Hz, with shelf slope S = 1 (the cookbook's standard
// "gentle" slope).
func HighShelf(freq, sampleRate, gainDb float64) biquad.Coefficients {
	const s = 1.0

	w0 := 2 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	a := math.Pow(10, gainDb/40)
	alpha := sinW0 / 2 * math.Sqrt((a+1/a)*(1/s-1)+2)
	twoSqrtAAlpha := 2 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) + (a-1)*cosW0 + twoSqrtAAlpha)
	b1 := -2 * a * ((a - 1) + (a+1)*cosW0)
	b2 := a * ((a + 1) + (a-1)*cosW0 - twoSqrtAAlpha)
	a0 := (a + 1) - (a-1)*cosW0 + twoSqrtAAlpha
	a1 := 2 * ((a - 1) - (a+1)*cosW0)
	a2 := (a + 1) - (a-1)*cosW0 - twoSqrtAAlpha

	return normalize(b0, b1, b2, a0, a1, a2)
}

func omega(freq, sampleRate, q float64) (w0, alpha float64) {
	return omegaQ(freq, sampleRate, q)
}

func omegaQ(freq, sampleRate, q float64) (w0, alpha float64) {
	w0 = 2 * math.Pi * freq / sampleRate
	alpha = math.Sin(w0) / (2 * q)
	return
}

func normalize(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}
