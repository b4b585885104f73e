package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRate = 48000.0

// Round-tripping a low-frequency tone through downsample-then-upsample
// should reproduce it closely once the filters' transient has passed
// (§8: "Resampler identity").
func TestRoundTrip_LowFrequencyTone(t *testing.T) {
	down := NewDownsampler3()
	up := NewUpsampler3()

	const blocks = 6
	const blockLen = 480 // one 10 ms block at 48 kHz, divisible by 3
	freq := 1000.0

	var original, reconstructed []float64
	for b := 0; b < blocks; b++ {
		block := make([]float64, blockLen)
		for i := range block {
			n := b*blockLen + i
			block[i] = math.Sin(2 * math.Pi * freq * float64(n) / sampleRate)
		}
		original = append(original, block...)

		lo := down.Process(block)
		hi := up.Process(lo)
		require.Len(t, hi, blockLen)
		reconstructed = append(reconstructed, hi...)
	}

	// The cascaded decimator and interpolator are each a causal tapCount-tap
	// linear-phase FIR, contributing (tapCount-1)/2 samples of group delay
	// apiece - reconstructed[i+delay] is what corresponds to original[i],
	// not reconstructed[i] (§4.3: "21-tap linear-phase FIR").
	const delay = tapCount - 1

	// Skip the initial transient (roughly one kernel length at each stage).
	const skip = 64
	var sumSq, sumErrSq float64
	for i := skip; i < len(original)-skip-delay; i++ {
		d := original[i] - reconstructed[i+delay]
		sumSq += original[i] * original[i]
		sumErrSq += d * d
	}
	relDb := 10 * math.Log10(sumErrSq/sumSq)
	assert.Lessf(t, relDb, -60, "round-trip relative error too high: %.1f dB", relDb)
}

func TestDownsampler3_OutputLength(t *testing.T) {
	d := NewDownsampler3()
	out := d.Process(make([]float64, 480))
	assert.Len(t, out, 160)
}

func TestUpsampler3_OutputLength(t *testing.T) {
	u := NewUpsampler3()
	out := u.Process(make([]float64, 160))
	assert.Len(t, out, 480)
}

func TestDownsampler3_SilenceStaysSilent(t *testing.T) {
	d := NewDownsampler3()
	for i := 0; i < 5; i++ {
		out := d.Process(make([]float64, 480))
		for _, x := range out {
			assert.Equal(t, 0.0, x)
		}
	}
}

func TestReset_ClearsHistory(t *testing.T) {
	d := NewDownsampler3()
	block := make([]float64, 480)
	for i := range block {
		block[i] = 1
	}
	d.Process(block)
	d.Reset()

	// After reset, a silent block should not carry any energy forward from
	// the previous (loud) block's history.
	out := d.Process(make([]float64, 480))
	for _, x := range out {
		assert.Equal(t, 0.0, x)
	}
}
