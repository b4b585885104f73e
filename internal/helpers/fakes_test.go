package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeNoiseSuppressorProvider_OpenAndProcess(t *testing.T) {
	ns, err := FakeNoiseSuppressorProvider{Attenuation: 0.5}.Open(160, 2, 16000)
	require.NoError(t, err)
	defer ns.Close()

	in := []int16{1000, -1000, 2000}
	out := make([]int16, 3)
	ns.Process(in, out)
	assert.Equal(t, int16(500), out[0])
	assert.Equal(t, int16(-500), out[1])
	assert.Equal(t, int16(1000), out[2])
}

func TestFakeNoiseSuppressorProvider_FailOpen(t *testing.T) {
	_, err := FakeNoiseSuppressorProvider{FailOpen: true}.Open(160, 2, 16000)
	assert.Error(t, err)
}

func TestFakeAGC_AppliesGainAndLimiter(t *testing.T) {
	agc, err := FakeAGCProvider{}.Open(0, 16000)
	require.NoError(t, err)
	agc.SetConfig(20, true, -18) // +20dB -> gain x10

	in := []int16{5000}
	out := make([]int16, 1)
	agc.Process(in, out, 1, 16000)
	assert.Equal(t, int16(32767), out[0], "limiter must clamp the x10 gain to full scale")
}

func TestFakeEchoCanceller_SubtractsHalfReference(t *testing.T) {
	aec, err := FakeAECProvider{}.Open(16000, 2, 1, 0)
	require.NoError(t, err)

	primary := []int16{1000, -1000}
	reference := []int16{400, 400}
	out := make([]int16, 2)
	aec.Process(primary, reference, out)
	assert.Equal(t, int16(800), out[0])
	assert.Equal(t, int16(-1200), out[1])
}

func TestFakeVAD_ClassifiesByRMS(t *testing.T) {
	vad, err := FakeVADProvider{ThresholdRMS: 100}.Open(0)
	require.NoError(t, err)

	loud := make([]int16, 160)
	for i := range loud {
		loud[i] = 5000
	}
	assert.True(t, vad.Process(loud, 16000, 30))

	quiet := make([]int16, 160)
	assert.False(t, vad.Process(quiet, 16000, 30))
}
