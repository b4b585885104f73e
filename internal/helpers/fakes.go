package helpers

import (
	"errors"
	"math"
)

// The fakes below are pure-Go test doubles standing in for the platform
// NS/AGC/AEC/VAD binaries, which are out of this module's scope (§1
// Non-goals, §6: "external collaborators"). They let the engine and its
// tests exercise the full create/process/destroy lifecycle without a real
// platform binding.

// FakeNoiseSuppressor attenuates every sample by a fixed factor, loosely
// modeling a noise suppressor's gain reduction, for use in tests and the
// sample host.
type FakeNoiseSuppressor struct {
	Attenuation float64 // 0..1, applied multiplicatively
	closed      bool
}

// FakeNoiseSuppressorProvider opens FakeNoiseSuppressor instances.
type FakeNoiseSuppressorProvider struct {
	Attenuation float64
	FailOpen    bool // simulates helper-creation failure (§7 taxonomy item 2)
}

func (p FakeNoiseSuppressorProvider) Open(frameSize, mode, sampleRate int) (NoiseSuppressor, error) {
	if p.FailOpen {
		return nil, errors.New("fake noise suppressor: simulated open failure")
	}
	att := p.Attenuation
	if att == 0 {
		att = 0.8
	}
	return &FakeNoiseSuppressor{Attenuation: att}, nil
}

func (f *FakeNoiseSuppressor) Process(in, out []int16) {
	for i := range in {
		out[i] = int16(float64(in[i]) * f.Attenuation)
	}
}

func (f *FakeNoiseSuppressor) Close() { f.closed = true }

// FakeAGC applies a fixed linear gain and an optional hard limiter,
// standing in for the platform AGC helper.
type FakeAGC struct {
	gain           float64
	limiterEnabled bool
	closed         bool
}

// FakeAGCProvider opens FakeAGC instances.
type FakeAGCProvider struct {
	FailOpen bool
}

func (p FakeAGCProvider) Open(mode, sampleRate int) (AutomaticGainControl, error) {
	if p.FailOpen {
		return nil, errors.New("fake agc: simulated open failure")
	}
	return &FakeAGC{gain: 1.0}, nil
}

func (f *FakeAGC) SetConfig(compressionGainDb float64, limiterEnabled bool, targetLevelDbfs float64) {
	f.gain = math.Pow(10, compressionGainDb/20)
	f.limiterEnabled = limiterEnabled
}

func (f *FakeAGC) Process(in, out []int16, n, sampleRate int) {
	for i := 0; i < n; i++ {
		v := float64(in[i]) * f.gain
		if f.limiterEnabled {
			const ceiling = 32767
			if v > ceiling {
				v = ceiling
			} else if v < -ceiling-1 {
				v = -ceiling - 1
			}
		}
		out[i] = int16(v)
	}
}

func (f *FakeAGC) Close() { f.closed = true }

// FakeEchoCanceller subtracts a scaled copy of the reference frame from
// the primary frame - a crude but deterministic stand-in for a real AEC,
// useful for exercising the 512-sample frame path end-to-end.
type FakeEchoCanceller struct {
	closed bool
}

// FakeAECProvider opens FakeEchoCanceller instances.
type FakeAECProvider struct {
	FailOpen bool
}

func (p FakeAECProvider) Open(sampleRate, filterLen, channels, mode int) (EchoCanceller, error) {
	if p.FailOpen {
		return nil, errors.New("fake aec: simulated open failure")
	}
	return &FakeEchoCanceller{}, nil
}

func (f *FakeEchoCanceller) Process(primary, reference, out []int16) {
	for i := range primary {
		out[i] = primary[i] - reference[i]/2
	}
}

func (f *FakeEchoCanceller) Close() { f.closed = true }

// FakeVAD classifies a frame as speech when its RMS exceeds a threshold.
type FakeVAD struct {
	ThresholdRMS float64
	closed       bool
}

// FakeVADProvider opens FakeVAD instances.
type FakeVADProvider struct {
	ThresholdRMS float64
	FailOpen     bool
}

func (p FakeVADProvider) Open(mode int) (VoiceActivityDetector, error) {
	if p.FailOpen {
		return nil, errors.New("fake vad: simulated open failure")
	}
	th := p.ThresholdRMS
	if th == 0 {
		th = 500
	}
	return &FakeVAD{ThresholdRMS: th}, nil
}

func (f *FakeVAD) Process(samples []int16, sampleRate, frameMs int) bool {
	if len(samples) == 0 {
		return false
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSq / float64(len(samples)))
	return rms > f.ThresholdRMS
}

func (f *FakeVAD) Close() { f.closed = true }
