// Package helpers defines the engine's capability interfaces over the
// opaque external NS/AGC/AEC/VAD DSP helpers (§6, §9: "Opaque helper
// handles"). The engine is polymorphic over any provider implementing
// these, which is what lets platform helpers be swapped for test doubles
// (see fakes.go).
package helpers

// NoiseSuppressor processes fixed-size int16 frames in place of the
// external NS helper (§6: NS "create(frameSize, mode, rate=16000)",
// "process(in16, out16)", "destroy").
type NoiseSuppressor interface {
	Process(in, out []int16)
	Close()
}

// NoiseSuppressorProvider opens a NoiseSuppressor for a given frame size
// and mode at 16 kHz.
type NoiseSuppressorProvider interface {
	Open(frameSize, mode, sampleRate int) (NoiseSuppressor, error)
}

// AutomaticGainControl mirrors the external AGC helper's
// open/setConfig/process/close lifecycle (§6).
type AutomaticGainControl interface {
	SetConfig(compressionGainDb float64, limiterEnabled bool, targetLevelDbfs float64)
	Process(in, out []int16, n, sampleRate int)
	Close()
}

// AGCProvider opens an AutomaticGainControl for a given mode at 16 kHz.
type AGCProvider interface {
	Open(mode, sampleRate int) (AutomaticGainControl, error)
}

// EchoCanceller mirrors the external AEC helper, which operates on fixed
// 512-sample frames (§6).
type EchoCanceller interface {
	Process(primary, reference, out []int16)
	Close()
}

// AECProvider opens an EchoCanceller for a given rate/filter length/channel
// count/mode.
type AECProvider interface {
	Open(sampleRate, filterLen, channels, mode int) (EchoCanceller, error)
}

// VoiceActivityDetector classifies a fixed-length frame as speech or
// silence (§6: VAD "process(samples16, rate, frameMs=30) -> {SPEECH,
// SILENCE}").
type VoiceActivityDetector interface {
	Process(samples []int16, sampleRate, frameMs int) (speech bool)
	Close()
}

// VADProvider opens a VoiceActivityDetector for a given mode.
type VADProvider interface {
	Open(mode int) (VoiceActivityDetector, error)
}
