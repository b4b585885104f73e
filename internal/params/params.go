// Package params implements the engine's mutex-protected parameter
// exchange (§4.7): one Parameters record, one read-only Levels snapshot,
// and a dirty flag, all behind a single short-critical-section mutex
// shared by setters and the worker.
package params

import "math"

// VoiceExclusionNLMS and VoiceExclusionAEC select the voice-exclusion cancellation strategy
// (§3: VoiceExclusion.mode).
const (
	VoiceExclusionNLMS = 0
	VoiceExclusionAEC  = 1
)

// TinnitusNotchPlacement resolves §9's open question about whether the
// tinnitus notches apply before or after the 3-band peaking EQ (§4.10).
type TinnitusNotchPlacement int

const (
	NotchPostPeakingEQ TinnitusNotchPlacement = iota
	NotchPrePeakingEQ
)

// MaskingNoiseType selects the tinnitus masking-noise generator's color.
type MaskingNoiseType int

const (
	MaskingOff MaskingNoiseType = iota
	MaskingWhite
	MaskingPink
	MaskingBrown
)

// HPFLPF is the shared shape of a simple enable/frequency filter stage.
type HPFLPF struct {
	Enabled   bool
	Frequency float64
}

// EQBand is one of the three fixed-frequency peaking-EQ bands.
type EQBand struct {
	GainDb float64
}

// NoiseSuppression configures the external NS helper.
type NoiseSuppression struct {
	Enabled bool
	Mode    int // 0..2
}

// AGC configures the external AGC helper.
type AGC struct {
	Enabled           bool
	Mode              int // 0..3
	CompressionGainDb float64
	LimiterEnabled    bool
	TargetLevelDbfs   float64
}

// VoiceExclusion configures the NLMS/AEC cancellation path.
type VoiceExclusion struct {
	Enabled        bool
	Mode           int // VoiceExclusionNLMS | VoiceExclusionAEC
	Blend          float64
	StepSize       float64
	FilterLength   int
	MaxAttenuation float64
	RefGain        float64
	RefHpf         float64
	RefLpf         float64
	AecMode        int
	AecFilterLen   int
	VadEnabled     bool
	VadMode        int
	VadGateEnabled bool
	VadGateAtten   float64
}

// Output configures the final gain stage.
type Output struct {
	Gain         float64
	Volume       float64
	Mute         bool
	BoostEnabled bool
}

// Notch is one of the tinnitus layer's six configurable notches.
type Notch struct {
	Enabled   bool
	Frequency float64
	Q         float64
}

// MaskingNoise configures the tinnitus masking-noise generator.
type MaskingNoise struct {
	Type    MaskingNoiseType
	Level   float64
	LowCut  float64
	HighCut float64
}

// ToneFinder configures the tinnitus pure-tone finder/masker.
type ToneFinder struct {
	Enabled bool
	Freq    float64
	Level   float64
}

// HFExtension configures the tinnitus high-frequency shelf boost.
type HFExtension struct {
	Enabled bool
	Freq    float64
	GainDb  float64
}

// Binaural configures the tinnitus binaural-beat generator.
type Binaural struct {
	Enabled bool
	Carrier float64
	Beat    float64
	Level   float64
}

// Tinnitus groups the tinnitus/synthesis layer's parameters (§4.6).
type Tinnitus struct {
	Notches        [6]Notch
	Masking        MaskingNoise
	Tone           ToneFinder
	HFExt          HFExtension
	Binaural       Binaural
	NotchPlacement TinnitusNotchPlacement
}

// Parameters is the process-wide configuration record (§3). Every field
// setter clamps to the documented bound rather than rejecting; out-of-range
// input can never be observed back through GetParams.
type Parameters struct {
	MicGain float64 // [0, 240]

	HPF HPFLPF // HPF.Frequency in [20, 2000]
	LPF HPFLPF // LPF.Frequency in [500, 20000]

	EQ [3]EQBand // gains in [-12, 12] dB, at fixed 250/1000/4000 Hz, Q=1.4

	NS  NoiseSuppression
	AGC AGC
	VE  VoiceExclusion

	Out Output

	Tinnitus Tinnitus
}

// EQFrequencies are the three fixed peaking-EQ center frequencies (§3).
var EQFrequencies = [3]float64{250, 1000, 4000}

// EQQ is the fixed Q used by every peaking-EQ band (§3).
const EQQ = 1.4

// Default returns the safe default parameter record: output muted, every
// feature disabled (§3 Lifecycle: "a safe default (output muted)").
func Default() Parameters {
	return Parameters{
		MicGain: 120,
		HPF:     HPFLPF{Enabled: false, Frequency: 80},
		LPF:     HPFLPF{Enabled: false, Frequency: 12000},
		NS:      NoiseSuppression{Enabled: false, Mode: 1},
		AGC:     AGC{Enabled: false, Mode: 0, CompressionGainDb: 12, TargetLevelDbfs: -18},
		VE: VoiceExclusion{
			Enabled:        false,
			Mode:           VoiceExclusionNLMS,
			Blend:          1.0,
			StepSize:       0.1,
			FilterLength:   64,
			MaxAttenuation: 0.8,
			RefGain:        1.0,
			RefHpf:         100,
			RefLpf:         4000,
			AecFilterLen:   2,
			VadGateAtten:   0.5,
		},
		Out: Output{Gain: 1.0, Volume: 70, Mute: true},
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp returns p with every field clamped to its documented bound. It is
// the single source of truth for §3's range table and is applied by every
// setter in store.go, and by SetParams for a wholesale replacement.
func Clamp(p Parameters) Parameters {
	p.MicGain = clamp(p.MicGain, 0, 240)

	p.HPF.Frequency = clamp(p.HPF.Frequency, 20, 2000)
	p.LPF.Frequency = clamp(p.LPF.Frequency, 500, 20000)

	for i := range p.EQ {
		p.EQ[i].GainDb = clamp(p.EQ[i].GainDb, -12, 12)
	}

	p.NS.Mode = clampInt(p.NS.Mode, 0, 2)

	p.AGC.Mode = clampInt(p.AGC.Mode, 0, 3)
	p.AGC.CompressionGainDb = clamp(p.AGC.CompressionGainDb, 0, 90)
	p.AGC.TargetLevelDbfs = clamp(p.AGC.TargetLevelDbfs, -31, 0)

	p.VE.Mode = clampInt(p.VE.Mode, VoiceExclusionNLMS, VoiceExclusionAEC)
	p.VE.Blend = clamp(p.VE.Blend, 0, 1)
	p.VE.StepSize = clamp(p.VE.StepSize, 0.01, 1.0)
	p.VE.FilterLength = clampInt(p.VE.FilterLength, 16, 512)
	p.VE.MaxAttenuation = clamp(p.VE.MaxAttenuation, 0, 1)
	p.VE.RefGain = clamp(p.VE.RefGain, 0.1, 5.0)
	p.VE.RefHpf = clamp(p.VE.RefHpf, 20, 500)
	p.VE.RefLpf = clamp(p.VE.RefLpf, 1000, 8000)
	p.VE.AecFilterLen = clampInt(p.VE.AecFilterLen, 1, 6)
	p.VE.VadMode = clampInt(p.VE.VadMode, 0, 4)
	p.VE.VadGateAtten = clamp(p.VE.VadGateAtten, 0, 1)

	p.Out.Gain = clamp(p.Out.Gain, 0, 6)
	p.Out.Volume = clamp(p.Out.Volume, 0, 100)

	for i := range p.Tinnitus.Notches {
		p.Tinnitus.Notches[i].Frequency = clamp(p.Tinnitus.Notches[i].Frequency, 500, 12000)
		p.Tinnitus.Notches[i].Q = clamp(p.Tinnitus.Notches[i].Q, 1, 16)
	}
	p.Tinnitus.Masking.Type = MaskingNoiseType(clampInt(int(p.Tinnitus.Masking.Type), int(MaskingOff), int(MaskingBrown)))
	p.Tinnitus.Binaural.Beat = clamp(p.Tinnitus.Binaural.Beat, 1, 40)
	p.Tinnitus.NotchPlacement = TinnitusNotchPlacement(clampInt(int(p.Tinnitus.NotchPlacement), int(NotchPostPeakingEQ), int(NotchPrePeakingEQ)))

	return p
}

// Levels is the read-only per-block snapshot published by the worker
// (§3: "never observed" applies to filter state, not to Levels, which is
// explicitly the one thing the worker publishes outward).
type Levels struct {
	RMSLeft, RMSRight   float64
	PeakLeft, PeakRight float64
	RMSHP, PeakHP       float64
	VadSpeechDetected   bool
	MicRatio            float64 // §4.12: rmsLeft/rmsRight, for mic calibration
}
